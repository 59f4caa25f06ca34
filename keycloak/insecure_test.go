package keycloak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/realm-guard/keycloak/keycloaktest"
)

func TestNewInsecureDecoder(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		_, err := NewInsecureDecoder(InsecureDecoderConfig{}, nil)
		assert.ErrorIs(t, err, ErrUnverifiedDecodeDisabled)
	})

	t.Run("refused in production even when allowed", func(t *testing.T) {
		_, err := NewInsecureDecoder(InsecureDecoderConfig{Allow: true, Production: true}, nil)
		assert.ErrorIs(t, err, ErrUnverifiedDecodeDisabled)
	})
}

func TestInsecureDecoder_DecodeUnverified(t *testing.T) {
	issuer := keycloaktest.NewIssuer("demo")
	defer issuer.Close()

	decoder, err := NewInsecureDecoder(InsecureDecoderConfig{Allow: true}, nil)
	require.NoError(t, err)

	t.Run("decodes claims of an expired token", func(t *testing.T) {
		token := issuer.Token("u1", map[string]any{"exp": int64(1)})

		claims, err := decoder.DecodeUnverified(token)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.String("sub"))
		assert.EqualValues(t, 1, claims.Int64("exp"))
	})

	t.Run("garbage is malformed", func(t *testing.T) {
		_, err := decoder.DecodeUnverified("garbage")
		assert.ErrorIs(t, err, ErrMalformedToken)
	})
}
