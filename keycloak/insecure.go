package keycloak

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrUnverifiedDecodeDisabled is returned when the debug decoder is not allowed
var ErrUnverifiedDecodeDisabled = errors.New("unverified token decoding is disabled")

// InsecureDecoderConfig gates the debug decoder
type InsecureDecoderConfig struct {
	Allow      bool
	Production bool
}

// InsecureDecoder reads claims without checking signature or validity.
// Its output must never be used to authorize a request.
type InsecureDecoder struct {
	parser *jwt.Parser
	logger *zap.Logger
}

// NewInsecureDecoder refuses to build a decoder unless explicitly allowed
// outside production.
func NewInsecureDecoder(cfg InsecureDecoderConfig, logger *zap.Logger) (*InsecureDecoder, error) {
	if !cfg.Allow || cfg.Production {
		return nil, ErrUnverifiedDecodeDisabled
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsecureDecoder{
		parser: jwt.NewParser(),
		logger: logger,
	}, nil
}

// DecodeUnverified returns the token's claims as-is.
func (d *InsecureDecoder) DecodeUnverified(rawToken string) (RawClaims, error) {
	d.logger.Warn("decoding token without signature verification")

	claims := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(rawToken, claims); err != nil {
		return nil, newTokenError(KindMalformed, err)
	}
	return RawClaims(claims), nil
}
