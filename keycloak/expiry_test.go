package keycloak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiryAdvisor_NearExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	advisor := NewExpiryAdvisor(300*time.Second, clock)

	tests := []struct {
		name   string
		claims RawClaims
		want   bool
	}{
		{"far from expiry", RawClaims{"exp": float64(now.Unix() + 3600)}, false},
		{"exactly at threshold", RawClaims{"exp": float64(now.Unix() + 300)}, false},
		{"just inside threshold", RawClaims{"exp": float64(now.Unix() + 299)}, true},
		{"already expired", RawClaims{"exp": float64(now.Unix() - 10)}, true},
		{"missing exp", RawClaims{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, advisor.NearExpiry(tt.claims))
		})
	}
}

func TestNewExpiryAdvisor_Defaults(t *testing.T) {
	advisor := NewExpiryAdvisor(0, nil)
	assert.Equal(t, DefaultRefreshThreshold, advisor.Threshold())

	assert.False(t, advisor.NearExpiry(RawClaims{"exp": float64(time.Now().Add(time.Hour).Unix())}))
	assert.True(t, advisor.NearExpiry(RawClaims{"exp": float64(time.Now().Add(time.Minute).Unix())}))
}
