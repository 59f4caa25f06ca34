package keycloak

import "time"

// DefaultRefreshThreshold is how close to exp a token must be before the
// client is told to refresh.
const DefaultRefreshThreshold = 300 * time.Second

// ExpiryAdvisor decides whether a still-valid token should be refreshed.
type ExpiryAdvisor struct {
	threshold time.Duration
	now       func() time.Time
}

// NewExpiryAdvisor creates an advisor. A non-positive threshold selects
// DefaultRefreshThreshold; a nil clock selects time.Now.
func NewExpiryAdvisor(threshold time.Duration, now func() time.Time) *ExpiryAdvisor {
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}
	if now == nil {
		now = time.Now
	}
	return &ExpiryAdvisor{threshold: threshold, now: now}
}

// Threshold returns the configured refresh window.
func (a *ExpiryAdvisor) Threshold() time.Duration {
	return a.threshold
}

// NearExpiry reports exp - now < threshold. A missing exp always advises a
// refresh.
func (a *ExpiryAdvisor) NearExpiry(claims RawClaims) bool {
	if !claims.Has("exp") {
		return true
	}
	remaining := time.Unix(claims.Int64("exp"), 0).Sub(a.now())
	return remaining < a.threshold
}
