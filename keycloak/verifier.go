package keycloak

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// DefaultAlgorithm is the algorithm Keycloak realms sign access tokens with
	DefaultAlgorithm = "RS256"

	// DefaultClockSkew is the tolerance applied to iat
	DefaultClockSkew = 30 * time.Second
)

var supportedAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// SupportedAlgorithms lists the asymmetric algorithms a Verifier accepts.
func SupportedAlgorithms() []string {
	return slices.Clone(supportedAlgorithms)
}

// KeySource resolves a kid to a public key
type KeySource interface {
	Resolve(ctx context.Context, kid string) (crypto.PublicKey, error)
}

// VerifierConfig holds configuration for Verifier
type VerifierConfig struct {
	Algorithm string
	ClockSkew time.Duration
	Metrics   Metrics
	Now       func() time.Time
}

// Verifier checks signature, algorithm, validity window and audience of a
// bearer token.
type Verifier struct {
	keys      KeySource
	algorithm string
	skew      time.Duration
	metrics   Metrics
	now       func() time.Time
	logger    *zap.Logger
	parser    *jwt.Parser
}

// NewVerifier creates a verifier pinned to a single asymmetric algorithm.
func NewVerifier(keys KeySource, cfg VerifierConfig, logger *zap.Logger) (*Verifier, error) {
	if keys == nil {
		return nil, errors.New("key source is required")
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = DefaultAlgorithm
	}
	if !slices.Contains(supportedAlgorithms, cfg.Algorithm) {
		return nil, fmt.Errorf("unsupported token algorithm %q", cfg.Algorithm)
	}
	if cfg.ClockSkew < 0 {
		return nil, fmt.Errorf("clock skew must not be negative, got %s", cfg.ClockSkew)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Verifier{
		keys:      keys,
		algorithm: cfg.Algorithm,
		skew:      cfg.ClockSkew,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
		logger:    logger,
		// Timing claims are checked in validateWindow against the injected clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{cfg.Algorithm}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Algorithm returns the pinned signing algorithm.
func (v *Verifier) Algorithm() string {
	return v.algorithm
}

// Verify returns the token's claims only when every check passes. All
// failures are *TokenError.
func (v *Verifier) Verify(ctx context.Context, rawToken, audience string) (RawClaims, error) {
	claims, err := v.verify(ctx, rawToken, audience)
	if err != nil {
		v.metrics.ObserveVerificationFailure(err.Kind)
		v.logger.Debug("token verification failed",
			zap.String("kind", string(err.Kind)),
			zap.Error(err.Err),
		)
		return nil, err
	}
	return claims, nil
}

func (v *Verifier) verify(ctx context.Context, rawToken, audience string) (RawClaims, *TokenError) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, newTokenError(KindMalformed, errors.New("empty token"))
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, newTokenError(KindMalformed, errors.New("kid header not found"))
		}
		return v.keys.Resolve(ctx, kid)
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	if terr := v.validateWindow(claims); terr != nil {
		return nil, terr
	}

	aud, err := claims.GetAudience()
	if err != nil {
		return nil, newTokenError(KindMalformed, err)
	}
	if audience == "" || !slices.Contains(aud, audience) {
		return nil, newTokenError(KindMissingAudience, fmt.Errorf("audience %q not in %v", audience, []string(aud)))
	}

	return RawClaims(claims), nil
}

func (v *Verifier) validateWindow(claims jwt.MapClaims) *TokenError {
	now := v.now()

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return newTokenError(KindMalformed, err)
	}
	if exp == nil {
		return newTokenError(KindMalformed, errors.New("exp claim is required"))
	}
	if !now.Before(exp.Time) {
		return newTokenError(KindExpired, fmt.Errorf("expired at %s", exp.Time.UTC().Format(time.RFC3339)))
	}

	nbf, err := claims.GetNotBefore()
	if err != nil {
		return newTokenError(KindMalformed, err)
	}
	if nbf != nil && now.Before(nbf.Time) {
		return newTokenError(KindExpired, fmt.Errorf("not valid before %s", nbf.Time.UTC().Format(time.RFC3339)))
	}

	iat, err := claims.GetIssuedAt()
	if err != nil {
		return newTokenError(KindMalformed, err)
	}
	if iat != nil && iat.Time.After(now.Add(v.skew)) {
		return newTokenError(KindExpired, fmt.Errorf("issued in the future at %s", iat.Time.UTC().Format(time.RFC3339)))
	}

	return nil
}

func classifyParseError(err error) *TokenError {
	// Errors raised by the key lookup keep their own kind.
	var te *TokenError
	if errors.As(err, &te) {
		return te
	}

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newTokenError(KindMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newTokenError(KindInvalidSignature, err)
	default:
		return newTokenError(KindMalformed, err)
	}
}
