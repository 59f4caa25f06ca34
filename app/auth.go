package app

import (
	"fmt"

	"github.com/upb/realm-guard/config"
	"github.com/upb/realm-guard/keycloak"
	"go.uber.org/zap"
)

// AuthStack is the verification pipeline for one realm
type AuthStack struct {
	Resolver *keycloak.KeyResolver
	Verifier *keycloak.Verifier
	Advisor  *keycloak.ExpiryAdvisor
	Guard    *keycloak.Guard
}

// NewAuthStack wires resolver, verifier, advisor and guard from config.
// metrics may be nil.
func NewAuthStack(cfg config.KeycloakConfig, metrics keycloak.Metrics, logger *zap.Logger) (*AuthStack, error) {
	resolver := keycloak.NewKeyResolver(keycloak.ResolverConfig{
		CertsURL: cfg.CertsURL(),
		Timeout:  cfg.JWKSFetchTimeout,
		Metrics:  metrics,
	}, logger.Named("jwks"))

	verifier, err := keycloak.NewVerifier(resolver, keycloak.VerifierConfig{
		Algorithm: cfg.Algorithm,
		ClockSkew: cfg.ClockSkew,
		Metrics:   metrics,
	}, logger.Named("verifier"))
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	advisor := keycloak.NewExpiryAdvisor(cfg.RefreshThreshold, nil)
	guard := keycloak.NewGuard(verifier, advisor, keycloak.GuardConfig{
		Audience: cfg.Audience,
		Metrics:  metrics,
	}, logger.Named("guard"))

	return &AuthStack{
		Resolver: resolver,
		Verifier: verifier,
		Advisor:  advisor,
		Guard:    guard,
	}, nil
}
