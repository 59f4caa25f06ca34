package keycloak

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// RefreshHeader is set to "true" on allowed responses whose token is close
// to expiry.
const RefreshHeader = "X-Token-Refresh-Needed"

// DenyReason classifies a rejected request.
type DenyReason string

const (
	ReasonMissingHeader           DenyReason = "missing-header"
	ReasonMalformedHeader         DenyReason = "malformed-header"
	ReasonInvalidToken            DenyReason = "invalid-or-expired"
	ReasonInsufficientPermissions DenyReason = "insufficient-permissions"
)

// Client-facing messages. Verification detail never leaves the process.
const (
	MessageMissingHeader           = "Authorization header missing"
	MessageMalformedHeader         = "Invalid authorization header format"
	MessageInvalidToken            = "Invalid or expired token"
	MessageInsufficientPermissions = "Insufficient permissions"
)

// Decision is the outcome of authorizing one request.
type Decision struct {
	Allowed        bool
	Status         int
	Reason         DenyReason
	Message        string
	Context        *AuthContext
	RefreshAdvised bool
}

// Outcome returns "allowed" or "denied".
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allowed"
	}
	return "denied"
}

// TokenVerifier verifies a raw bearer token for an audience
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken, audience string) (RawClaims, error)
}

// GuardConfig holds configuration for Guard
type GuardConfig struct {
	Audience string
	Metrics  Metrics
}

// Guard runs header extraction, verification, projection, the role gate
// and the expiry advice for one request.
type Guard struct {
	verifier TokenVerifier
	advisor  *ExpiryAdvisor
	audience string
	metrics  Metrics
	logger   *zap.Logger
}

// NewGuard creates a new request guard
func NewGuard(verifier TokenVerifier, advisor *ExpiryAdvisor, cfg GuardConfig, logger *zap.Logger) *Guard {
	if advisor == nil {
		advisor = NewExpiryAdvisor(DefaultRefreshThreshold, nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		verifier: verifier,
		advisor:  advisor,
		audience: cfg.Audience,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// Authorize decides a request from its Authorization header value and the
// route's required roles.
func (g *Guard) Authorize(ctx context.Context, header string, required []string) Decision {
	decision := g.authorize(ctx, header, required)
	g.metrics.ObserveDecision(decision)
	return decision
}

func (g *Guard) authorize(ctx context.Context, header string, required []string) Decision {
	if strings.TrimSpace(header) == "" {
		return deny(http.StatusUnauthorized, ReasonMissingHeader, MessageMissingHeader)
	}

	token, ok := ExtractBearerToken(header)
	if !ok {
		return deny(http.StatusUnauthorized, ReasonMalformedHeader, MessageMalformedHeader)
	}

	claims, err := g.verifier.Verify(ctx, token, g.audience)
	if err != nil {
		kind, _ := KindOf(err)
		g.logger.Warn("bearer token rejected",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return deny(http.StatusUnauthorized, ReasonInvalidToken, MessageInvalidToken)
	}

	ac := Project(claims)
	if !Permitted(ac, required) {
		g.logger.Info("insufficient permissions",
			zap.String("user_id", ac.UserID),
			zap.Strings("required_roles", required),
			zap.Strings("roles", ac.Roles),
		)
		d := deny(http.StatusForbidden, ReasonInsufficientPermissions, MessageInsufficientPermissions)
		d.Context = &ac
		return d
	}

	return Decision{
		Allowed:        true,
		Status:         http.StatusOK,
		Context:        &ac,
		RefreshAdvised: g.advisor.NearExpiry(claims),
	}
}

func deny(status int, reason DenyReason, message string) Decision {
	return Decision{
		Status:  status,
		Reason:  reason,
		Message: message,
	}
}

// ExtractBearerToken parses "Bearer <token>". The scheme is matched case
// insensitively; the token must be a single non-empty field.
func ExtractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", false
	}
	return token, true
}
