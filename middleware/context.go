package middleware

import (
	"context"

	"github.com/upb/realm-guard/keycloak"
)

// Context key type to avoid collisions
type contextKey string

const (
	// AuthContextKey is the context key for the authenticated identity
	AuthContextKey contextKey = "auth_context"
)

// WithAuthContext adds the authenticated identity to the context
func WithAuthContext(ctx context.Context, ac *keycloak.AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, ac)
}

// GetAuthContext retrieves the authenticated identity from context. It is
// nil outside a protected route.
func GetAuthContext(ctx context.Context) *keycloak.AuthContext {
	if val := ctx.Value(AuthContextKey); val != nil {
		if ac, ok := val.(*keycloak.AuthContext); ok {
			return ac
		}
	}
	return nil
}

// GetUserIDFromContext returns the subject of the authenticated identity
func GetUserIDFromContext(ctx context.Context) string {
	if ac := GetAuthContext(ctx); ac != nil {
		return ac.UserID
	}
	return ""
}
