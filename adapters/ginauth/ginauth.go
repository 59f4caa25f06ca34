// Package ginauth exposes the request guard as gin middleware.
package ginauth

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/upb/realm-guard/internal/shared"
	"github.com/upb/realm-guard/keycloak"
	"github.com/upb/realm-guard/utils"
)

// AuthContextKey is the gin context key holding *keycloak.AuthContext
const AuthContextKey = "realmguard.auth"

// Authorizer decides whether a request may proceed
type Authorizer interface {
	Authorize(ctx context.Context, header string, required []string) keycloak.Decision
}

// RequireAuth guards a gin route. With no roles any valid token is enough.
func RequireAuth(guard Authorizer, roles ...string) gin.HandlerFunc {
	required := slices.Clone(roles)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if shared.RequestID(ctx) == "" {
			id := c.GetHeader(shared.RequestIDHeader)
			if id == "" {
				id = shared.NewRequestID()
			}
			ctx = shared.WithRequestID(ctx, id)
			c.Request = c.Request.WithContext(ctx)
		}

		decision := guard.Authorize(ctx, c.GetHeader("Authorization"), required)
		if !decision.Allowed {
			c.Abort()
			_ = utils.WriteError(c.Writer, decision.Status, decision.Message)
			return
		}

		c.Set(AuthContextKey, decision.Context)
		// gin flushes headers on the first body write, so the advice is
		// set before the handler runs.
		if decision.RefreshAdvised {
			c.Header(keycloak.RefreshHeader, "true")
		}
		c.Next()
	}
}

// AuthContextFromGin returns the identity set by RequireAuth.
func AuthContextFromGin(c *gin.Context) (*keycloak.AuthContext, bool) {
	v, ok := c.Get(AuthContextKey)
	if !ok {
		return nil, false
	}
	ac, ok := v.(*keycloak.AuthContext)
	return ac, ok && ac != nil
}
