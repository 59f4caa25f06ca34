package keycloak

import (
	"encoding/json"
	"math"
	"slices"
	"sort"
	"strings"
)

// RawClaims is the verified, untyped claim map of a token.
type RawClaims map[string]any

// String returns a string claim or "".
func (c RawClaims) String(name string) string {
	s, _ := c[name].(string)
	return s
}

// Int64 returns a numeric claim truncated to seconds, or 0.
func (c RawClaims) Int64(name string) int64 {
	switch v := c[name].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Has reports whether the claim is present.
func (c RawClaims) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Map returns an object claim or an empty map.
func (c RawClaims) Map(name string) map[string]any {
	if m, ok := c[name].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// AuthContext is the per-request identity derived from verified claims.
type AuthContext struct {
	UserID         string         `json:"user_id"`
	Username       string         `json:"username"`
	Email          string         `json:"email"`
	Roles          []string       `json:"roles"`
	RealmAccess    map[string]any `json:"realm_access"`
	ResourceAccess map[string]any `json:"resource_access"`
	Scopes         []string       `json:"scopes"`
	IssuedAt       int64          `json:"issued_at"`
	ExpiresAt      int64          `json:"expires_at"`
	Issuer         string         `json:"issuer"`
}

// HasRole reports whether role is in the context's role set.
func (a *AuthContext) HasRole(role string) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.Roles, role)
}

// Project maps verified claims to an AuthContext. Missing claims fall back
// to empty values; roles are deduplicated and sorted.
func Project(claims RawClaims) AuthContext {
	realmAccess := claims.Map("realm_access")
	resourceAccess := claims.Map("resource_access")

	scopes := strings.Fields(claims.String("scope"))
	if scopes == nil {
		scopes = []string{}
	}

	return AuthContext{
		UserID:         claims.String("sub"),
		Username:       claims.String("preferred_username"),
		Email:          claims.String("email"),
		Roles:          extractRoles(realmAccess, resourceAccess),
		RealmAccess:    realmAccess,
		ResourceAccess: resourceAccess,
		Scopes:         scopes,
		IssuedAt:       claims.Int64("iat"),
		ExpiresAt:      claims.Int64("exp"),
		Issuer:         claims.String("iss"),
	}
}

// extractRoles merges realm roles with client roles qualified as
// "<client>:<role>".
func extractRoles(realmAccess, resourceAccess map[string]any) []string {
	seen := make(map[string]struct{})
	for _, role := range stringList(realmAccess["roles"]) {
		seen[role] = struct{}{}
	}
	for client, access := range resourceAccess {
		entry, ok := access.(map[string]any)
		if !ok {
			continue
		}
		for _, role := range stringList(entry["roles"]) {
			seen[client+":"+role] = struct{}{}
		}
	}

	roles := make([]string, 0, len(seen))
	for role := range seen {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(list))
		for _, s := range list {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
