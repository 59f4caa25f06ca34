package keycloak

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermitted(t *testing.T) {
	ac := AuthContext{Roles: []string{"api:read", "user"}}

	tests := []struct {
		name     string
		ctx      AuthContext
		required []string
		want     bool
	}{
		{"no requirement", ac, nil, true},
		{"empty requirement", ac, []string{}, true},
		{"no requirement and no roles", AuthContext{}, nil, true},
		{"single matching role", ac, []string{"user"}, true},
		{"any one of several", ac, []string{"admin", "api:read"}, true},
		{"no match", ac, []string{"admin"}, false},
		{"unqualified client role does not match", ac, []string{"read"}, false},
		{"no roles with requirement", AuthContext{}, []string{"user"}, false},
		{"unsorted roles", AuthContext{Roles: []string{"user", "admin"}}, []string{"admin"}, true},
		{"unsorted roles first element", AuthContext{Roles: []string{"zeta", "alpha"}}, []string{"zeta"}, true},
		{"unsorted roles no match", AuthContext{Roles: []string{"user", "admin"}}, []string{"auditor"}, false},
		{"duplicated roles", AuthContext{Roles: []string{"user", "user", "api:read", "user"}}, []string{"api:read"}, true},
		{"duplicated roles no match", AuthContext{Roles: []string{"user", "user"}}, []string{"admin"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Permitted(tt.ctx, tt.required))
		})
	}
}
