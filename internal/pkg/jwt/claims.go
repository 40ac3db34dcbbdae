// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the admin token claims
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin checks if the token was issued to the admin
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}

	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}

	return false
}
