// internal/middleware/helpers.go
package middleware

import (
	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

// GetPrincipal returns the authenticated admin set by Auth
func GetPrincipal(c *gin.Context) (*auth.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok
}

// MustGetPrincipal gets the principal from context or panics
func MustGetPrincipal(c *gin.Context) *auth.Principal {
	p, ok := GetPrincipal(c)
	if !ok {
		panic("admin principal not found in context")
	}
	return p
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, ok := GetPrincipal(c)
	return ok
}
