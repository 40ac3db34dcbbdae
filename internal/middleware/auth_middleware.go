// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/response"
	"github.com/gidl59/pay4you-cards-luxury4/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionCookie holds the admin session id in session mode and the signed
// token in token mode when the client prefers cookies.
const SessionCookie = "admin_session"

const principalKey = "admin_principal"

type AuthMiddleware struct {
	authService *auth.AuthService
	logger      *zap.Logger
}

func NewAuthMiddleware(authService *auth.AuthService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// Auth rejects the request unless it carries a valid admin credential
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := ExtractCredential(c)
		if credential == "" {
			response.Error(c, http.StatusUnauthorized, "authentication required", nil)
			return
		}

		principal, err := m.authService.Authenticate(c.Request.Context(), credential)
		if err != nil {
			status := response.StatusFor(err)
			if status == http.StatusInternalServerError {
				m.logger.Error("failed to authenticate admin", zap.Error(err))
				response.Error(c, status, "authentication unavailable", nil)
				return
			}
			response.Error(c, http.StatusUnauthorized, "invalid or expired credentials", err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// AdminOnly returns middlewares for admin-only routes
func (m *AuthMiddleware) AdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{m.Auth()}
}

// ExtractCredential reads the Bearer header, then the session cookie, then
// the token query parameter used by websocket clients.
func ExtractCredential(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}

	if c.IsWebsocket() {
		return c.Query("token")
	}

	return ""
}
