// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/auth"
	"github.com/gidl59/pay4you-cards-luxury4/internal/middleware"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/response"
	authUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConnectionCloser drops live connections opened with a credential.
type ConnectionCloser interface {
	DisconnectCredential(credentialID, reason string)
}

type AuthHandler struct {
	authService  *authUsecase.AuthService
	cookieSecure bool
	connections  ConnectionCloser
	logger       *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, cookieSecure bool, connections ConnectionCloser, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieSecure: cookieSecure,
		connections:  connections,
		logger:       logger,
	}
}

// ========== Login ==========

// Login accepts the shared secret as JSON or as a form field
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "login failed", err)
		return
	}

	credential := loginResp.SessionID
	if loginResp.Mode == auth.ModeToken {
		credential = loginResp.Token
	}
	h.setCookie(c, credential, time.Until(loginResp.ExpiresAt))

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// ========== Logout ==========

// Logout ends the current session or revokes the current token
func (h *AuthHandler) Logout(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	if err := h.authService.Logout(c.Request.Context(), principal); err != nil {
		h.logger.Error("logout failed", zap.String("mode", string(principal.Mode)), zap.Error(err))
		response.FromError(c, "logout failed", err)
		return
	}

	h.setCookie(c, "", -1)
	if h.connections != nil {
		h.connections.DisconnectCredential(principal.CredentialID, "logout")
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// GetMe describes the authenticated admin
func (h *AuthHandler) GetMe(c *gin.Context) {
	response.Success(c, http.StatusOK, "authenticated", middleware.MustGetPrincipal(c))
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", h.cookieSecure, true)
}
