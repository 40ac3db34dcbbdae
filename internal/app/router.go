// internal/app/router.go
package app

import (
	"net/http"

	agentHandler "github.com/gidl59/pay4you-cards-luxury4/internal/handlers/agent"
	authHandler "github.com/gidl59/pay4you-cards-luxury4/internal/handlers/auth"
	cardHandler "github.com/gidl59/pay4you-cards-luxury4/internal/handlers/card"
	wsHandler "github.com/gidl59/pay4you-cards-luxury4/internal/handlers/websocket"
	"github.com/gidl59/pay4you-cards-luxury4/internal/middleware"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	AgentHandler   *agentHandler.AgentHandler
	CardHandler    *cardHandler.CardHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	// ==================== Health Check ====================
	r.GET("/health", cardHandler.Health)

	// ==================== Public Cards ====================
	cards := r.Group("/card")
	{
		cards.GET("/:address", h.CardHandler.GetCard)
		cards.GET("/:address/qr", h.CardHandler.GetQR)
		cards.GET("/:address/vcard", h.CardHandler.GetVCard)
	}
	r.GET("/photos/:ref", h.CardHandler.GetPhoto)
	// records written by the first release reference uploads/<file>
	r.GET("/static/uploads/:ref", h.CardHandler.GetPhoto)

	// ==================== Admin Auth ====================
	r.POST("/admin/login", h.AuthHandler.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.POST("/logout", h.AuthHandler.Logout)
		admin.GET("/me", h.AuthHandler.GetMe)

		// ==================== WebSocket ====================
		admin.GET("/ws", h.WSHandler.HandleConnection)
		admin.GET("/ws/stats", h.WSHandler.GetStats)

		// ==================== Records ====================
		admin.GET("", h.AgentHandler.ListAgents)
		admin.POST("/new", h.AgentHandler.CreateAgent)
		admin.GET("/:address/new", h.AgentHandler.CheckAddress)
		admin.POST("/:address/new", h.AgentHandler.CreateAgent)
		admin.GET("/:address/edit", h.AgentHandler.GetAgent)
		admin.POST("/:address/edit", h.AgentHandler.UpdateAgent)
		admin.POST("/:address/delete", h.AgentHandler.DeleteAgent)
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.Error(c, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	logger.Debug("routes registered", zap.Int("count", len(r.Routes())))
}
