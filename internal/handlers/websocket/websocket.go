// internal/handlers/websocket/websocket.go
package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/middleware"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/response"
	ws "github.com/gidl59/pay4you-cards-luxury4/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler accepts upgrades from the listed origins. An empty
// list allows same-host origins only; "*" allows any origin.
func NewWebSocketHandler(hub *ws.Hub, origins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
		logger: logger,
	}
}

// HandleConnection upgrades an authenticated admin request. The route sits
// behind the admin middleware, so the principal is already resolved.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	_, err = h.hub.Attach(conn, &ws.ClientAuth{
		Subject:      principal.Subject,
		CredentialID: principal.CredentialID,
		Mode:         string(principal.Mode),
		ExpiresAt:    principal.ExpiresAt,
	})
	if err != nil {
		h.logger.Warn("websocket attach failed", zap.Error(err))
	}
}

// GetStats returns WebSocket connection statistics
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "WebSocket stats", gin.H{
		"total_connections": h.hub.TotalClients(),
		"timestamp":         time.Now().UTC(),
	})
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] || allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
