// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	wstypes "github.com/gidl59/pay4you-cards-luxury4/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans committed record changes out to connected admin consoles.
type Hub struct {
	// Registered clients by credential id (session id or token id)
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	routes  *consoleRoutes
	cardURL func(address string) string
	logger  *zap.Logger
}

type BroadcastMessage struct {
	// CredentialIDs limits delivery; nil means every client
	CredentialIDs []string
	Channel       wstypes.ChannelType
	Message       *wstypes.WSMessage
}

// NewHub builds a hub. cardURL, when set, adds the public card URL to
// record events.
func NewHub(cardURL func(address string) string, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		routes:     newConsoleRoutes(),
		cardURL:    cardURL,
		logger:     logger,
	}
}

// RegisterHandler routes the handler's console requests to it.
func (h *Hub) RegisterHandler(handler MessageHandler) error {
	return h.routes.add(handler)
}

// HandleClientMessage dispatches to a registered handler. handled is false
// when no handler claims the event type.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (handled bool, err error) {
	handler, exists := h.routes.lookup(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Attach registers an upgraded connection and starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn, auth *ClientAuth) (*Client, error) {
	client := NewClient(h, conn, auth)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil, ErrHubClosed
	}

	go client.WritePump()
	go client.ReadPump()
	return client, nil
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.credentialID] == nil {
		h.clients[client.credentialID] = make(map[*Client]bool)
	}
	h.clients[client.credentialID][client] = true
	for _, channel := range wstypes.DefaultChannels {
		client.Subscribe(channel)
	}

	h.logger.Info("websocket client connected",
		zap.String("subject", client.subject),
		zap.String("mode", client.mode),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"subject":  client.subject,
		"mode":     client.mode,
		"channels": wstypes.DefaultChannels,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.credentialID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.credentialID)
			}

			h.logger.Info("websocket client disconnected",
				zap.String("subject", client.subject),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver := func(clients map[*Client]bool) {
		for client := range clients {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}

	if msg.CredentialIDs == nil {
		for _, clients := range h.clients {
			deliver(clients)
		}
		return
	}
	for _, id := range msg.CredentialIDs {
		deliver(h.clients[id])
	}
}

// AgentChanged queues a record event. It never blocks the mutation that
// produced it: events are dropped when the queue is full.
func (h *Hub) AgentChanged(event agent.ChangeEvent) {
	data := wstypes.AgentEventData{Address: event.Address}
	if event.Agent != nil {
		data.Agent = event.Agent
	}
	if h.cardURL != nil {
		data.URL = h.cardURL(event.Address)
	}

	h.enqueue(&BroadcastMessage{
		Channel: wstypes.ChannelAgents,
		Message: wstypes.NewMessage(eventTypeFor(event.Kind), data),
	})
}

// DisconnectCredential closes every connection opened with a credential,
// typically after logout.
func (h *Hub) DisconnectCredential(credentialID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[credentialID]
	if !ok {
		return
	}

	msg := wstypes.NewMessage(wstypes.EventTypeDisconnected, map[string]interface{}{
		"reason": reason,
	})
	for client := range clients {
		client.SendMessage(msg)
		client.Close()
	}
	delete(h.clients, credentialID)
	h.logger.Info("disconnected websocket clients", zap.String("reason", reason))
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event", zap.String("type", string(msg.Message.Type)))
	}
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, id)
	}
}

func eventTypeFor(kind agent.ChangeKind) wstypes.EventType {
	switch kind {
	case agent.ChangeCreated:
		return wstypes.EventTypeAgentCreated
	case agent.ChangeDeleted:
		return wstypes.EventTypeAgentDeleted
	default:
		return wstypes.EventTypeAgentUpdated
	}
}
