// internal/websocket/handler/agents.go
package handler

import (
	"context"
	"fmt"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	wstypes "github.com/gidl59/pay4you-cards-luxury4/internal/domain/websocket"
	ws "github.com/gidl59/pay4you-cards-luxury4/internal/websocket"
)

// AgentReader is the read side of the agent service.
type AgentReader interface {
	List(ctx context.Context) (*agent.AgentListResponse, error)
	Get(ctx context.Context, address string) (*agent.Agent, error)
}

// AgentHandler answers record queries over the admin socket, so a console
// can refresh after an event without a separate HTTP round trip.
type AgentHandler struct {
	agents AgentReader
}

func NewAgentHandler(agents AgentReader) *AgentHandler {
	return &AgentHandler{agents: agents}
}

// SupportedEvents returns events this handler supports
func (h *AgentHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeAgentList,
		wstypes.EventTypeAgentGet,
	}
}

func (h *AgentHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeAgentList:
		return h.handleList(ctx, client)

	case wstypes.EventTypeAgentGet:
		return h.handleGet(ctx, client, msg)

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

func (h *AgentHandler) handleList(ctx context.Context, client *ws.Client) error {
	list, err := h.agents.List(ctx)
	if err != nil {
		return err
	}
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeAgentList, list))
	return nil
}

func (h *AgentHandler) handleGet(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req wstypes.AgentRequest
	if err := msg.DecodeData(&req); err != nil {
		return fmt.Errorf("invalid agent request: %w", err)
	}
	if req.Address == "" {
		return fmt.Errorf("address is required")
	}

	a, err := h.agents.Get(ctx, req.Address)
	if err != nil {
		return err
	}
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeAgentGet, wstypes.AgentEventData{
		Address: a.Address,
		Agent:   a,
	}))
	return nil
}
