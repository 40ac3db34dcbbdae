// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Record events (server -> client)
	EventTypeAgentCreated EventType = "agent:created"
	EventTypeAgentUpdated EventType = "agent:updated"
	EventTypeAgentDeleted EventType = "agent:deleted"

	// Record queries (client -> server)
	EventTypeAgentList EventType = "agent:list"
	EventTypeAgentGet  EventType = "agent:get"

	// Session events
	EventTypeSessionExpired EventType = "session:expired"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// ChannelType names a stream clients can subscribe to
type ChannelType string

const (
	ChannelAgents ChannelType = "agents"
	ChannelSystem ChannelType = "system"
)

// DefaultChannels are subscribed on connect.
var DefaultChannels = []ChannelType{ChannelAgents, ChannelSystem}

func (c ChannelType) Valid() bool {
	return c == ChannelAgents || c == ChannelSystem
}

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// AgentEventData describes a committed record mutation. Agent is nil for
// deletions.
type AgentEventData struct {
	Address string      `json:"address"`
	URL     string      `json:"url,omitempty"`
	Agent   interface{} `json:"agent,omitempty"`
}

// AgentRequest addresses a single record in client queries.
type AgentRequest struct {
	Address string `json:"address"`
}

// SessionEventData for session events
type SessionEventData struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// NewMessage stamps a message with the current time and a sortable id.
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// DecodeData re-decodes the loosely typed Data field into target.
func (m *WSMessage) DecodeData(target interface{}) error {
	if m.Data == nil {
		return nil
	}
	raw, err := json.Marshal(m.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
