// internal/websocket/handler.go
package websocket

import (
	"context"
	"fmt"
	"sync"

	wstypes "github.com/gidl59/pay4you-cards-luxury4/internal/domain/websocket"
)

// MessageHandler answers admin console requests that the client loop does
// not handle itself, such as agent:list and agent:get.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error
	SupportedEvents() []wstypes.EventType
}

// builtinEvents are answered by Client.handleMessage and cannot be claimed.
var builtinEvents = map[wstypes.EventType]bool{
	wstypes.EventTypePing:        true,
	wstypes.EventTypeSubscribe:   true,
	wstypes.EventTypeUnsubscribe: true,
}

// consoleRoutes maps a console request type to the handler that owns it.
type consoleRoutes struct {
	mu     sync.RWMutex
	byType map[wstypes.EventType]MessageHandler
}

func newConsoleRoutes() *consoleRoutes {
	return &consoleRoutes{byType: make(map[wstypes.EventType]MessageHandler)}
}

// add claims every event the handler supports. Nothing is registered when
// one of them is built in or already owned.
func (r *consoleRoutes) add(handler MessageHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := handler.SupportedEvents()
	for _, ev := range events {
		if builtinEvents[ev] {
			return fmt.Errorf("event %q is handled by the client loop", ev)
		}
		if _, taken := r.byType[ev]; taken {
			return fmt.Errorf("event %q already has a handler", ev)
		}
	}
	for _, ev := range events {
		r.byType[ev] = handler
	}
	return nil
}

func (r *consoleRoutes) lookup(ev wstypes.EventType) (MessageHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.byType[ev]
	return handler, ok
}
