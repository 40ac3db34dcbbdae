package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	wstypes "github.com/gidl59/pay4you-cards-luxury4/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoHandler struct{}

func (echoHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeAgentList}
}

func (echoHandler) HandleMessage(_ context.Context, client *Client, msg *wstypes.WSMessage) error {
	client.SendMessage(wstypes.NewMessage(msg.Type, map[string]interface{}{"subject": client.Subject()}))
	return nil
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(func(addr string) string { return "https://cards.test/card/" + addr }, zap.NewNop())
	require.NoError(t, hub.RegisterHandler(echoHandler{}))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, _ = hub.Attach(conn, &ClientAuth{
			Subject:      "admin",
			CredentialID: r.URL.Query().Get("cred"),
			Mode:         "session",
		})
	}))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	msg := readMessage(t, conn)
	require.Equal(t, wstypes.EventTypeConnected, msg.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *wstypes.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := wstypes.ParseMessage(data)
	require.NoError(t, err)
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg *wstypes.WSMessage) {
	t.Helper()
	data, err := msg.ToJSON()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestHubBroadcastsAgentEvents(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?cred=s1")

	hub.AgentChanged(agent.ChangeEvent{
		Kind:    agent.ChangeCreated,
		Address: "mario-rossi",
		Agent:   &agent.Agent{Name: "Mario Rossi"},
	})

	msg := readMessage(t, conn)
	assert.Equal(t, wstypes.EventTypeAgentCreated, msg.Type)

	var data struct {
		Address string       `json:"address"`
		URL     string       `json:"url"`
		Agent   *agent.Agent `json:"agent"`
	}
	require.NoError(t, msg.DecodeData(&data))
	assert.Equal(t, "mario-rossi", data.Address)
	assert.Equal(t, "https://cards.test/card/mario-rossi", data.URL)
	require.NotNil(t, data.Agent)
	assert.Equal(t, "Mario Rossi", data.Agent.Name)

	hub.AgentChanged(agent.ChangeEvent{Kind: agent.ChangeDeleted, Address: "mario-rossi"})
	msg = readMessage(t, conn)
	assert.Equal(t, wstypes.EventTypeAgentDeleted, msg.Type)
}

func TestClientBuiltinsAndHandlers(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url+"?cred=s1")

	send(t, conn, wstypes.NewMessage(wstypes.EventTypePing, nil))
	assert.Equal(t, wstypes.EventTypePong, readMessage(t, conn).Type)

	send(t, conn, wstypes.NewMessage(wstypes.EventTypeAgentList, nil))
	msg := readMessage(t, conn)
	assert.Equal(t, wstypes.EventTypeAgentList, msg.Type)

	send(t, conn, wstypes.NewMessage("bogus", nil))
	assert.Equal(t, wstypes.EventTypeError, readMessage(t, conn).Type)
}

func TestUnsubscribedClientMissesEvents(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?cred=s1")

	send(t, conn, wstypes.NewMessage(wstypes.EventTypeUnsubscribe, wstypes.UnsubscribeRequest{
		Channels: []wstypes.ChannelType{wstypes.ChannelAgents},
	}))
	assert.Equal(t, wstypes.EventTypeUnsubscribe, readMessage(t, conn).Type)

	hub.AgentChanged(agent.ChangeEvent{Kind: agent.ChangeUpdated, Address: "x"})

	// the ping reply must be the next frame: the update was not delivered
	send(t, conn, wstypes.NewMessage(wstypes.EventTypePing, nil))
	assert.Equal(t, wstypes.EventTypePong, readMessage(t, conn).Type)
}

func TestDisconnectCredential(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?cred=s1")
	other := dial(t, url+"?cred=s2")

	require.Eventually(t, func() bool { return hub.TotalClients() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.DisconnectCredential("s1", "logout")
	assert.Equal(t, wstypes.EventTypeDisconnected, readMessage(t, conn).Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	assert.Equal(t, 1, hub.TotalClients())

	send(t, other, wstypes.NewMessage(wstypes.EventTypePing, nil))
	assert.Equal(t, wstypes.EventTypePong, readMessage(t, other).Type)
}

func TestAgentChangedDoesNotBlockWithoutRun(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.AgentChanged(agent.ChangeEvent{Kind: agent.ChangeUpdated, Address: "a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("AgentChanged blocked")
	}
}

type pingHandler struct{}

func (pingHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeAgentGet, wstypes.EventTypePing}
}

func (pingHandler) HandleMessage(context.Context, *Client, *wstypes.WSMessage) error { return nil }

func TestRegisterHandlerConflicts(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	require.NoError(t, hub.RegisterHandler(echoHandler{}))

	assert.Error(t, hub.RegisterHandler(echoHandler{}))

	// a built-in event rejects the whole handler
	assert.Error(t, hub.RegisterHandler(pingHandler{}))
	_, ok := hub.routes.lookup(wstypes.EventTypeAgentGet)
	assert.False(t, ok)

	handled, err := hub.HandleClientMessage(context.Background(), nil, wstypes.NewMessage(wstypes.EventTypeAgentGet, nil))
	assert.NoError(t, err)
	assert.False(t, handled)
}
