package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumunity/messaging-api/internal/domain/event"
)

type loopbackBroker struct {
	ch chan []byte
}

func (b *loopbackBroker) Publish(_ context.Context, payload []byte) error {
	b.ch <- payload
	return nil
}

func (b *loopbackBroker) Listen(ctx context.Context, handle func([]byte)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-b.ch:
			handle(p)
		}
	}
}

type harness struct {
	hub          *Hub
	server       *httptest.Server
	connected    chan string
	disconnected chan string
	stop         context.CancelFunc
}

func newHarness(t *testing.T, broker Broker) *harness {
	t.Helper()
	h := &harness{
		hub:          NewHub(broker, []string{"*"}, zerolog.Nop()),
		connected:    make(chan string, 8),
		disconnected: make(chan string, 8),
	}
	h.hub.SetHooks(ConnectionHooks{
		OnConnect:    func(_ context.Context, userID string) { h.connected <- userID },
		OnDisconnect: func(_ context.Context, userID string) { h.disconnected <- userID },
	})
	h.hub.SetInboundHandler(func(_ context.Context, _ string, frame []byte) any {
		if strings.Contains(string(frame), "ping") {
			return Reply{Type: "pong"}
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.stop = cancel
	go h.hub.Run(ctx)

	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(func() {
		h.server.Close()
		cancel()
	})
	return h
}

func (h *harness) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHubDeliversOnlyToTargets(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.dial(t, "alice")
	waitFor(t, h.connected, "alice")
	bob := h.dial(t, "bob")
	waitFor(t, h.connected, "bob")

	require.NoError(t, h.hub.Publish(context.Background(), []string{"bob"}, event.New(event.TypeTyping, map[string]any{"typing": true})))

	got := readEvent(t, bob)
	assert.Equal(t, "typing", got["type"])

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := alice.ReadMessage()
	assert.Error(t, err, "alice must not receive bob's event")
}

func TestHubFansOutThroughBroker(t *testing.T) {
	h := newHarness(t, &loopbackBroker{ch: make(chan []byte, 4)})
	carol := h.dial(t, "carol")
	waitFor(t, h.connected, "carol")

	require.NoError(t, h.hub.Publish(context.Background(), []string{"carol"}, event.New(event.TypeMessageCreated, map[string]string{"id": "msg_1"})))

	got := readEvent(t, carol)
	assert.Equal(t, "message.created", got["type"])
}

func TestHubRepliesToInboundFrames(t *testing.T) {
	h := newHarness(t, nil)
	dave := h.dial(t, "dave")
	waitFor(t, h.connected, "dave")

	require.NoError(t, dave.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	got := readEvent(t, dave)
	assert.Equal(t, "pong", got["type"])
}

func TestHubDisconnectHookFiresOnLastConnection(t *testing.T) {
	h := newHarness(t, nil)
	first := h.dial(t, "erin")
	waitFor(t, h.connected, "erin")
	second := h.dial(t, "erin")
	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, "pong", readEvent(t, second)["type"])

	require.NoError(t, first.Close())
	select {
	case id := <-h.disconnected:
		t.Fatalf("unexpected disconnect for %s while a connection remains", id)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, second.Close())
	waitFor(t, h.disconnected, "erin")
}

func TestHubShutdownDisconnectsEveryUser(t *testing.T) {
	h := newHarness(t, nil)
	h.dial(t, "frank")
	waitFor(t, h.connected, "frank")
	h.dial(t, "gina")
	waitFor(t, h.connected, "gina")

	h.stop()

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case id := <-h.disconnected:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for disconnects, got %v", seen)
		}
	}
	assert.Equal(t, map[string]bool{"frank": true, "gina": true}, seen)

	select {
	case id := <-h.disconnected:
		t.Fatalf("duplicate disconnect for %s", id)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.alumunity.dev"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(r), "requests without Origin are allowed")

	r.Header.Set("Origin", "https://app.alumunity.dev")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(r))

	assert.True(t, originChecker([]string{"*"})(r))
}
