package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_BroadcastsToAllClients(t *testing.T) {
	hub := NewHub(DefaultHubConfig(), zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	hub.Publish(New(PostCreated, "posts", "p1", map[string]string{"title": "hello"}))

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got Event
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, PostCreated, got.Type)
		assert.Equal(t, "posts", got.Collection)
		assert.Equal(t, "p1", got.ID)
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(DefaultHubConfig(), zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_DropsSlowClient(t *testing.T) {
	cfg := DefaultHubConfig()
	cfg.SendBuffer = 1
	hub := NewHub(cfg, zerolog.Nop())

	// A registered client whose queue is never drained.
	stuck := &client{remote: "stuck", send: make(chan []byte, 1)}
	hub.clients[stuck] = struct{}{}

	hub.Publish(New(PostCreated, "posts", "p1", nil))
	assert.Equal(t, 1, hub.Clients(), "first event fits in the buffer")

	hub.Publish(New(PostCreated, "posts", "p2", nil))
	assert.Equal(t, 0, hub.Clients(), "full buffer drops the client")

	<-stuck.send
	_, open := <-stuck.send
	assert.False(t, open, "send channel closed on drop")
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(DefaultHubConfig(), zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	var p Publisher = r
	p.Publish(New(RoleCreated, "roles", "builder", nil))
	p.Publish(New(RoleDeleted, "roles", "builder", nil))

	assert.Equal(t, []Type{RoleCreated, RoleDeleted}, r.Types())
	NopPublisher{}.Publish(New(RoleCreated, "roles", "x", nil))
}
