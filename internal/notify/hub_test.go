package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T, inbound InboundHandler) (*Hub, string) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimPrefix(r.URL.Path, "/ws/")
		_ = hub.Serve(w, r, sessionID, inbound, nil)
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestNotifyReachesOnlyTheSession(t *testing.T) {
	hub, base := startHub(t, nil)
	a := dial(t, base+"a")
	b := dial(t, base+"b")

	require.Eventually(t, func() bool {
		return hub.ClientCount("a") == 1 && hub.ClientCount("b") == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Notify("a", "notice", map[string]string{"title": "hello"})
	hub.Notify("b", "state", map[string]string{"status": "idle"})

	msg := readMessage(t, a)
	assert.Equal(t, "notice", msg.Type)
	assert.JSONEq(t, `{"title":"hello"}`, string(msg.Data))

	msg = readMessage(t, b)
	assert.Equal(t, "state", msg.Type)
}

func TestOpenSendsURL(t *testing.T) {
	hub, base := startHub(t, nil)
	conn := dial(t, base+"s")
	require.Eventually(t, func() bool { return hub.ClientCount("s") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Open(context.Background(), "s", "https://www.google.com/maps/dir/?api=1"))

	msg := readMessage(t, conn)
	assert.Equal(t, MessageOpenURL, msg.Type)
	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1", body["url"])
}

func TestInboundMessages(t *testing.T) {
	got := make(chan Message, 1)
	_, base := startHub(t, func(sessionID string, msg Message) {
		if sessionID == "in" {
			got <- msg
		}
	})
	conn := dial(t, base+"in")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, conn.WriteJSON(Message{Type: "visibility", Data: json.RawMessage(`{"hidden":true}`)}))

	select {
	case msg := <-got:
		assert.Equal(t, "visibility", msg.Type)
		assert.JSONEq(t, `{"hidden":true}`, string(msg.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("inbound message not delivered")
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, base := startHub(t, nil)
	conn := dial(t, base+"gone")
	require.Eventually(t, func() bool { return hub.ClientCount("gone") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount("gone") == 0 }, 2*time.Second, 10*time.Millisecond)

	// Notifying a session without clients is a no-op.
	hub.Notify("gone", "notice", nil)
}
