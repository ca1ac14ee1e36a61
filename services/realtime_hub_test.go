package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *RealtimeHub, uid string) *websocket.Conn {
	t.Helper()

	registered := make(chan struct{}, 1)
	upgr := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgr.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(&WSClient{UID: uid, Conn: conn})
		registered <- struct{}{}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("client never registered with the hub")
	}
	return conn
}

func TestRealtimeHub_BroadcastsToOwner(t *testing.T) {
	t.Parallel()
	hub := NewRealtimeHub()
	conn := dialHub(t, hub, "user-1")

	hub.BroadcastDraftEvent("user-1", DraftCompletedEvent, "draft-1")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]string
	require.NoError(t, json.Unmarshal(raw, &msg))
	require.Equal(t, DraftCompletedEvent, msg["kind"])
	require.Equal(t, "draft-1", msg["draftId"])
}

func TestRealtimeHub_ConcurrentWritersSerialized(t *testing.T) {
	t.Parallel()
	hub := NewRealtimeHub()
	conn := dialHub(t, hub, "user-1")

	// gorilla panics on concurrent writes to one connection; the client's
	// write lock must serialize simultaneous broadcasts
	const writers = 16
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			hub.BroadcastDraftEvent("user-1", DraftCompletedEvent, "draft-1")
		}()
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for i := 0; i < writers; i++ {
		_, _, err := conn.ReadMessage()
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestRealtimeHub_DoesNotLeakAcrossUsers(t *testing.T) {
	t.Parallel()
	hub := NewRealtimeHub()
	conn := dialHub(t, hub, "user-1")

	hub.BroadcastDraftEvent("user-2", DraftFailedEvent, "draft-2")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "no message should arrive for another user's draft")
}
