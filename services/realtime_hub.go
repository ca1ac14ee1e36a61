package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	DraftCompletedEvent = "draft.completed"
	DraftFailedEvent    = "draft.failed"
)

type WSClient struct {
	UID  string
	Conn *websocket.Conn

	writeMu sync.Mutex
}

// WriteMessage serializes writes to the connection; gorilla/websocket allows
// only one writer at a time, and broadcasts race the keepalive pings.
func (c *WSClient) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// RealtimeHub fans draft lifecycle events out to every websocket connection
// the owning user has open. Clients that prefer polling can ignore it.
type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]struct{}
}

func NewRealtimeHub() *RealtimeHub {
	return &RealtimeHub{clients: make(map[string]map[*WSClient]struct{})}
}

func (h *RealtimeHub) Register(c *WSClient) {
	h.mu.Lock()
	if h.clients[c.UID] == nil {
		h.clients[c.UID] = make(map[*WSClient]struct{})
	}
	h.clients[c.UID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.UID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UID)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

func (h *RealtimeHub) BroadcastDraftEvent(uid, kind, draftID string) {
	msg, _ := json.Marshal(map[string]string{
		"kind":    kind,
		"draftId": draftID,
	})
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[uid] {
		_ = c.WriteMessage(websocket.TextMessage, msg)
	}
}
