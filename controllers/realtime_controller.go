package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/TomMcKenna1/nutrilytics-backend/middlewares"
	"github.com/TomMcKenna1/nutrilytics-backend/services"
)

type RealtimeController struct {
	hub *services.RealtimeHub
}

func NewRealtimeController(hub *services.RealtimeHub) *RealtimeController {
	return &RealtimeController{hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // tighten behind a proxy if needed
}

// DraftsWS upgrades the connection and streams draft lifecycle events for the
// authenticated user until the client disconnects.
func (rc *RealtimeController) DraftsWS(c *gin.Context) {
	identity := middlewares.CurrentIdentity(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := &services.WSClient{UID: identity.UID, Conn: conn}
	rc.hub.Register(client)

	// ping to keep connections alive through some proxies
	go func() {
		t := time.NewTicker(25 * time.Second)
		defer t.Stop()
		for range t.C {
			if err := client.WriteMessage(websocket.PingMessage, nil); err != nil {
				rc.hub.Unregister(client)
				return
			}
		}
	}()

	// read loop ends on client close/error
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			rc.hub.Unregister(client)
			return
		}
	}
}
