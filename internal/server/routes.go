package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
	"github.com/ishaan-arora-1/classroom-live/internal/relay"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// We need to check the origin, but for development, we can allow all.
	// In production, you'd check r.Header.Get("Origin") against the
	// hosting site's domain.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// It takes the hub as a dependency.
func ServeWs(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade connection", "err", err)
			return
		}

		client := &relay.Client{
			Hub:  hub,
			Conn: conn,
			// ID and RoomID are set when the join message arrives.
			Send: make(chan *protocol.Message, 256),
		}

		client.Hub.Register <- client

		// Start the client's read and write pumps in separate
		// goroutines; they own the connection from here.
		go client.WritePump()
		go client.ReadPump()
	}
}
