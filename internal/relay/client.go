package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers are the largest
	// messages on the wire and fit comfortably.
	maxMessageSize = 64 * 1024
)

// Client is a wrapper for a single websocket connection (a participant).
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	// ID is the participant ID, supplied by the client on join. Empty
	// until the join message arrives.
	ID string

	// Name is the participant's display name.
	Name string

	// RoomID is the ID of the room the client has joined.
	RoomID string

	// Send is a buffered channel for all outbound messages. The hub
	// writes to it; WritePump drains it onto the websocket.
	Send chan *protocol.Message

	// closed records that Send has been closed. Hub goroutine only.
	closed bool
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. All reads
// happen from this goroutine so there is at most one reader per
// connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read failed", "err", err)
			}
			break
		}

		c.Hub.Inbound <- &ClientMessage{Client: c, Msg: &msg}
	}
}

// WritePump pumps messages from the hub to the websocket connection and
// keeps the connection alive with periodic pings. All writes happen from
// this goroutine so there is at most one writer per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				slog.Debug("websocket write failed", "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver queues a message for the client, dropping it if the client's
// send buffer is full (a stalled client must not stall the hub).
func (c *Client) deliver(msg *protocol.Message) {
	select {
	case c.Send <- msg:
	default:
		slog.Warn("dropping message for slow client", "participant", c.ID, "type", msg.Type)
	}
}
