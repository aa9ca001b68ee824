package signaling

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ishaan-arora-1/classroom-live/internal/dns"
	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// Reconnect policy: a fixed delay with a hard attempt cap and no
	// jitter. Deliberately simple; the relay resends a full snapshot on
	// rejoin, so a reconnecting client needs no message-sequence state.
	ReconnectDelay       = 3000 * time.Millisecond
	MaxReconnectAttempts = 5
)

var (
	// ErrRelayUnavailable is returned when every connection attempt to
	// the relay has been exhausted.
	ErrRelayUnavailable = errors.New("relay unavailable")

	// ErrClientClosed is returned when the client was closed while
	// connecting.
	ErrClientClosed = errors.New("signaling client closed")
)

// EventKind classifies connectivity events.
type EventKind int

const (
	// EventConnected fires on the initial connect and on every silent
	// recovery after a drop.
	EventConnected EventKind = iota

	// EventReconnecting fires before each reconnect attempt.
	EventReconnecting

	// EventDisconnected is terminal: all reconnect attempts failed.
	EventDisconnected
)

// Event is a connectivity state change surfaced to the UI.
type Event struct {
	Kind    EventKind
	Attempt int
}

// Client manages the WebSocket connection to the relay. Delivery is
// at-most-once: Send drops messages silently while the connection is
// down, and the relay's snapshot-on-join heals whatever was missed.
type Client struct {
	serverURL string
	dialer    *websocket.Dialer

	incoming chan *protocol.Message
	outgoing chan *protocol.Message
	events   chan Event
	done     chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	open   bool
	closed bool
	join   *protocol.Message

	incomingOnce sync.Once
	closeOnce    sync.Once

	// Overridable in tests; production uses the package constants.
	reconnectDelay time.Duration
	maxAttempts    int
}

// NewClient creates a new signaling client for the given websocket URL.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL:      serverURL,
		dialer:         newDialer(),
		incoming:       make(chan *protocol.Message, 32),
		outgoing:       make(chan *protocol.Message, 32),
		events:         make(chan Event, 16),
		done:           make(chan struct{}),
		reconnectDelay: ReconnectDelay,
		maxAttempts:    MaxReconnectAttempts,
	}
}

// newDialer builds a dialer that resolves the relay host through the
// DNS-fallback lookup before dialing.
func newDialer() *websocket.Dialer {
	dialer := *websocket.DefaultDialer
	dialer.NetDial = func(network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		resolvedIP, err := dns.Lookup(host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}

		return net.Dial(network, net.JoinHostPort(resolvedIP, port))
	}
	return &dialer
}

// SetJoin records the join announcement for this participant. It is sent
// by the caller after Connect and resent automatically after every
// reconnect so the relay can resync the room snapshot.
func (c *Client) SetJoin(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.join = msg
}

// Connect establishes the WebSocket connection, retrying with the fixed
// delay up to the attempt cap. After exhaustion it returns
// ErrRelayUnavailable.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := url.Parse(c.serverURL); err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.reconnectDelay):
			case <-ctx.Done():
				return ctx.Err()
			case <-c.done:
				return ErrClientClosed
			}
		}

		conn, _, err := c.dialer.DialContext(ctx, c.serverURL, nil)
		if err == nil {
			c.startSession(conn)
			c.emit(Event{Kind: EventConnected})
			return nil
		}
		lastErr = err
	}

	c.closeIncoming()
	return fmt.Errorf("%w: %v", ErrRelayUnavailable, lastErr)
}

// startSession takes ownership of a fresh connection and starts its
// pumps. Each session gets its own quit channel so a dead connection's
// write pump cannot outlive it.
func (c *Client) startSession(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.mu.Lock()
	if c.closed {
		// Closed while the dial was in flight; do not start pumps on
		// a connection nobody will tear down.
		c.mu.Unlock()
		conn.Close()
		c.closeIncoming()
		return
	}
	c.conn = conn
	c.open = true
	c.mu.Unlock()

	quit := make(chan struct{})
	go c.writePump(conn, quit)
	go c.readPump(conn, quit)
}

// readPump reads messages from one connection until it fails, then hands
// off to the reconnect loop (unless the caller closed the client).
func (c *Client) readPump(conn *websocket.Conn, quit chan struct{}) {
	defer close(quit)

	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		select {
		case c.incoming <- &msg:
		case <-c.done:
			c.closeIncoming()
			return
		}
	}

	conn.Close()

	c.mu.Lock()
	c.open = false
	closed := c.closed
	c.mu.Unlock()

	if closed {
		// readPump is the only sender on incoming, so closing it here
		// cannot race a send.
		c.closeIncoming()
		return
	}
	go c.reconnect()
}

// writePump writes outbound messages and periodic pings to one
// connection.
func (c *Client) writePump(conn *websocket.Conn, quit chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.outgoing:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-quit:
			return

		case <-c.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// reconnect redials with the fixed delay, giving up after the attempt
// cap. Recovery is transparent: the join announcement is resent so the
// relay pushes a fresh snapshot.
func (c *Client) reconnect() {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-time.After(c.reconnectDelay):
		case <-c.done:
			// The caller closed the client mid-reconnect. No pump is
			// running, so closing incoming falls to us.
			c.closeIncoming()
			return
		}

		c.emit(Event{Kind: EventReconnecting, Attempt: attempt})

		conn, _, err := c.dialer.Dial(c.serverURL, nil)
		if err != nil {
			continue
		}

		c.startSession(conn)
		c.resendJoin()
		c.emit(Event{Kind: EventConnected, Attempt: attempt})
		return
	}

	c.emit(Event{Kind: EventDisconnected})
	c.closeIncoming()
}

func (c *Client) resendJoin() {
	c.mu.Lock()
	join := c.join
	c.mu.Unlock()

	if join != nil {
		c.Send(join)
	}
}

// Send queues a message for the relay. It fails silently when the
// connection is not open; callers must tolerate at-most-once delivery.
func (c *Client) Send(msg *protocol.Message) {
	c.mu.Lock()
	open := c.open && !c.closed
	c.mu.Unlock()

	if !open {
		return
	}

	select {
	case c.outgoing <- msg:
	default:
	}
}

// Incoming returns the channel for receiving messages. It is closed when
// the client is closed or reconnection is exhausted.
func (c *Client) Incoming() <-chan *protocol.Message {
	return c.incoming
}

// Events returns the connectivity event channel.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

func (c *Client) closeIncoming() {
	c.incomingOnce.Do(func() { close(c.incoming) })
}

// Close closes the connection and cleans up. Safe to call multiple
// times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.open = false
		conn := c.conn
		c.mu.Unlock()

		close(c.done)
		if conn != nil {
			// The read pump notices the dead connection and closes
			// the incoming channel on its way out.
			conn.Close()
		} else {
			c.closeIncoming()
		}
	})
}
