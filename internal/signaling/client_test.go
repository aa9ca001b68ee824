package signaling

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// testRelay is a minimal relay stand-in: it accepts websocket upgrades
// and exposes each connection to the test.
type testRelay struct {
	server *httptest.Server
	conns  chan *websocket.Conn
	dials  atomic.Int32
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()
	r := &testRelay{conns: make(chan *websocket.Conn, 8)}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.dials.Add(1)
		conn, err := testUpgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.conns <- conn
	}))
	t.Cleanup(r.server.Close)
	return r
}

func (r *testRelay) wsURL() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http")
}

func (r *testRelay) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-r.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection arrived")
		return nil
	}
}

func newTestClient(url string) *Client {
	c := NewClient(url)
	c.reconnectDelay = 10 * time.Millisecond
	return c
}

func waitEvent(t *testing.T, c *Client, want EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("event %v never arrived", want)
		}
	}
}

func TestClientRoundTrip(t *testing.T) {
	relay := newTestRelay(t)
	c := newTestClient(relay.wsURL())
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	waitEvent(t, c, EventConnected)
	serverConn := relay.accept(t)

	join := protocol.NewMessage(protocol.TypeJoin, protocol.Participant{ID: "self", Name: "Me"})
	join.Room = "math-101"
	c.SetJoin(join)
	c.Send(join)

	var got protocol.Message
	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := serverConn.ReadJSON(&got); err != nil {
		t.Fatalf("server read: %v", err)
	}
	if got.Type != protocol.TypeJoin || got.Room != "math-101" {
		t.Errorf("server received %+v, want the join message", got)
	}

	reply := protocol.NewMessage(protocol.TypeSeatLeft, nil)
	reply.Seat = "seat-1-1"
	if err := serverConn.WriteJSON(reply); err != nil {
		t.Fatalf("server write: %v", err)
	}

	select {
	case msg := <-c.Incoming():
		if msg.Type != protocol.TypeSeatLeft || msg.Seat != "seat-1-1" {
			t.Errorf("received %+v, want the seat_left message", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relayed message never arrived")
	}
}

func TestConnectExhaustsAttempts(t *testing.T) {
	// The handler never upgrades, so every dial fails the handshake.
	var dials atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		dials.Add(1)
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient("ws" + strings.TrimPrefix(server.URL, "http"))
	defer c.Close()

	err := c.Connect(context.Background())
	if !errors.Is(err, ErrRelayUnavailable) {
		t.Fatalf("Connect() error = %v, want %v", err, ErrRelayUnavailable)
	}
	if n := dials.Load(); n != MaxReconnectAttempts {
		t.Errorf("dial attempts = %d, want %d", n, MaxReconnectAttempts)
	}

	// Exhaustion is terminal: the incoming channel is closed.
	select {
	case _, ok := <-c.Incoming():
		if ok {
			t.Error("incoming delivered a message, want closed channel")
		}
	case <-time.After(time.Second):
		t.Error("incoming channel not closed after exhaustion")
	}
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	relay := newTestRelay(t)
	c := newTestClient(relay.wsURL())
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	waitEvent(t, c, EventConnected)

	join := protocol.NewMessage(protocol.TypeJoin, protocol.Participant{ID: "self", Name: "Me"})
	join.Room = "math-101"
	c.SetJoin(join)

	// The relay drops the connection.
	relay.accept(t).Close()
	waitEvent(t, c, EventReconnecting)
	waitEvent(t, c, EventConnected)

	// Recovery resends the join so the relay pushes a fresh snapshot.
	second := relay.accept(t)
	var got protocol.Message
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := second.ReadJSON(&got); err != nil {
		t.Fatalf("read after reconnect: %v", err)
	}
	if got.Type != protocol.TypeJoin {
		t.Errorf("first message after reconnect = %q, want join", got.Type)
	}
}

func TestClientReconnectExhaustion(t *testing.T) {
	relay := newTestRelay(t)
	c := newTestClient(relay.wsURL())
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	serverConn := relay.accept(t)

	// Take the relay away entirely, then drop the connection.
	relay.server.Close()
	serverConn.Close()

	waitEvent(t, c, EventDisconnected)

	select {
	case _, ok := <-c.Incoming():
		if ok {
			t.Error("incoming delivered a message, want closed channel")
		}
	case <-time.After(time.Second):
		t.Error("incoming channel not closed after exhaustion")
	}
}

func TestCloseDuringReconnectDelay(t *testing.T) {
	relay := newTestRelay(t)
	c := newTestClient(relay.wsURL())
	c.reconnectDelay = 5 * time.Second

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	waitEvent(t, c, EventConnected)

	// Drop the connection so the client enters its reconnect wait,
	// then quit before the delay elapses.
	relay.accept(t).Close()
	time.Sleep(50 * time.Millisecond)
	c.Close()

	select {
	case _, ok := <-c.Incoming():
		if ok {
			t.Error("incoming delivered a message, want closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("incoming channel not closed after Close during reconnect")
	}
}

func TestClientClose(t *testing.T) {
	relay := newTestRelay(t)
	c := newTestClient(relay.wsURL())

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	relay.accept(t)

	c.Close()
	c.Close() // idempotent

	// Send after close is a silent no-op.
	c.Send(protocol.NewMessage(protocol.TypeLeaveSeat, nil))

	select {
	case _, ok := <-c.Incoming():
		if ok {
			t.Error("incoming delivered a message, want closed channel")
		}
	case <-time.After(time.Second):
		t.Error("incoming channel not closed after Close")
	}
}

func TestCloseBeforeConnect(t *testing.T) {
	c := newTestClient("ws://127.0.0.1:1/ws")
	c.Close()

	select {
	case _, ok := <-c.Incoming():
		if ok {
			t.Error("incoming delivered a message, want closed channel")
		}
	default:
		t.Error("incoming channel not closed")
	}
}
