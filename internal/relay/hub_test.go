package relay

import (
	"context"
	"testing"

	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
)

// Hub handlers run on a single goroutine in production; tests drive
// dispatch directly on the test goroutine for the same serialization.

func joinHub(t *testing.T, h *Hub, room, id, name string) *Client {
	t.Helper()
	c := &Client{Hub: h, Send: make(chan *protocol.Message, 16)}
	msg := protocol.NewMessage(protocol.TypeJoin, protocol.Participant{ID: id, Name: name})
	msg.Room = room
	h.dispatch(c, msg)
	return c
}

func recv(t *testing.T, c *Client, wantType string) *protocol.Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		if msg.Type != wantType {
			t.Fatalf("received %q, want %q", msg.Type, wantType)
		}
		return msg
	default:
		t.Fatalf("no message queued, want %q", wantType)
		return nil
	}
}

func assertIdle(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message %q", msg.Type)
	default:
	}
}

func TestHubJoin(t *testing.T) {
	h := NewHub(5, 8, nil)

	alice := joinHub(t, h, "math-101", "alice", "Alice")
	snap := recv(t, alice, protocol.TypeParticipantsList)

	var s protocol.Snapshot
	if err := snap.DecodePayload(&s); err != nil {
		t.Fatalf("snapshot payload: %v", err)
	}
	if s.Rows != 5 || s.Cols != 8 {
		t.Errorf("grid = %dx%d, want 5x8", s.Rows, s.Cols)
	}
	if len(s.Participants) != 1 || s.Participants[0].ID != "alice" {
		t.Errorf("snapshot participants = %+v, want just alice", s.Participants)
	}

	bob := joinHub(t, h, "math-101", "bob", "Bob")
	recv(t, bob, protocol.TypeParticipantsList)

	joined := recv(t, alice, protocol.TypeParticipantJoined)
	if joined.From != "bob" {
		t.Errorf("participant_joined from %q, want bob", joined.From)
	}
	// The joiner does not hear about themselves.
	assertIdle(t, bob)
}

func TestHubSeatRace(t *testing.T) {
	h := NewHub(5, 8, nil)
	alice := joinHub(t, h, "math-101", "alice", "Alice")
	bob := joinHub(t, h, "math-101", "bob", "Bob")
	drainAll(alice, bob)

	claim := func(c *Client, seat string) {
		msg := &protocol.Message{Type: protocol.TypeUpdateSeat, Seat: seat}
		h.dispatch(c, msg)
	}

	// Alice's claim arrives first; same-seat claim from Bob loses.
	claim(alice, "seat-2-2")
	claim(bob, "seat-2-2")

	for _, c := range []*Client{alice, bob} {
		won := recv(t, c, protocol.TypeSeatUpdated)
		if won.From != "alice" || won.Seat != "seat-2-2" {
			t.Errorf("seat_updated from=%q seat=%q, want alice seat-2-2", won.From, won.Seat)
		}
	}

	lost := recv(t, bob, protocol.TypeSeatOccupied)
	if lost.Seat != "seat-2-2" {
		t.Errorf("seat_occupied seat = %q, want seat-2-2", lost.Seat)
	}
	var holder protocol.Participant
	if err := lost.DecodePayload(&holder); err != nil || holder.ID != "alice" {
		t.Errorf("seat_occupied holder = %+v (err %v), want alice", holder, err)
	}
	// The loser's rejection is private.
	assertIdle(t, alice)
}

func TestHubInvalidSeatClaim(t *testing.T) {
	h := NewHub(5, 8, nil)
	alice := joinHub(t, h, "math-101", "alice", "Alice")
	bob := joinHub(t, h, "math-101", "bob", "Bob")
	drainAll(alice, bob)

	// Claims for seats outside the grid or with garbage IDs are
	// dropped; the hub keeps serving the room.
	for _, seat := range []string{"seat-99-99", "seat-5-0", "lectern", ""} {
		h.dispatch(alice, &protocol.Message{Type: protocol.TypeUpdateSeat, Seat: seat})
		assertIdle(t, alice)
		assertIdle(t, bob)
	}

	h.dispatch(alice, &protocol.Message{Type: protocol.TypeUpdateSeat, Seat: "seat-1-1"})
	won := recv(t, alice, protocol.TypeSeatUpdated)
	if won.From != "alice" || won.Seat != "seat-1-1" {
		t.Errorf("seat_updated from=%q seat=%q after invalid claims", won.From, won.Seat)
	}
}

func TestHubSeatRelease(t *testing.T) {
	h := NewHub(5, 8, nil)
	alice := joinHub(t, h, "math-101", "alice", "Alice")
	bob := joinHub(t, h, "math-101", "bob", "Bob")

	h.dispatch(alice, &protocol.Message{Type: protocol.TypeUpdateSeat, Seat: "seat-0-0"})
	drainAll(alice, bob)

	h.dispatch(alice, &protocol.Message{Type: protocol.TypeLeaveSeat})
	left := recv(t, bob, protocol.TypeSeatLeft)
	if left.From != "alice" || left.Seat != "seat-0-0" {
		t.Errorf("seat_left from=%q seat=%q, want alice seat-0-0", left.From, left.Seat)
	}

	// Releasing while standing announces nothing.
	h.dispatch(alice, &protocol.Message{Type: protocol.TypeLeaveSeat})
	assertIdle(t, bob)
}

func TestHubDisconnectVacatesSeat(t *testing.T) {
	h := NewHub(5, 8, nil)
	alice := joinHub(t, h, "math-101", "alice", "Alice")
	bob := joinHub(t, h, "math-101", "bob", "Bob")
	h.dispatch(alice, &protocol.Message{Type: protocol.TypeUpdateSeat, Seat: "seat-1-1"})
	drainAll(alice, bob)

	h.handleLeave(alice)
	h.closeClient(alice)

	left := recv(t, bob, protocol.TypeSeatLeft)
	if left.Seat != "seat-1-1" {
		t.Errorf("seat_left seat = %q, want seat-1-1", left.Seat)
	}
	gone := recv(t, bob, protocol.TypeParticipantLeft)
	if gone.From != "alice" {
		t.Errorf("participant_left from = %q, want alice", gone.From)
	}

	room := h.Rooms["math-101"]
	if _, ok := room.Participants["alice"]; ok {
		t.Error("alice still listed after disconnect")
	}
	if _, ok := room.Seats["seat-1-1"]; ok {
		t.Error("seat still held after disconnect")
	}
}

func TestHubLastLeaveDeletesRoom(t *testing.T) {
	store := NewMemoryStore()
	h := NewHub(5, 8, store)
	alice := joinHub(t, h, "math-101", "alice", "Alice")
	h.dispatch(alice, &protocol.Message{Type: protocol.TypeUpdateSeat, Seat: "seat-1-1"})

	h.handleLeave(alice)
	h.closeClient(alice)

	if _, ok := h.Rooms["math-101"]; ok {
		t.Error("empty room not deleted")
	}
	if seats, _ := store.Load(context.Background(), "math-101"); seats != nil {
		t.Errorf("snapshot survived room deletion: %v", seats)
	}
}

func TestHubRejoinReplacesConnection(t *testing.T) {
	h := NewHub(5, 8, nil)
	stale := joinHub(t, h, "math-101", "alice", "Alice")
	fresh := joinHub(t, h, "math-101", "alice", "Alice")

	if !stale.closed {
		t.Error("stale connection not closed on identity takeover")
	}
	if h.Rooms["math-101"].Participants["alice"] != fresh {
		t.Error("room does not point at the fresh connection")
	}
	recv(t, fresh, protocol.TypeParticipantsList)
}

func TestHubJoinSwitchesRoom(t *testing.T) {
	h := NewHub(5, 8, nil)
	alice := joinHub(t, h, "math-101", "alice", "Alice")
	bob := joinHub(t, h, "math-101", "bob", "Bob")
	h.dispatch(alice, &protocol.Message{Type: protocol.TypeUpdateSeat, Seat: "seat-1-1"})
	drainAll(alice, bob)

	// The same connection joins a different room.
	move := protocol.NewMessage(protocol.TypeJoin, protocol.Participant{ID: "alice", Name: "Alice"})
	move.Room = "physics-202"
	h.dispatch(alice, move)

	left := recv(t, bob, protocol.TypeSeatLeft)
	if left.Seat != "seat-1-1" {
		t.Errorf("seat_left seat = %q, want seat-1-1", left.Seat)
	}
	gone := recv(t, bob, protocol.TypeParticipantLeft)
	if gone.From != "alice" {
		t.Errorf("participant_left from = %q, want alice", gone.From)
	}

	if _, ok := h.Rooms["math-101"].Participants["alice"]; ok {
		t.Error("alice still listed in the old room")
	}
	if _, ok := h.Rooms["math-101"].Seats["seat-1-1"]; ok {
		t.Error("old seat still held after the room switch")
	}
	if _, ok := h.Rooms["physics-202"].Participants["alice"]; !ok {
		t.Error("alice missing from the new room")
	}
	recv(t, alice, protocol.TypeParticipantsList)
}

func TestHubSeatRestoredFromStore(t *testing.T) {
	store := NewMemoryStore()
	store.Save(context.Background(), "math-101", map[string]string{"seat-3-3": "alice"})

	h := NewHub(5, 8, store)
	alice := joinHub(t, h, "math-101", "alice", "Alice")

	snap := recv(t, alice, protocol.TypeParticipantsList)
	var s protocol.Snapshot
	if err := snap.DecodePayload(&s); err != nil {
		t.Fatalf("snapshot payload: %v", err)
	}
	if len(s.Participants) != 1 || s.Participants[0].Seat != "seat-3-3" {
		t.Errorf("restored snapshot = %+v, want alice back in seat-3-3", s.Participants)
	}
}

func TestHubRelaySignal(t *testing.T) {
	h := NewHub(5, 8, nil)
	alice := joinHub(t, h, "math-101", "alice", "Alice")
	bob := joinHub(t, h, "math-101", "bob", "Bob")
	drainAll(alice, bob)

	offer := protocol.NewMessage(protocol.TypeOffer, protocol.SDP{SDP: "v=0"})
	offer.To = "bob"
	h.dispatch(alice, offer)

	got := recv(t, bob, protocol.TypeOffer)
	if got.From != "alice" {
		t.Errorf("relayed offer From = %q, want alice", got.From)
	}
	assertIdle(t, alice)

	// Signals to unknown targets vanish instead of erroring.
	stray := protocol.NewMessage(protocol.TypeAnswer, protocol.SDP{SDP: "v=0"})
	stray.To = "nobody"
	h.dispatch(alice, stray)
	assertIdle(t, alice)
	assertIdle(t, bob)
}

func drainAll(clients ...*Client) {
	for _, c := range clients {
		for len(c.Send) > 0 {
			<-c.Send
		}
	}
}
