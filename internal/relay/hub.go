package relay

import (
	"context"
	"log/slog"

	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
)

// ClientMessage pairs an inbound message with the connection it arrived on.
type ClientMessage struct {
	Client *Client
	Msg    *protocol.Message
}

// Hub is the central brain of the relay. It owns all room state and is the
// sole arbiter of seat claims; clients only ever see its final answer.
type Hub struct {
	// Rooms maps room IDs to Room instances.
	Rooms map[string]*Room

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Inbound carries messages from client read pumps into the hub.
	Inbound chan *ClientMessage

	rows, cols int
	store      SnapshotStore
}

// NewHub creates a Hub whose rooms use a rows×cols seat grid, persisting
// seat snapshots to store.
func NewHub(rows, cols int, store SnapshotStore) *Hub {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Hub{
		Rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *ClientMessage, 64),
		rows:       rows,
		cols:       cols,
		store:      store,
	}
}

// Run starts the hub's main processing loop. This is the single goroutine
// that manages all room state.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// The client is not in a room yet; they join on their
			// first message.
			slog.Debug("client registered", "addr", client.Conn.RemoteAddr())

		case client := <-h.Unregister:
			h.handleLeave(client)
			h.closeClient(client)

		case cm := <-h.Inbound:
			h.dispatch(cm.Client, cm.Msg)
		}
	}
}

func (h *Hub) dispatch(client *Client, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeJoin:
		h.handleJoin(client, msg)

	case protocol.TypeUpdateSeat:
		h.handleClaim(client, msg.Seat)

	case protocol.TypeLeaveSeat:
		h.handleRelease(client)

	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		h.relaySignal(client, msg)

	default:
		// Malformed or unknown messages never crash the session.
		slog.Warn("unknown message type", "type", msg.Type, "participant", client.ID)
	}
}

// handleJoin adds a participant to a room, creating the room on first
// join. The joiner always receives a full participants_list snapshot, so a
// reconnecting client reconciles missed updates without sequence tracking.
func (h *Hub) handleJoin(client *Client, msg *protocol.Message) {
	var p protocol.Participant
	if err := msg.DecodePayload(&p); err != nil || p.ID == "" || msg.Room == "" {
		slog.Warn("malformed join", "room", msg.Room)
		return
	}

	// A connection holds one membership; joining again under another
	// room or identity is a leave plus a join.
	if client.RoomID != "" && (client.RoomID != msg.Room || (client.ID != "" && client.ID != p.ID)) {
		h.handleLeave(client)
	}

	room, ok := h.Rooms[msg.Room]
	if !ok {
		room = NewRoom(msg.Room, h.rows, h.cols)
		if seats, err := h.store.Load(context.Background(), msg.Room); err == nil && seats != nil {
			room.Seats = seats
		}
		h.Rooms[msg.Room] = room
		slog.Info("room created", "room", msg.Room)
	}

	// A rejoin under the same identity replaces the stale connection.
	if old, ok := room.Participants[p.ID]; ok && old != client {
		old.RoomID = ""
		h.closeClient(old)
		if old.Conn != nil {
			old.Conn.Close()
		}
	}

	client.ID = p.ID
	client.Name = p.Name
	client.RoomID = msg.Room
	room.Participants[p.ID] = client

	slog.Info("participant joined", "room", room.ID, "participant", p.ID, "name", p.Name)

	snapshot := protocol.NewMessage(protocol.TypeParticipantsList, room.Snapshot())
	snapshot.Room = room.ID
	client.deliver(snapshot)

	joined := protocol.NewMessage(protocol.TypeParticipantJoined, protocol.Participant{
		ID:   p.ID,
		Name: p.Name,
		Seat: room.SeatOf(p.ID),
	})
	joined.From = p.ID
	h.broadcast(room, joined, client)
}

// handleClaim arbitrates a seat claim. The winner is announced to the
// whole room; a loser is told privately so it can roll back its optimistic
// local state.
func (h *Hub) handleClaim(client *Client, seatID string) {
	room := h.roomOf(client)
	if room == nil {
		return
	}

	ok, holder := room.Claim(client.ID, seatID)
	if !ok {
		if holder == "" {
			// Not a race, just a seat that does not exist in this
			// room's grid. Drop it; there is no holder to report.
			slog.Warn("invalid seat claim", "room", room.ID, "seat", seatID, "participant", client.ID)
			return
		}
		rejected := protocol.NewMessage(protocol.TypeSeatOccupied, protocol.Participant{
			ID:   holder,
			Name: room.Participants[holder].Name,
			Seat: seatID,
		})
		rejected.Seat = seatID
		client.deliver(rejected)

		slog.Debug("seat claim rejected", "room", room.ID, "seat", seatID,
			"claimant", client.ID, "holder", holder)
		return
	}

	h.persistSeats(room)

	updated := protocol.NewMessage(protocol.TypeSeatUpdated, protocol.Participant{
		ID:   client.ID,
		Name: client.Name,
		Seat: seatID,
	})
	updated.Seat = seatID
	updated.From = client.ID
	h.broadcast(room, updated, nil)
}

func (h *Hub) handleRelease(client *Client) {
	room := h.roomOf(client)
	if room == nil {
		return
	}

	seat := room.Vacate(client.ID)
	if seat == "" {
		return
	}
	h.persistSeats(room)

	left := protocol.NewMessage(protocol.TypeSeatLeft, nil)
	left.Seat = seat
	left.From = client.ID
	h.broadcast(room, left, nil)
}

// relaySignal forwards WebRTC negotiation messages to their target. The
// relay never stores or inspects media payloads.
func (h *Hub) relaySignal(client *Client, msg *protocol.Message) {
	room := h.roomOf(client)
	if room == nil {
		return
	}

	target, ok := room.Participants[msg.To]
	if !ok {
		slog.Debug("signal target not in room", "room", room.ID, "target", msg.To)
		return
	}

	msg.From = client.ID
	target.deliver(msg)
}

func (h *Hub) handleLeave(client *Client) {
	room := h.roomOf(client)
	if room == nil {
		return
	}
	delete(room.Participants, client.ID)

	if seat := room.Vacate(client.ID); seat != "" {
		h.persistSeats(room)
		left := protocol.NewMessage(protocol.TypeSeatLeft, nil)
		left.Seat = seat
		left.From = client.ID
		h.broadcast(room, left, nil)
	}

	gone := protocol.NewMessage(protocol.TypeParticipantLeft, nil)
	gone.From = client.ID
	h.broadcast(room, gone, nil)

	slog.Info("participant left", "room", room.ID, "participant", client.ID)

	if room.Empty() {
		delete(h.Rooms, room.ID)
		if err := h.store.Delete(context.Background(), room.ID); err != nil {
			slog.Warn("failed to delete room snapshot", "room", room.ID, "err", err)
		}
		slog.Info("room deleted", "room", room.ID)
	}
}

// broadcast delivers a message to every participant in the room except
// skip (nil to include everyone).
func (h *Hub) broadcast(room *Room, msg *protocol.Message, skip *Client) {
	for _, c := range room.Participants {
		if c == skip {
			continue
		}
		c.deliver(msg)
	}
}

func (h *Hub) roomOf(client *Client) *Room {
	if client.RoomID == "" {
		return nil
	}
	room, ok := h.Rooms[client.RoomID]
	if !ok {
		return nil
	}
	return room
}

// closeClient closes the client's send channel exactly once. Both close
// sites run on the hub goroutine, so a plain flag suffices.
func (h *Hub) closeClient(client *Client) {
	if client.closed {
		return
	}
	client.closed = true
	close(client.Send)
}

func (h *Hub) persistSeats(room *Room) {
	if err := h.store.Save(context.Background(), room.ID, room.Seats); err != nil {
		slog.Warn("failed to persist seat snapshot", "room", room.ID, "err", err)
	}
}
