package classroom

import (
	"log/slog"

	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
)

// State is the local participant's seating state.
type State int

const (
	Standing State = iota
	Seated
)

func (s State) String() string {
	if s == Seated {
		return "seated"
	}
	return "standing"
}

// Controller reconciles the local view of a classroom with the relay's
// authoritative state. Seat claims are optimistic: the local view updates
// immediately and rolls back if the relay rejects the claim. The relay is
// the sole arbiter of seat races; the controller never decides one
// locally.
//
// The controller owns the occupancy map. All methods must be called from
// a single goroutine (the session loop); consumers see state only through
// emitted events.
type Controller struct {
	selfID   string
	selfName string

	state State
	seat  string

	// pendingSeat is a claim sent to the relay but not yet confirmed.
	pendingSeat string

	rows, cols int
	occupancy  map[string]string               // seat ID -> participant ID
	occupants  map[string]protocol.Participant // participant ID -> info

	send   func(*protocol.Message)
	events chan Event
}

// NewController creates a controller for the local participant. send is
// the relay client's Send; it must tolerate being called while offline.
func NewController(selfID, selfName string, send func(*protocol.Message)) *Controller {
	return &Controller{
		selfID:    selfID,
		selfName:  selfName,
		occupancy: make(map[string]string),
		occupants: make(map[string]protocol.Participant),
		send:      send,
		events:    make(chan Event, 64),
	}
}

// Events returns the render event stream consumed by the UI.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// State returns the local participant's seating state.
func (c *Controller) State() State {
	return c.state
}

// Seat returns the local participant's seat, or "" when standing.
func (c *Controller) Seat() string {
	return c.seat
}

// Grid returns the room's seat layout.
func (c *Controller) Grid() (rows, cols int) {
	return c.rows, c.cols
}

// OccupantOf returns who holds a seat in the reconciled view.
func (c *Controller) OccupantOf(seatID string) (protocol.Participant, bool) {
	id, ok := c.occupancy[seatID]
	if !ok {
		return protocol.Participant{}, false
	}
	return c.occupants[id], true
}

// Roster returns a copy of the known participants.
func (c *Controller) Roster() []protocol.Participant {
	roster := make([]protocol.Participant, 0, len(c.occupants))
	for _, p := range c.occupants {
		roster = append(roster, p)
	}
	return roster
}

// ClaimSeat optimistically seats the local participant. A seat already
// known occupied is rejected locally without a round trip; otherwise the
// local view updates immediately and an update_seat request is sent, to
// be confirmed or rolled back by the relay's answer.
func (c *Controller) ClaimSeat(seatID string) error {
	if c.rows == 0 {
		return NewError("claim seat", ErrNoRoomState)
	}
	if !protocol.ValidSeatID(seatID, c.rows, c.cols) {
		return WrapError("claim seat", ErrInvalidSeat, seatID)
	}
	if holder, taken := c.occupancy[seatID]; taken && holder != c.selfID {
		return WrapError("claim seat", ErrSeatTaken, seatID)
	}

	c.setSeat(c.selfID, seatID)
	c.state = Seated
	c.seat = seatID
	c.pendingSeat = seatID

	msg := protocol.NewMessage(protocol.TypeUpdateSeat, nil)
	msg.Seat = seatID
	c.send(msg)

	c.emitSeatChanged(seatID)
	c.emitSelf()
	return nil
}

// Stand releases the local participant's seat.
func (c *Controller) Stand() error {
	if c.state != Seated {
		return NewError("stand", ErrNotSeated)
	}

	vacated := c.seat
	c.clearSeatOf(c.selfID)
	c.state = Standing
	c.seat = ""
	c.pendingSeat = ""

	c.send(protocol.NewMessage(protocol.TypeLeaveSeat, nil))

	c.emitSeatChanged(vacated)
	c.emitSelf()
	return nil
}

// ApplySnapshot replaces the entire reconciled view with the relay's
// authoritative participants_list. The local seating state is recomputed
// from the snapshot: whatever the relay says about us wins, including
// after a reconnect.
func (c *Controller) ApplySnapshot(snap *protocol.Snapshot) {
	c.rows = snap.Rows
	c.cols = snap.Cols
	c.occupancy = make(map[string]string, len(snap.Participants))
	c.occupants = make(map[string]protocol.Participant, len(snap.Participants))

	for _, p := range snap.Participants {
		c.occupants[p.ID] = p
		if p.Seat != "" {
			c.occupancy[p.Seat] = p.ID
		}
	}

	if seat := c.seatOf(c.selfID); seat != "" {
		c.state = Seated
		c.seat = seat
	} else {
		c.state = Standing
		c.seat = ""
	}
	c.pendingSeat = ""

	c.emit(Event{Kind: EventRoomReset, Rows: c.rows, Cols: c.cols, Roster: c.Roster()})
	c.emitSelf()
}

// ApplySeatUpdated applies an authoritative seat assignment. If the relay
// seated someone else on the seat we claimed optimistically, we lost the
// race and roll back to Standing.
func (c *Controller) ApplySeatUpdated(seatID string, p protocol.Participant) {
	if info, known := c.occupants[p.ID]; known {
		info.Seat = seatID
		c.occupants[p.ID] = info
	} else {
		p.Seat = seatID
		c.occupants[p.ID] = p
	}

	lostRace := p.ID != c.selfID && seatID == c.seat && c.state == Seated

	c.setSeat(p.ID, seatID)

	if p.ID == c.selfID {
		c.state = Seated
		c.seat = seatID
		c.pendingSeat = ""
	} else if lostRace {
		c.rollBack(seatID, p)
	}

	c.emitSeatChanged(seatID)
	c.emitRoster()
}

// ApplySeatOccupied handles a claim rejection addressed to us: another
// occupant won the race, so the optimistic local claim is rolled back.
func (c *Controller) ApplySeatOccupied(seatID string, holder protocol.Participant) {
	c.occupants[holder.ID] = protocol.Participant{ID: holder.ID, Name: holder.Name, Seat: seatID}
	c.setSeat(holder.ID, seatID)

	if c.pendingSeat == seatID {
		c.rollBack(seatID, holder)
	}

	c.emitSeatChanged(seatID)
	c.emitRoster()
}

// ApplySeatLeft vacates a seat released by a remote participant.
func (c *Controller) ApplySeatLeft(seatID, participantID string) {
	if participantID == c.selfID {
		// Our own release already happened optimistically in Stand.
		return
	}
	if c.occupancy[seatID] == participantID {
		delete(c.occupancy, seatID)
	}
	if info, ok := c.occupants[participantID]; ok {
		info.Seat = ""
		c.occupants[participantID] = info
	}

	c.emitSeatChanged(seatID)
	c.emitRoster()
}

// ApplyParticipantJoined records a new participant (possibly already
// seated, on a rejoin).
func (c *Controller) ApplyParticipantJoined(p protocol.Participant) {
	c.occupants[p.ID] = p
	if p.Seat != "" {
		c.setSeat(p.ID, p.Seat)
		c.emitSeatChanged(p.Seat)
	}
	c.emitRoster()
}

// ApplyParticipantLeft removes a participant and vacates their seat.
func (c *Controller) ApplyParticipantLeft(participantID string) {
	seat := c.seatOf(participantID)
	if seat != "" {
		delete(c.occupancy, seat)
	}
	delete(c.occupants, participantID)

	if seat != "" {
		c.emitSeatChanged(seat)
	}
	c.emitRoster()
}

// rollBack returns the local participant to Standing after losing a seat
// race and surfaces a brief notice.
func (c *Controller) rollBack(seatID string, winner protocol.Participant) {
	slog.Debug("seat claim lost", "seat", seatID, "winner", winner.ID)

	c.state = Standing
	c.seat = ""
	c.pendingSeat = ""

	c.emit(Event{Kind: EventNotice, Notice: "seat already taken"})
	c.emitSelf()
}

// setSeat records a participant on a seat, clearing any seat they held
// before. At most one seat per occupant, at most one occupant per seat.
func (c *Controller) setSeat(participantID, seatID string) {
	c.clearSeatOf(participantID)
	c.occupancy[seatID] = participantID
}

func (c *Controller) clearSeatOf(participantID string) {
	for seat, holder := range c.occupancy {
		if holder == participantID {
			delete(c.occupancy, seat)
		}
	}
}

func (c *Controller) seatOf(participantID string) string {
	for seat, holder := range c.occupancy {
		if holder == participantID {
			return seat
		}
	}
	return ""
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		slog.Debug("dropping render event", "kind", ev.Kind)
	}
}

func (c *Controller) emitSeatChanged(seatID string) {
	ev := Event{Kind: EventSeatChanged, Seat: seatID}
	if p, ok := c.OccupantOf(seatID); ok {
		ev.Occupied = true
		ev.Participant = p
	}
	c.emit(ev)
}

func (c *Controller) emitRoster() {
	c.emit(Event{Kind: EventRosterChanged, Roster: c.Roster()})
}

func (c *Controller) emitSelf() {
	c.emit(Event{Kind: EventSelfChanged, State: c.state, Seat: c.seat})
}
