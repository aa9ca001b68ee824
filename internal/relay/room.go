package relay

import (
	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
)

// Room represents a single classroom session: a fixed seat grid plus the
// set of connected participants. All access happens on the hub goroutine.
type Room struct {
	// ID is the unique identifier for the room.
	ID string

	// Rows and Cols fix the seat grid for the lifetime of the room.
	Rows int
	Cols int

	// Participants maps participant IDs to their connections.
	Participants map[string]*Client

	// Seats maps seat IDs to the participant ID holding them.
	Seats map[string]string
}

// NewRoom creates an empty room with a rows×cols seat grid.
func NewRoom(id string, rows, cols int) *Room {
	return &Room{
		ID:           id,
		Rows:         rows,
		Cols:         cols,
		Participants: make(map[string]*Client),
		Seats:        make(map[string]string),
	}
}

// Claim attempts to seat a participant. The room is the sole arbiter of
// seat races: the first claim to arrive wins, every later claim loses.
// On success the claimant is removed from any seat they previously held,
// keeping the one-seat-per-occupant invariant. On failure the current
// holder's ID is returned.
//
// A seat recorded against a participant who is no longer connected (a
// stale entry restored from a snapshot) counts as free.
func (r *Room) Claim(participantID, seatID string) (ok bool, holder string) {
	if !protocol.ValidSeatID(seatID, r.Rows, r.Cols) {
		return false, ""
	}

	if held, taken := r.Seats[seatID]; taken && held != participantID {
		if _, connected := r.Participants[held]; connected {
			return false, held
		}
		// Stale holder, fall through and overwrite.
	}

	r.vacate(participantID)
	r.Seats[seatID] = participantID
	return true, ""
}

// Vacate releases whatever seat the participant holds and returns its ID,
// or "" if they were standing.
func (r *Room) Vacate(participantID string) string {
	return r.vacate(participantID)
}

func (r *Room) vacate(participantID string) string {
	for seat, holder := range r.Seats {
		if holder == participantID {
			delete(r.Seats, seat)
			return seat
		}
	}
	return ""
}

// SeatOf returns the seat held by a participant, or "".
func (r *Room) SeatOf(participantID string) string {
	for seat, holder := range r.Seats {
		if holder == participantID {
			return seat
		}
	}
	return ""
}

// Snapshot builds the authoritative participants_list payload. Only
// connected participants are listed; stale seat entries are omitted.
func (r *Room) Snapshot() *protocol.Snapshot {
	snap := &protocol.Snapshot{
		Rows:         r.Rows,
		Cols:         r.Cols,
		Participants: make([]protocol.Participant, 0, len(r.Participants)),
	}
	for id, c := range r.Participants {
		snap.Participants = append(snap.Participants, protocol.Participant{
			ID:   id,
			Name: c.Name,
			Seat: r.SeatOf(id),
		})
	}
	return snap
}

// Empty reports whether no participants remain.
func (r *Room) Empty() bool {
	return len(r.Participants) == 0
}
