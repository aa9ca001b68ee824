package classroom

import "github.com/ishaan-arora-1/classroom-live/internal/protocol"

// EventKind classifies render events emitted by the controller.
type EventKind int

const (
	// EventSeatChanged: one seat's occupant label changed. Participant
	// is the zero value when the seat is now empty.
	EventSeatChanged EventKind = iota

	// EventRosterChanged: the occupant side list changed.
	EventRosterChanged

	// EventSelfChanged: the local participant's seating state changed.
	EventSelfChanged

	// EventRoomReset: a snapshot replaced the whole view.
	EventRoomReset

	// EventNotice: a brief user-visible notification.
	EventNotice
)

// Event is a render event for the UI layer. Events are self-contained
// copies; the UI never reads controller state directly, so the two can
// live on different goroutines.
type Event struct {
	Kind        EventKind
	Seat        string
	Occupied    bool
	Participant protocol.Participant
	Roster      []protocol.Participant
	Rows, Cols  int
	State       State
	Notice      string
}
