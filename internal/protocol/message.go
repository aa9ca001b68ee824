package protocol

import "encoding/json"

// Message is the envelope for all messages exchanged over the relay,
// discriminated by Type. From and To carry participant IDs for directed
// messages (WebRTC signaling); Seat carries a seat ID for seat messages.
type Message struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Seat    string          `json:"seat,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to relay.
const (
	TypeJoin         = "join"
	TypeLeaveSeat    = "leave_seat"
	TypeUpdateSeat   = "update_seat"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
)

// Relay to client. Offer, answer and ice-candidate are relayed unchanged.
const (
	TypeParticipantsList  = "participants_list"
	TypeSeatUpdated       = "seat_updated"
	TypeSeatLeft          = "seat_left"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeSeatOccupied      = "seat_occupied"
)

// Participant describes one connected participant and the seat they hold
// ("" when standing).
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Seat string `json:"seat,omitempty"`
}

// Snapshot is the payload of a participants_list message: the full
// authoritative room state, sent to a participant on every (re)join.
type Snapshot struct {
	Rows         int           `json:"rows"`
	Cols         int           `json:"cols"`
	Participants []Participant `json:"participants"`
}

// SDP is the payload of offer and answer messages.
type SDP struct {
	SDP string `json:"sdp"`
}

// The payload of an ice-candidate message is the candidate's JSON form as
// produced by the WebRTC stack; the relay never inspects it.

// NewMessage builds an envelope with a marshaled payload. Payloads are
// plain structs; a marshal failure here is a programming error.
func NewMessage(msgType string, payload any) *Message {
	msg := &Message{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			panic("protocol: unmarshalable payload: " + err.Error())
		}
		msg.Payload = raw
	}
	return msg
}

// DecodePayload unmarshals the envelope payload into v.
func (m *Message) DecodePayload(v any) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
