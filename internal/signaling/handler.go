package signaling

import (
	"encoding/json"
	"log/slog"

	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
)

// SeatEvent is a seat change announced by the relay.
type SeatEvent struct {
	Seat        string
	Participant protocol.Participant
}

// Signal is a WebRTC negotiation message from one remote participant.
type Signal struct {
	From      string
	SDP       string
	Candidate json.RawMessage
}

// Handler routes incoming relay messages to typed channels, one per
// message variant. Unknown types are logged and dropped.
type Handler struct {
	client *Client

	Snapshot          chan *protocol.Snapshot
	SeatUpdated       chan *SeatEvent
	SeatLeft          chan *SeatEvent
	SeatOccupied      chan *SeatEvent
	ParticipantJoined chan *protocol.Participant
	ParticipantLeft   chan string
	Offer             chan *Signal
	Answer            chan *Signal
	Candidate         chan *Signal

	done   chan struct{}
	closed bool
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:            client,
		done:              make(chan struct{}),
		Snapshot:          make(chan *protocol.Snapshot, 1),
		SeatUpdated:       make(chan *SeatEvent, 32),
		SeatLeft:          make(chan *SeatEvent, 32),
		SeatOccupied:      make(chan *SeatEvent, 8),
		ParticipantJoined: make(chan *protocol.Participant, 8),
		ParticipantLeft:   make(chan string, 8),
		Offer:             make(chan *Signal, 8),
		Answer:            make(chan *Signal, 8),
		Candidate:         make(chan *Signal, 64),
	}
}

// Start begins listening to incoming messages and routing them. It
// returns when the client's incoming channel closes.
func (h *Handler) Start() {
	defer close(h.done)
	for msg := range h.client.Incoming() {
		switch msg.Type {

		case protocol.TypeParticipantsList:
			h.handleSnapshot(msg)

		case protocol.TypeSeatUpdated:
			h.handleSeatEvent(msg, h.SeatUpdated)

		case protocol.TypeSeatLeft:
			push(h.client.done, h.SeatLeft, &SeatEvent{
				Seat:        msg.Seat,
				Participant: protocol.Participant{ID: msg.From},
			})

		case protocol.TypeSeatOccupied:
			h.handleSeatEvent(msg, h.SeatOccupied)

		case protocol.TypeParticipantJoined:
			h.handleParticipantJoined(msg)

		case protocol.TypeParticipantLeft:
			push(h.client.done, h.ParticipantLeft, msg.From)

		case protocol.TypeOffer:
			h.handleSDP(msg, h.Offer)

		case protocol.TypeAnswer:
			h.handleSDP(msg, h.Answer)

		case protocol.TypeICECandidate:
			push(h.client.done, h.Candidate, &Signal{From: msg.From, Candidate: msg.Payload})

		default:
			slog.Warn("unknown message type from relay", "type", msg.Type)
		}
	}
}

func (h *Handler) handleSnapshot(msg *protocol.Message) {
	var snap protocol.Snapshot
	if err := msg.DecodePayload(&snap); err != nil {
		slog.Warn("malformed snapshot payload", "err", err)
		return
	}
	push(h.client.done, h.Snapshot, &snap)
}

func (h *Handler) handleSeatEvent(msg *protocol.Message, out chan *SeatEvent) {
	var p protocol.Participant
	if err := msg.DecodePayload(&p); err != nil {
		slog.Warn("malformed seat payload", "type", msg.Type, "err", err)
		return
	}
	push(h.client.done, out, &SeatEvent{Seat: msg.Seat, Participant: p})
}

func (h *Handler) handleParticipantJoined(msg *protocol.Message) {
	var p protocol.Participant
	if err := msg.DecodePayload(&p); err != nil {
		slog.Warn("malformed participant payload", "err", err)
		return
	}
	push(h.client.done, h.ParticipantJoined, &p)
}

func (h *Handler) handleSDP(msg *protocol.Message, out chan *Signal) {
	var sdp protocol.SDP
	if err := msg.DecodePayload(&sdp); err != nil {
		slog.Warn("malformed SDP payload", "type", msg.Type, "err", err)
		return
	}
	push(h.client.done, out, &Signal{From: msg.From, SDP: sdp.SDP})
}

// push delivers a routed message unless the client has shut down. The
// session loop stops consuming once the client closes; its absence must
// not wedge the dispatch loop on a full channel.
func push[T any](done <-chan struct{}, out chan<- T, v T) {
	select {
	case out <- v:
	case <-done:
	}
}

// Close waits for Start to finish draining, then closes all handler
// channels. The signaling client must already be closed.
func (h *Handler) Close() {
	if h.closed {
		return
	}
	h.closed = true
	<-h.done

	close(h.Snapshot)
	close(h.SeatUpdated)
	close(h.SeatLeft)
	close(h.SeatOccupied)
	close(h.ParticipantJoined)
	close(h.ParticipantLeft)
	close(h.Offer)
	close(h.Answer)
	close(h.Candidate)
}
