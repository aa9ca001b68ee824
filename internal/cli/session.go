package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ishaan-arora-1/classroom-live/internal/classroom"
	"github.com/ishaan-arora-1/classroom-live/internal/config"
	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
	"github.com/ishaan-arora-1/classroom-live/internal/signaling"
	"github.com/ishaan-arora-1/classroom-live/internal/ui"
	"github.com/ishaan-arora-1/classroom-live/internal/voice"
)

// SessionOptions configures one classroom session.
type SessionOptions struct {
	RoomID string
	SelfID string
	Name   string
	Host   bool
	Device voice.Device
}

// Session wires the signaling client, the seat reconciler, the voice
// controller and the TUI together. The dispatch loop is the single
// goroutine that touches the controllers; the TUI only ever sees copies
// through its message channel.
type Session struct {
	opts    SessionOptions
	client  *signaling.Client
	handler *signaling.Handler
	room    *classroom.Controller
	voice   *voice.Controller
	actions chan ui.Action
	program *tea.Program

	cancel  context.CancelFunc
	started time.Time

	seen  map[string]struct{}
	peers int

	closed bool
}

// NewSession builds the session and announces the local participant to
// the relay.
func NewSession(cfg *config.Config, client *signaling.Client, opts SessionOptions) (*Session, error) {
	s := &Session{
		opts:    opts,
		client:  client,
		handler: signaling.NewHandler(client),
		room:    classroom.NewController(opts.SelfID, opts.Name, client.Send),
		actions: make(chan ui.Action, 8),
		started: time.Now(),
		seen:    make(map[string]struct{}),
	}

	if opts.Device != nil {
		vc, err := voice.NewController(cfg, opts.SelfID, opts.Host, opts.Device, client.Send)
		if err != nil {
			ui.PrintWarning(fmt.Sprintf("voice disabled: %v", err))
		} else {
			s.voice = vc
		}
	}

	go s.handler.Start()

	join := protocol.NewMessage(protocol.TypeJoin, protocol.Participant{
		ID:   opts.SelfID,
		Name: opts.Name,
	})
	join.Room = opts.RoomID
	client.SetJoin(join)
	client.Send(join)

	return s, nil
}

// Run starts the dispatch loop and blocks in the TUI until the user
// leaves.
func (s *Session) Run() error {
	app := ui.NewApp(s.opts.SelfID, s.opts.Name, s.opts.RoomID, s.voice != nil, s.actions)
	s.program = tea.NewProgram(app)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx)

	_, err := s.program.Run()

	cancel()
	s.teardown()

	ui.RenderSessionSummary(ui.SessionSummary{
		Room:         s.opts.RoomID,
		Duration:     time.Since(s.started),
		Participants: len(s.seen),
		PeersLinked:  s.peers,
		VoiceEnabled: s.voice != nil,
	})
	return err
}

// loop is the owner goroutine for both controllers: every relay message,
// render event and user action funnels through here.
func (s *Session) loop(ctx context.Context) {
	var voiceEvents <-chan voice.Event
	if s.voice != nil {
		voiceEvents = s.voice.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-s.handler.Snapshot:
			if !ok {
				return
			}
			s.room.ApplySnapshot(snap)
			for _, p := range snap.Participants {
				if p.ID == s.opts.SelfID {
					continue
				}
				s.seen[p.ID] = struct{}{}
				// The host opens negotiation toward everyone already
				// present; others wait for the host's offer.
				if s.voice != nil && s.opts.Host {
					s.voiceErr(s.voice.HandlePeerJoined(p.ID))
				}
			}

		case ev, ok := <-s.handler.SeatUpdated:
			if !ok {
				return
			}
			s.room.ApplySeatUpdated(ev.Seat, ev.Participant)

		case ev, ok := <-s.handler.SeatLeft:
			if !ok {
				return
			}
			s.room.ApplySeatLeft(ev.Seat, ev.Participant.ID)

		case ev, ok := <-s.handler.SeatOccupied:
			if !ok {
				return
			}
			s.room.ApplySeatOccupied(ev.Seat, ev.Participant)

		case p, ok := <-s.handler.ParticipantJoined:
			if !ok {
				return
			}
			s.room.ApplyParticipantJoined(*p)
			s.seen[p.ID] = struct{}{}
			if s.voice != nil {
				s.voiceErr(s.voice.HandlePeerJoined(p.ID))
			}

		case id, ok := <-s.handler.ParticipantLeft:
			if !ok {
				return
			}
			s.room.ApplyParticipantLeft(id)
			if s.voice != nil {
				s.voice.HandlePeerLeft(id)
			}

		case sig, ok := <-s.handler.Offer:
			if !ok {
				return
			}
			if s.voice != nil {
				s.voiceErr(s.voice.HandleOffer(sig.From, sig.SDP))
			}

		case sig, ok := <-s.handler.Answer:
			if !ok {
				return
			}
			if s.voice != nil {
				s.voiceErr(s.voice.HandleAnswer(sig.From, sig.SDP))
			}

		case sig, ok := <-s.handler.Candidate:
			if !ok {
				return
			}
			if s.voice != nil {
				s.voiceErr(s.voice.HandleCandidate(sig.From, sig.Candidate))
			}

		case ev := <-s.room.Events():
			s.program.Send(ui.ClassroomMsg{Event: ev})

		case ev := <-voiceEvents:
			if ev.Kind == voice.EventPeerConnected {
				s.peers++
			}
			s.program.Send(ui.VoiceMsg{Event: ev})

		case ev := <-s.client.Events():
			s.program.Send(ui.ConnMsg{Event: ev})

		case action := <-s.actions:
			s.handleAction(action)
		}
	}
}

func (s *Session) handleAction(action ui.Action) {
	switch action.Kind {
	case ui.ActionClaimSeat:
		if err := s.room.ClaimSeat(action.Seat); err != nil {
			s.notify(err.Error())
		}

	case ui.ActionStand:
		if err := s.room.Stand(); err != nil {
			s.notify(err.Error())
		}

	case ui.ActionToggleMute:
		if s.voice != nil {
			s.voice.SetMuted(!s.voice.Muted())
		}

	case ui.ActionQuit:
		// The TUI quits itself; Run handles teardown.
	}
}

// voiceErr surfaces a per-peer negotiation failure as a notice. Failed
// links are not retried in-session.
func (s *Session) voiceErr(err error) {
	if err != nil {
		s.notify(err.Error())
	}
}

func (s *Session) notify(text string) {
	s.program.Send(ui.ClassroomMsg{Event: classroom.Event{
		Kind:   classroom.EventNotice,
		Notice: text,
	}})
}

func (s *Session) teardown() {
	if s.closed {
		return
	}
	s.closed = true

	if s.voice != nil {
		s.voice.Close()
	}
	s.client.Close()
	s.handler.Close()
}

// Close releases session resources. Safe to call after Run returns.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.teardown()
}
