package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/ishaan-arora-1/classroom-live/internal/config"
	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
)

// EventKind classifies voice events consumed by the rendering layer.
type EventKind int

const (
	// EventSpeakingStart / EventSpeakingEnd: local voice activity,
	// driving the speaking indicator. Local-only, never on the wire.
	EventSpeakingStart EventKind = iota
	EventSpeakingEnd

	// EventPeerConnected / EventPeerFailed: a remote link's lifecycle.
	EventPeerConnected
	EventPeerFailed
)

// Event is a voice state change.
type Event struct {
	Kind        EventKind
	Participant string
}

// Controller owns the local capture stream and fans it out to one
// PeerLink per remote participant. The capture stream belongs to the
// controller alone; links only attach to it. The controller never
// touches seat state; it only reacts to join/leave and negotiation
// signals.
type Controller struct {
	selfID string
	host   bool

	send    func(*protocol.Message)
	newConn linkFactory

	device Device
	track  *webrtc.TrackLocalStaticSample

	mu    sync.Mutex
	links map[string]*PeerLink

	muted  atomic.Bool
	events chan Event

	cancel context.CancelFunc
	closed atomic.Bool
	once   sync.Once
}

// NewController initializes capture and the fan-out state. A nil device
// disables the outgoing audio path (remote audio still flows in); a
// device that fails to start is surfaced as ErrMicUnavailable and the
// caller keeps the classroom session going without voice.
//
// The host initiates offers toward joiners; everyone else waits for an
// incoming offer.
func NewController(cfg *config.Config, selfID string, host bool, device Device, send func(*protocol.Message)) (*Controller, error) {
	c := &Controller{
		selfID:  selfID,
		host:    host,
		send:    send,
		newConn: pionFactory(cfg),
		device:  device,
		links:   make(map[string]*PeerLink),
		events:  make(chan Event, 32),
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	if device != nil {
		track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: 48000,
			Channels:  1,
		}, "audio", "classroom-"+selfID)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("create audio track: %w", err)
		}
		c.track = track

		frames, err := device.Start(ctx)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: %v", ErrMicUnavailable, err)
		}
		go c.pump(ctx, frames)
	}

	return c, nil
}

// Events returns the voice event stream.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// pump feeds capture frames to the outgoing track and runs voice
// activity detection on the fixed sampling cadence.
func (c *Controller) pump(ctx context.Context, frames <-chan Frame) {
	detector := NewDetector(VADThreshold, VADHangTime)
	ticker := time.NewTicker(VADInterval)
	defer ticker.Stop()

	var levelSum float64
	var levelCount int

	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			levelSum += f.Level
			levelCount++

			if !c.muted.Load() {
				if err := c.track.WriteSample(media.Sample{Data: f.Data, Duration: f.Duration}); err != nil {
					slog.Debug("write sample failed", "err", err)
				}
			}

		case <-ticker.C:
			avg := 0.0
			if levelCount > 0 {
				avg = levelSum / float64(levelCount)
			}
			levelSum, levelCount = 0, 0

			if c.muted.Load() {
				avg = 0
			}

			if speaking, changed := detector.Observe(avg); changed {
				kind := EventSpeakingEnd
				if speaking {
					kind = EventSpeakingStart
				}
				c.emit(Event{Kind: kind, Participant: c.selfID})
			}

		case <-ctx.Done():
			return
		}
	}
}

// HandlePeerJoined creates the PeerLink for a new remote participant.
// The host side opens the negotiation with an offer; the other side
// waits for one.
func (c *Controller) HandlePeerJoined(remote string) error {
	if c.closed.Load() {
		return ErrControllerClosed
	}

	link, created, err := c.ensureLink(remote)
	if err != nil {
		return err
	}
	if !created || !c.host {
		return nil
	}

	offer, err := link.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer for %s: %w", remote, err)
	}
	if err := link.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description for %s: %w", remote, err)
	}

	msg := protocol.NewMessage(protocol.TypeOffer, protocol.SDP{SDP: offer.SDP})
	msg.To = remote
	c.send(msg)
	return nil
}

// HandleOffer answers an incoming offer, creating the link if the
// participant-joined signal has not arrived yet.
func (c *Controller) HandleOffer(remote, sdp string) error {
	if c.closed.Load() {
		return ErrControllerClosed
	}

	link, _, err := c.ensureLink(remote)
	if err != nil {
		return err
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := link.pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("set remote offer from %s: %w", remote, err)
	}

	answer, err := link.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer for %s: %w", remote, err)
	}
	if err := link.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local answer for %s: %w", remote, err)
	}

	msg := protocol.NewMessage(protocol.TypeAnswer, protocol.SDP{SDP: answer.SDP})
	msg.To = remote
	c.send(msg)
	return nil
}

// HandleAnswer completes a negotiation we initiated.
func (c *Controller) HandleAnswer(remote, sdp string) error {
	link := c.link(remote)
	if link == nil {
		return nil
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := link.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote answer from %s: %w", remote, err)
	}
	return nil
}

// HandleCandidate adds a trickled ICE candidate. The platform stack
// queues candidates that arrive before the remote description, so
// ordering against offer/answer does not matter here.
func (c *Controller) HandleCandidate(remote string, candidate json.RawMessage) error {
	link := c.link(remote)
	if link == nil {
		return nil
	}

	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return fmt.Errorf("parse ICE candidate from %s: %w", remote, err)
	}
	if err := link.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add ICE candidate from %s: %w", remote, err)
	}
	return nil
}

// HandlePeerLeft closes and discards the participant's link.
func (c *Controller) HandlePeerLeft(remote string) {
	c.mu.Lock()
	link, ok := c.links[remote]
	delete(c.links, remote)
	c.mu.Unlock()

	if ok {
		link.Close()
		slog.Debug("peer link closed", "remote", remote)
	}
}

// SetMuted toggles the local outgoing audio. Links stay open and remote
// audio keeps flowing; only the local track pump is gated.
func (c *Controller) SetMuted(muted bool) {
	c.muted.Store(muted)
}

// Muted reports the local mute state.
func (c *Controller) Muted() bool {
	return c.muted.Load()
}

// LinkCount returns the number of active PeerLinks.
func (c *Controller) LinkCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.links)
}

// Close tears down every PeerLink, stops capture and stops the VAD
// sampler. Idempotent and safe to call at any time.
func (c *Controller) Close() {
	c.once.Do(func() {
		c.closed.Store(true)
		c.cancel()

		c.mu.Lock()
		links := c.links
		c.links = make(map[string]*PeerLink)
		c.mu.Unlock()

		for _, link := range links {
			link.Close()
		}
		if c.device != nil {
			c.device.Stop()
		}
	})
}

func (c *Controller) link(remote string) *PeerLink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.links[remote]
}

// ensureLink returns the link for a remote, creating and wiring it on
// first use.
func (c *Controller) ensureLink(remote string) (*PeerLink, bool, error) {
	c.mu.Lock()
	if link, ok := c.links[remote]; ok {
		c.mu.Unlock()
		return link, false, nil
	}
	c.mu.Unlock()

	pc, err := c.newConn()
	if err != nil {
		return nil, false, fmt.Errorf("create peer connection for %s: %w", remote, err)
	}

	if c.track != nil {
		if _, err := pc.AddTrack(c.track); err != nil {
			pc.Close()
			return nil, false, fmt.Errorf("attach local track for %s: %w", remote, err)
		}
	}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		raw, err := json.Marshal(candidate.ToJSON())
		if err != nil {
			return
		}
		msg := &protocol.Message{Type: protocol.TypeICECandidate, To: remote, Payload: raw}
		c.send(msg)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			c.emit(Event{Kind: EventPeerConnected, Participant: remote})
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			// No in-session retry; audio returns on the peer's next
			// join/offer cycle.
			slog.Info("peer link down", "remote", remote, "state", state)
			c.emit(Event{Kind: EventPeerFailed, Participant: remote})
		}
	})

	pc.OnTrack(func(remoteTrack *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		go drainTrack(remoteTrack)
	})

	link := newPeerLink(remote, pc)

	c.mu.Lock()
	if existing, ok := c.links[remote]; ok {
		// Lost a creation race; keep the first link.
		c.mu.Unlock()
		link.Close()
		return existing, false, nil
	}
	if c.closed.Load() {
		c.mu.Unlock()
		link.Close()
		return nil, false, ErrControllerClosed
	}
	c.links[remote] = link
	c.mu.Unlock()

	return link, true, nil
}

// drainTrack keeps a remote track's buffers moving. Audio playback is a
// platform capability outside this package; the terminal client reads
// and drops the samples.
func drainTrack(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
