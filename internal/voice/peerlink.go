package voice

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/ishaan-arora-1/classroom-live/internal/config"
)

// peerConn is the slice of the platform WebRTC API the controller uses.
// Offer/answer/ICE negotiation is a platform capability; we drive it
// through this boundary rather than modeling its internals, and tests
// substitute a fake.
type peerConn interface {
	AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	OnICECandidate(f func(*webrtc.ICECandidate))
	OnConnectionStateChange(f func(webrtc.PeerConnectionState))
	OnTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	Close() error
}

// linkFactory creates the platform peer connection for one PeerLink.
type linkFactory func() (peerConn, error)

// pionFactory builds peer connections against the configured STUN/TURN
// servers, in relay-only mode when forced.
func pionFactory(cfg *config.Config) linkFactory {
	return func() (peerConn, error) {
		iceServers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}

		turnServers := cfg.GetTURNServers()
		if turnServers != nil {
			username, password := cfg.GetTURNCredentials()
			iceServers = append(iceServers, webrtc.ICEServer{
				URLs:       turnServers,
				Username:   username,
				Credential: password,
			})
		}

		policy := webrtc.ICETransportPolicyAll
		if turnServers != nil && cfg.ForceRelay {
			policy = webrtc.ICETransportPolicyRelay
		}

		return webrtc.NewPeerConnection(webrtc.Configuration{
			ICEServers:         iceServers,
			ICETransportPolicy: policy,
		})
	}
}

// PeerLink is the direct media connection to one remote participant.
// Created when the remote joins (or sends us an offer), destroyed when
// they leave or the link fails. A failed link is not retried in-session;
// the peer's audio is simply absent until their next join/offer cycle.
type PeerLink struct {
	Remote string

	pc        peerConn
	closeOnce sync.Once
}

func newPeerLink(remote string, pc peerConn) *PeerLink {
	return &PeerLink{Remote: remote, pc: pc}
}

// Close tears down the underlying connection. Idempotent.
func (l *PeerLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.pc.Close()
	})
	return err
}
