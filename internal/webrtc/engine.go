package webrtc

import (
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcsig/internal/protocol"
	"github.com/1ureka/rtcsig/internal/signaling"
	"github.com/1ureka/rtcsig/internal/util"
)

// Engine wraps a single PeerConnection and exposes the negotiation steps the
// signaling machine needs.
type Engine struct {
	pc *webrtc.PeerConnection
}

// Compile-time interface check.
var _ signaling.Engine = (*Engine)(nil)

// NewEngine creates an Engine backed by a new PeerConnection.
func NewEngine(cfg Config) (*Engine, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PeerConnection: %w", err)
	}
	return &Engine{pc: pc}, nil
}

// Factory returns a signaling.EngineFactory creating engines from cfg.
func Factory(cfg Config) signaling.EngineFactory {
	return func() (signaling.Engine, error) {
		return NewEngine(cfg)
	}
}

// Subscribe registers ev on the PeerConnection. ICE connection state is
// logged here as well; it does not reach the machine.
func (e *Engine) Subscribe(ev signaling.EngineEvents) {
	e.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if ev.OnCandidate == nil {
			return
		}
		if c == nil {
			ev.OnCandidate(nil)
			return
		}
		ev.OnCandidate(candidateFromPion(c.ToJSON()))
	})

	e.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if ev.OnConnectionState != nil {
			ev.OnConnectionState(state.String())
		}
	})

	e.pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		util.LogDebug("ICE connection state: %s", state.String())
		if state == webrtc.ICEConnectionStateConnected || state == webrtc.ICEConnectionStateCompleted {
			util.LogSuccess("P2P connection established")
		}
	})

	e.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if ev.OnTrack != nil {
			ev.OnTrack(track)
		}
	})
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// SetRemoteDescription applies the remote SDP.
func (e *Engine) SetRemoteDescription(desc protocol.SessionDescription) error {
	return e.pc.SetRemoteDescription(descriptionToPion(desc))
}

// CreateAnswer generates an SDP answer.
func (e *Engine) CreateAnswer() (protocol.SessionDescription, error) {
	answer, err := e.pc.CreateAnswer(nil)
	if err != nil {
		return protocol.SessionDescription{}, err
	}
	return protocol.SessionDescription{Type: protocol.SDPTypeAnswer, SDP: answer.SDP}, nil
}

// SetLocalDescription applies the local SDP and starts ICE gathering.
func (e *Engine) SetLocalDescription(desc protocol.SessionDescription) error {
	return e.pc.SetLocalDescription(descriptionToPion(desc))
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (e *Engine) AddICECandidate(c protocol.ICECandidate) error {
	return e.pc.AddICECandidate(candidateToPion(c))
}

// Close shuts down the PeerConnection.
func (e *Engine) Close() error {
	return e.pc.Close()
}

// ConnectionState returns the current PeerConnection state.
func (e *Engine) ConnectionState() webrtc.PeerConnectionState {
	return e.pc.ConnectionState()
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func descriptionToPion(desc protocol.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{
		Type: webrtc.NewSDPType(string(desc.Type)),
		SDP:  desc.SDP,
	}
}

func candidateToPion(c protocol.ICECandidate) webrtc.ICECandidateInit {
	index := c.SDPMLineIndex
	return webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMLineIndex: &index,
	}
}

func candidateFromPion(init webrtc.ICECandidateInit) *protocol.ICECandidate {
	c := &protocol.ICECandidate{Candidate: init.Candidate}
	if init.SDPMLineIndex != nil {
		c.SDPMLineIndex = *init.SDPMLineIndex
	}
	return c
}
