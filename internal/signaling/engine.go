package signaling

import (
	"github.com/1ureka/rtcsig/internal/protocol"
)

// Engine is the media-negotiation capability the machine drives. Every call
// may block; the machine waits for each one before taking the next step.
type Engine interface {
	// Subscribe registers the event sinks. It is called once, before any
	// negotiation step, so no event is missed.
	Subscribe(EngineEvents)

	SetRemoteDescription(protocol.SessionDescription) error
	CreateAnswer() (protocol.SessionDescription, error)
	SetLocalDescription(protocol.SessionDescription) error

	// AddICECandidate fails if no remote description has been set yet.
	AddICECandidate(protocol.ICECandidate) error

	Close() error
}

// EngineEvents are invoked by the engine at its own discretion, from any
// goroutine.
type EngineEvents struct {
	// OnCandidate fires for each gathered local candidate. A nil candidate
	// (or one with an empty Candidate string) means gathering is complete.
	OnCandidate func(*protocol.ICECandidate)

	// OnConnectionState reports peer connection state changes.
	OnConnectionState func(state string)

	// OnTrack hands over a remote media track.
	OnTrack func(Track)
}

// EngineFactory creates a fresh engine. A nil factory makes the machine inert.
type EngineFactory func() (Engine, error)

// Track is an opaque handle on a remote media stream.
type Track interface {
	ID() string
	StreamID() string
}

// MediaSink receives remote tracks for playback or recording. Play must not
// block.
type MediaSink interface {
	Play(Track)
}

// StatusSink receives user-facing status text.
type StatusSink interface {
	SetStatus(text string)
}

// Sender is the outbound half of the transport.
type Sender interface {
	Send(text string) error
}

type nopMedia struct{}

func (nopMedia) Play(Track) {}

type nopStatus struct{}

func (nopStatus) SetStatus(string) {}
