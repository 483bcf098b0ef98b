// Package protocol defines the signaling message format exchanged with the
// relay: a raw-text HELLO, JSON session descriptions and JSON ICE candidates.
package protocol

// Kind classifies a decoded inbound message.
type Kind uint8

const (
	KindUnrecognized       Kind = iota // well-formed but matches no known shape
	KindSessionDescription             // {"sdp": {...}}
	KindICECandidate                   // {"ice": {...}}
	KindRelay                          // plain-text relay control line
)

func (k Kind) String() string {
	switch k {
	case KindSessionDescription:
		return "session-description"
	case KindICECandidate:
		return "ice-candidate"
	case KindRelay:
		return "relay"
	default:
		return "unrecognized"
	}
}

// SDPType is the kind of a session description.
type SDPType string

const (
	SDPTypeOffer  SDPType = "offer"
	SDPTypeAnswer SDPType = "answer"
)

// SessionDescription is an SDP offer or answer.
type SessionDescription struct {
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`
}

// ICECandidate is a trickled ICE candidate. An empty Candidate marks the end
// of gathering and is never sent on the wire.
type ICECandidate struct {
	SDPMLineIndex uint16 `json:"sdpMLineIndex"`
	Candidate     string `json:"candidate"`
}

// Message is a classified inbound payload. Exactly one of Description or
// Candidate is set for the matching Kind; Raw always holds the input text.
type Message struct {
	Kind        Kind
	Description *SessionDescription
	Candidate   *ICECandidate
	Raw         string
}

// Relay control words sent by GStreamer-style signaling servers.
var relayVerbs = []string{"HELLO", "SESSION_OK", "ERROR", "OFFER_REQUEST"}
