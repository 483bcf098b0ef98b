package signaling

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/1ureka/rtcsig/internal/config"
	"github.com/1ureka/rtcsig/internal/protocol"
)

// State is the negotiation progress of a Session.
type State uint8

const (
	StateIdle                     State = iota // no offer seen yet
	StateAwaitingLocalDescription              // offer received, answer not committed
	StateAnswered                              // answer committed; terminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLocalDescription:
		return "awaiting-local-description"
	case StateAnswered:
		return "answered"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Session is the negotiation state for the one remote peer of this process.
// It is only touched from the machine's event loop.
type Session struct {
	ID    string
	Role  config.Role
	State State

	engine  Engine                  // created on the first offer, never replaced
	pending []protocol.ICECandidate // early remote candidates (opt-in)
}

func newSession(role config.Role) *Session {
	return &Session{
		ID:    uuid.NewString(),
		Role:  role,
		State: StateIdle,
	}
}

// tag is a short log prefix identifying the session.
func (s *Session) tag() string {
	return "[" + s.ID[:8] + "]"
}

// close releases the engine, if any.
func (s *Session) close() error {
	if s.engine == nil {
		return nil
	}
	return s.engine.Close()
}
