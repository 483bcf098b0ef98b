// Package signaling is the negotiation state machine of the client. It turns
// inbound relay messages into engine calls and engine results into outbound
// relay messages, in a strict order:
//
//	offer → set-remote → create-answer → set-local → send answer
//
// All session state is owned by one event loop (Machine.Run). Transport and
// engine callbacks only post work into that loop.
package signaling

import (
	"context"
	"fmt"
	"strings"

	"github.com/1ureka/rtcsig/internal/config"
	"github.com/1ureka/rtcsig/internal/protocol"
	"github.com/1ureka/rtcsig/internal/transport"
	"github.com/1ureka/rtcsig/internal/util"
)

// Options configures a Machine.
type Options struct {
	ClientID string
	Role     config.Role

	// NewEngine creates the negotiation engine on the first offer. When nil
	// the machine is inert regardless of Role.
	NewEngine EngineFactory

	Status StatusSink // nil discards status updates
	Media  MediaSink  // nil discards remote tracks

	// BufferEarlyCandidates keeps remote candidates that arrive before the
	// engine exists instead of dropping them.
	BufferEarlyCandidates bool
}

// Machine is the signaling state machine for a single remote peer.
type Machine struct {
	tr   Sender
	opts Options

	session *Session
	opened  bool
	inbox   *mailbox
}

// Compile-time interface check.
var _ transport.Handler = (*Machine)(nil)

// NewMachine creates a machine that sends through tr.
func NewMachine(tr Sender, opts Options) *Machine {
	if opts.Status == nil {
		opts.Status = nopStatus{}
	}
	if opts.Media == nil {
		opts.Media = nopMedia{}
	}
	if opts.Role == config.RoleAnswerer && opts.NewEngine == nil {
		util.LogWarning("no negotiation engine configured, running as %s", config.RoleInert)
		opts.Role = config.RoleInert
	}
	if opts.Role != config.RoleAnswerer {
		opts.Role = config.RoleInert
		opts.NewEngine = nil
	}

	return &Machine{
		tr:      tr,
		opts:    opts,
		session: newSession(opts.Role),
		inbox:   newMailbox(),
	}
}

// Session returns the machine's session. Only read it from the event loop or
// after Run has returned.
func (m *Machine) Session() *Session {
	return m.session
}

// ---------------------------------------------------------------------------
// Event loop
// ---------------------------------------------------------------------------

// Run processes events one at a time until ctx is cancelled, then releases
// the engine.
func (m *Machine) Run(ctx context.Context) error {
	defer func() {
		if err := m.session.close(); err != nil {
			util.LogWarning("%s failed to close engine: %v", m.session.tag(), err)
		}
	}()

	for {
		m.drain()

		select {
		case <-m.inbox.signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drain runs every queued event, including ones posted while draining.
func (m *Machine) drain() {
	for fn := m.inbox.take(); fn != nil; fn = m.inbox.take() {
		fn()
	}
}

// OnOpen implements transport.Handler.
func (m *Machine) OnOpen() { m.inbox.post(m.handleOpen) }

// OnMessage implements transport.Handler.
func (m *Machine) OnMessage(text string) { m.inbox.post(func() { m.handleMessage(text) }) }

// OnError implements transport.Handler.
func (m *Machine) OnError(err error) { m.inbox.post(func() { m.handleError(err) }) }

// OnClose implements transport.Handler.
func (m *Machine) OnClose() { m.inbox.post(m.handleClose) }

// ---------------------------------------------------------------------------
// Connection lifecycle
// ---------------------------------------------------------------------------

func (m *Machine) handleOpen() {
	if m.opened {
		util.LogWarning("%s connection opened twice; HELLO already sent", m.session.tag())
		return
	}
	m.opened = true

	m.opts.Status.SetStatus("Connected to signaling server.")
	if err := m.send(protocol.EncodeHello(m.opts.ClientID)); err != nil {
		return
	}
	util.LogInfo("%s registered as %q (%s)", m.session.tag(), m.opts.ClientID, m.session.Role)
}

func (m *Machine) handleError(err error) {
	m.opts.Status.SetStatus("WebSocket error: " + err.Error())
	util.LogError("%s %v", m.session.tag(), err)
}

func (m *Machine) handleClose() {
	m.opts.Status.SetStatus("WebSocket closed.")
	if m.session.State == StateAwaitingLocalDescription {
		util.LogWarning("%s signaling closed mid-negotiation; session abandoned", m.session.tag())
	}
}

// ---------------------------------------------------------------------------
// Inbound messages
// ---------------------------------------------------------------------------

func (m *Machine) handleMessage(raw string) {
	util.Stats.AddRecv()
	util.LogDebug("%s received: %s", m.session.tag(), util.Truncate(raw, 200))

	msg, err := protocol.Decode(raw)
	if err != nil {
		util.Stats.AddMalformed()
		util.LogWarning("%s discarding message: %v", m.session.tag(), err)
		return
	}

	switch msg.Kind {
	case protocol.KindSessionDescription:
		m.handleDescription(*msg.Description)

	case protocol.KindICECandidate:
		m.handleRemoteCandidate(*msg.Candidate)

	case protocol.KindRelay:
		m.handleRelay(msg.Raw)

	default:
		util.LogInfo("%s ignoring unrecognized message: %s", m.session.tag(), util.Truncate(raw, 80))
	}
}

func (m *Machine) handleRelay(line string) {
	if strings.HasPrefix(line, "ERROR") {
		m.opts.Status.SetStatus("Signaling server: " + line)
		util.LogWarning("%s relay: %s", m.session.tag(), line)
		return
	}
	util.LogInfo("%s relay: %s", m.session.tag(), line)
}

func (m *Machine) handleDescription(desc protocol.SessionDescription) {
	s := m.session

	if desc.Type != protocol.SDPTypeOffer {
		util.LogWarning("%s ignoring SDP %s: this client only answers", s.tag(), desc.Type)
		return
	}

	if s.Role == config.RoleInert {
		util.LogInfo("%s SDP offer received; listener mode, not negotiating", s.tag())
		return
	}

	if s.State == StateAnswered {
		util.LogWarning("%s ignoring SDP offer: session already answered, renegotiation unsupported", s.tag())
		return
	}

	m.opts.Status.SetStatus("Received SDP offer, creating PeerConnection...")

	if s.engine == nil {
		engine, err := m.opts.NewEngine()
		if err != nil {
			util.LogError("%s failed to create negotiation engine: %v", s.tag(), err)
			m.opts.Status.SetStatus("Failed to create PeerConnection.")
			return
		}
		engine.Subscribe(m.engineEvents())
		s.engine = engine
	}
	s.State = StateAwaitingLocalDescription

	if err := m.answer(desc); err != nil {
		util.LogError("%s negotiation failed: %v", s.tag(), err)
		m.opts.Status.SetStatus("Negotiation failed.")
	}
}

// answer runs the ordered answer sequence. Each step completes before the
// next begins; on failure the session stays in its current state.
func (m *Machine) answer(offer protocol.SessionDescription) error {
	s := m.session

	if err := s.engine.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("SetRemoteDescription: %w", err)
	}
	util.LogDebug("%s set remote description", s.tag())

	m.replayPending()

	answer, err := s.engine.CreateAnswer()
	if err != nil {
		return fmt.Errorf("CreateAnswer: %w", err)
	}

	if err := s.engine.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("SetLocalDescription: %w", err)
	}
	s.State = StateAnswered
	util.LogDebug("%s created and set local SDP answer", s.tag())

	text, err := protocol.EncodeDescription(protocol.SessionDescription{
		Type: protocol.SDPTypeAnswer,
		SDP:  answer.SDP,
	})
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	if err := m.send(text); err != nil {
		return err
	}

	util.LogSuccess("%s sent SDP answer", s.tag())
	m.opts.Status.SetStatus("Sent SDP answer.")
	return nil
}

func (m *Machine) handleRemoteCandidate(c protocol.ICECandidate) {
	s := m.session

	if s.Role == config.RoleInert {
		util.LogInfo("%s ICE candidate received; listener mode, ignoring", s.tag())
		return
	}

	if s.engine == nil {
		if m.opts.BufferEarlyCandidates {
			s.pending = append(s.pending, c)
			util.LogWarning("%s ICE candidate before offer; buffered (%d pending)", s.tag(), len(s.pending))
			return
		}
		util.Stats.AddCandidateDropped()
		util.LogError("%s dropping ICE candidate received before any offer: %s", s.tag(), util.Truncate(c.Candidate, 80))
		return
	}

	m.addCandidate(c)
}

func (m *Machine) addCandidate(c protocol.ICECandidate) {
	s := m.session
	if err := s.engine.AddICECandidate(c); err != nil {
		util.LogError("%s error adding ICE candidate: %v", s.tag(), err)
		return
	}
	util.Stats.AddCandidateAdded()
	util.LogDebug("%s added ICE candidate (mline %d)", s.tag(), c.SDPMLineIndex)
}

// replayPending hands buffered early candidates to the engine, in arrival
// order, once a remote description exists.
func (m *Machine) replayPending() {
	s := m.session
	if len(s.pending) == 0 {
		return
	}

	pending := s.pending
	s.pending = nil
	util.LogInfo("%s replaying %d early ICE candidates", s.tag(), len(pending))
	for _, c := range pending {
		m.addCandidate(c)
	}
}

// ---------------------------------------------------------------------------
// Engine events
// ---------------------------------------------------------------------------

// engineEvents returns sinks that move engine callbacks onto the event loop.
func (m *Machine) engineEvents() EngineEvents {
	return EngineEvents{
		OnCandidate: func(c *protocol.ICECandidate) {
			m.inbox.post(func() { m.handleLocalCandidate(c) })
		},
		OnConnectionState: func(state string) {
			m.inbox.post(func() { m.handleConnectionState(state) })
		},
		OnTrack: func(t Track) {
			m.inbox.post(func() { m.handleTrack(t) })
		},
	}
}

func (m *Machine) handleLocalCandidate(c *protocol.ICECandidate) {
	s := m.session
	if c == nil || c.Candidate == "" {
		util.LogDebug("%s ICE gathering complete", s.tag())
		return
	}

	text, err := protocol.EncodeCandidate(*c)
	if err != nil {
		util.LogError("%s failed to encode ICE candidate: %v", s.tag(), err)
		return
	}
	if err := m.send(text); err != nil {
		return
	}
	util.Stats.AddCandidateSent()
	util.LogDebug("%s sent ICE candidate: %s", s.tag(), util.Truncate(c.Candidate, 80))
}

func (m *Machine) handleConnectionState(state string) {
	util.LogInfo("%s connection state: %s", m.session.tag(), state)
	m.opts.Status.SetStatus("Connection state: " + state)
}

func (m *Machine) handleTrack(t Track) {
	util.LogInfo("%s received remote media (stream %s, track %s)", m.session.tag(), t.StreamID(), t.ID())
	m.opts.Media.Play(t)
}

// ---------------------------------------------------------------------------
// Outbound
// ---------------------------------------------------------------------------

// send writes one payload. Failures are reported on the status line and
// returned, never retried.
func (m *Machine) send(text string) error {
	if err := m.tr.Send(text); err != nil {
		util.LogError("%s send failed: %v", m.session.tag(), err)
		m.opts.Status.SetStatus("Send failed: " + err.Error())
		return err
	}
	util.Stats.AddSent()
	return nil
}
