// Package relay is a small GStreamer-compatible signaling relay. Peers
// register with HELLO, pair with SESSION, then everything they send is
// forwarded verbatim to their partner. It never looks at SDP or ICE.
package relay

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/1ureka/rtcsig/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// peer is one registered WebSocket connection.
type peer struct {
	id     string
	connID string
	conn   *websocket.Conn

	writeMu sync.Mutex
	partner *peer // guarded by Server.mu
}

func (p *peer) send(text string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Server is the relay. The zero value is not usable; call NewServer.
type Server struct {
	listener net.Listener

	mu    sync.Mutex
	peers map[string]*peer
}

// NewServer creates an empty relay.
func NewServer() *Server {
	return &Server{peers: make(map[string]*peer)}
}

// Handler returns the relay's HTTP handler, serving WebSocket upgrades on
// "/" and "/ws".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start begins listening on addr (":0" picks a free port) and returns the
// bound address.
func (s *Server) Start(addr string) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start relay: %w", err)
	}
	s.listener = listener

	go func() {
		_ = http.Serve(listener, s.Handler())
	}()

	return listener.Addr().String(), nil
}

// Close shuts down the listener and drops every registered peer.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		p.conn.Close()
	}
}

// Peers returns the number of registered peers.
func (s *Server) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	connID := uuid.NewString()[:8]
	util.LogDebug("[relay %s] connection from %s", connID, r.RemoteAddr)

	p, err := s.register(conn, connID)
	if err != nil {
		util.LogWarning("[relay %s] %v", connID, err)
		return
	}
	defer s.unregister(p)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.handleText(p, string(data))
	}
}

// register waits for the HELLO line and adds the peer to the table.
func (s *Server) register(conn *websocket.Conn, connID string) (*peer, error) {
	p := &peer{connID: connID, conn: conn}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("closed before HELLO: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		verb, id, _ := strings.Cut(string(data), " ")
		id = strings.TrimSpace(id)
		if verb != "HELLO" || id == "" {
			p.send("ERROR expected HELLO <uid>")
			continue
		}

		s.mu.Lock()
		_, taken := s.peers[id]
		if !taken {
			p.id = id
			s.peers[id] = p
		}
		s.mu.Unlock()

		if taken {
			p.send("ERROR uid in use")
			continue
		}

		if err := p.send("HELLO"); err != nil {
			s.unregister(p)
			return nil, fmt.Errorf("failed to ack HELLO: %w", err)
		}
		util.LogInfo("[relay %s] registered %q", connID, id)
		return p, nil
	}
}

// unregister removes the peer and ends its partner's session.
func (s *Server) unregister(p *peer) {
	s.mu.Lock()
	if s.peers[p.id] == p {
		delete(s.peers, p.id)
	}
	partner := p.partner
	if partner != nil {
		partner.partner = nil
		p.partner = nil
	}
	s.mu.Unlock()

	util.LogInfo("[relay %s] %q disconnected", p.connID, p.id)
	if partner != nil {
		util.LogInfo("[relay %s] session %q <-> %q ended", p.connID, p.id, partner.id)
	}
}

func (s *Server) handleText(p *peer, text string) {
	if verb, arg, ok := strings.Cut(text, " "); ok && verb == "SESSION" {
		s.startSession(p, strings.TrimSpace(arg))
		return
	}

	s.mu.Lock()
	partner := p.partner
	s.mu.Unlock()

	if partner == nil {
		p.send("ERROR peer not in session")
		return
	}
	if err := partner.send(text); err != nil {
		util.LogWarning("[relay %s] forward to %q failed: %v", p.connID, partner.id, err)
		return
	}
	util.LogDebug("[relay %s] %q -> %q: %s", p.connID, p.id, partner.id, util.Truncate(text, 80))
}

func (s *Server) startSession(p *peer, target string) {
	s.mu.Lock()
	other, found := s.peers[target]
	var reason string
	switch {
	case !found:
		reason = fmt.Sprintf("ERROR peer %q not found", target)
	case other == p:
		reason = "ERROR cannot start a session with yourself"
	case p.partner != nil || other.partner != nil:
		reason = fmt.Sprintf("ERROR peer %q busy", target)
	default:
		p.partner = other
		other.partner = p
	}
	s.mu.Unlock()

	if reason != "" {
		p.send(reason)
		return
	}

	util.LogSuccess("[relay %s] session %q <-> %q", p.connID, p.id, target)
	p.send("SESSION_OK")
}
