// Package transport is the WebSocket channel to the signaling relay. It knows
// nothing about the messages it carries: inbound text frames are handed to a
// Handler, outbound text is written as-is.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/rtcsig/internal/util"
)

// ErrNotOpen is returned by Send when the connection is not open.
var ErrNotOpen = errors.New("transport not open")

const (
	handshakeTimeout = 10 * time.Second
	closeGracePeriod = time.Second
)

// Status is the observable state of the connection.
type Status uint8

const (
	StatusConnecting Status = iota
	StatusOpen
	StatusClosed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Handler receives connection events. Calls are made from the goroutine
// running Conn.Run, one at a time, in the order the events happen.
type Handler interface {
	OnOpen()
	OnMessage(text string)
	OnError(err error)
	OnClose()
}

// Conn is a single WebSocket connection to a fixed URL. It never reconnects.
type Conn struct {
	url    string
	dialer *websocket.Dialer

	writeMu sync.Mutex // serialises writes on ws
	ws      *websocket.Conn
	closing atomic.Bool

	mu     sync.RWMutex
	status Status
	reason error
}

// New creates an unconnected Conn for url. Call Run to connect.
func New(url string) *Conn {
	return &Conn{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: handshakeTimeout,
		},
		status: StatusConnecting,
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Run dials the server and delivers events to h until the connection closes
// or ctx is cancelled. It returns nil on a clean close and the failure
// otherwise. Run must be called at most once.
func (c *Conn) Run(ctx context.Context, h Handler) error {
	ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		err = fmt.Errorf("failed to connect to signaling server: %w", err)
		c.setStatus(StatusFailed, err)
		h.OnError(err)
		h.OnClose()
		return err
	}

	c.writeMu.Lock()
	c.ws = ws
	c.writeMu.Unlock()

	c.setStatus(StatusOpen, nil)
	util.LogDebug("WS connected: %s", c.url)
	h.OnOpen()

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() {
		c.closeWith(websocket.CloseNormalClosure, "client shutting down")
	})
	defer stop()

	for {
		typ, data, err := ws.ReadMessage()
		if err != nil {
			return c.finish(ctx, h, err)
		}
		if typ != websocket.TextMessage {
			util.LogDebug("ignoring non-text WS frame (type=%d, %d bytes)", typ, len(data))
			continue
		}
		h.OnMessage(string(data))
	}
}

// finish records the terminal status for a read error and notifies h.
func (c *Conn) finish(ctx context.Context, h Handler, err error) error {
	defer c.ws.Close()

	if ctx.Err() != nil || c.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.setStatus(StatusClosed, nil)
		h.OnClose()
		return nil
	}

	err = fmt.Errorf("WS read failed: %w", err)
	c.setStatus(StatusFailed, err)
	h.OnError(err)
	h.OnClose()
	return err
}

// Close sends a normal close frame. The read loop in Run then exits.
func (c *Conn) Close() error {
	return c.closeWith(websocket.CloseNormalClosure, "")
}

func (c *Conn) closeWith(code int, text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.ws == nil {
		return nil
	}
	c.closing.Store(true)

	deadline := time.Now().Add(closeGracePeriod)
	err := c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		// Peer is gone; force the read loop out.
		return c.ws.Close()
	}
	// Give the peer a grace period to echo the close frame.
	return c.ws.SetReadDeadline(deadline.Add(closeGracePeriod))
}

// Status returns the current status and, for StatusFailed, the reason.
func (c *Conn) Status() (Status, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status, c.reason
}

func (c *Conn) setStatus(s Status, reason error) {
	c.mu.Lock()
	c.status = s
	c.reason = reason
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

// Send writes text as a single text frame. It fails with ErrNotOpen unless
// the connection is open; nothing is queued.
func (c *Conn) Send(text string) error {
	if s, _ := c.Status(); s != StatusOpen {
		return fmt.Errorf("%w (status %s)", ErrNotOpen, s)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("WS send failed: %w", err)
	}
	return nil
}
