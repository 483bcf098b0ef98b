// Package config holds the CLI configuration types.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Role represents how the client takes part in negotiation.
type Role string

const (
	RoleAnswerer Role = "answerer" // answers offers and trickles ICE
	RoleInert    Role = "inert"    // listens and logs, never negotiates
)

// DefaultClientID is the identifier announced with HELLO when none is given.
const DefaultClientID = "browser1"

// DefaultServerURL is the signaling relay used when no URL is given.
const DefaultServerURL = "ws://localhost:8443"

// Config stores all parameters gathered from CLI flags and prompts.
type Config struct {
	Role       Role
	ServerURL  string   // signaling relay, fixed for the process lifetime
	ClientID   string   // announced as "HELLO <ClientID>"
	ICEServers []string // STUN URLs; empty means the engine defaults
	RecordDir  string   // where received media is written; empty drains only

	// BufferEarlyCandidates keeps remote ICE candidates that arrive before
	// the first offer and replays them once the remote description is set.
	BufferEarlyCandidates bool
}

var (
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidClientID = errors.New("invalid client id")
)

// Validate checks that the configuration can be used to start a client.
func (c *Config) Validate() error {
	switch c.Role {
	case RoleAnswerer, RoleInert:
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidRole, c.Role, RoleAnswerer, RoleInert)
	}

	if c.ClientID == "" || strings.ContainsAny(c.ClientID, " \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidClientID, c.ClientID)
	}

	if _, err := NormalizeURL(c.ServerURL); err != nil {
		return err
	}

	for _, s := range c.ICEServers {
		if !strings.HasPrefix(s, "stun:") && !strings.HasPrefix(s, "turn:") && !strings.HasPrefix(s, "turns:") {
			return fmt.Errorf("invalid ICE server URL: %s", s)
		}
	}

	return nil
}

// NormalizeURL validates a raw WebSocket URL. A missing scheme defaults to
// ws; http(s) is mapped to ws(s). The path and query are kept as given.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid WebSocket URL scheme: %s", u.Scheme)
	}

	return u.String(), nil
}

// SplitList splits a comma-separated flag value, dropping empty items.
func SplitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
