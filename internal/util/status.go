package util

import (
	"sync"

	"github.com/pterm/pterm"
)

// StatusLine is the user-facing status display. Every update is printed with
// a pterm prefix printer and remembered so it can be queried later.
type StatusLine struct {
	mu   sync.Mutex
	last string
}

// NewStatusLine creates an empty status line.
func NewStatusLine() *StatusLine {
	return &StatusLine{}
}

// SetStatus replaces the current status text.
func (s *StatusLine) SetStatus(text string) {
	s.mu.Lock()
	s.last = text
	s.mu.Unlock()

	pterm.Info.Println(text)
}

// Current returns the most recent status text.
func (s *StatusLine) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
