package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide signaling/media counter.
var Stats = &stats{}

type stats struct {
	MessagesRecv      atomic.Int64 // inbound signaling payloads
	MessagesSent      atomic.Int64 // outbound signaling payloads
	Malformed         atomic.Int64 // inbound payloads that failed to decode
	CandidatesSent    atomic.Int64 // local ICE candidates trickled to the peer
	CandidatesAdded   atomic.Int64 // remote ICE candidates accepted by the engine
	CandidatesDropped atomic.Int64 // remote ICE candidates dropped before any offer
	MediaBytes        atomic.Int64 // RTP payload bytes received on remote tracks
}

func (s *stats) AddRecv()             { s.MessagesRecv.Add(1) }
func (s *stats) AddSent()             { s.MessagesSent.Add(1) }
func (s *stats) AddMalformed()        { s.Malformed.Add(1) }
func (s *stats) AddCandidateSent()    { s.CandidatesSent.Add(1) }
func (s *stats) AddCandidateAdded()   { s.CandidatesAdded.Add(1) }
func (s *stats) AddCandidateDropped() { s.CandidatesDropped.Add(1) }
func (s *stats) AddMedia(n int)       { s.MediaBytes.Add(int64(n)) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

const reportInterval = 10 * time.Second

// StartStatsReporter launches a goroutine that logs signaling and media
// statistics every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()

		var prevRecv, prevSent, prevMedia int64
		for {
			select {
			case <-ticker.C:
				recv := Stats.MessagesRecv.Load()
				sent := Stats.MessagesSent.Load()
				media := Stats.MediaBytes.Load()

				inM := recv - prevRecv
				outM := sent - prevSent
				rate := float64(media-prevMedia) / reportInterval.Seconds()

				if inM > 0 || outM > 0 || rate > 10 {
					pterm.DefaultLogger.Info(formatStats(inM, outM,
						Stats.CandidatesSent.Load(),
						Stats.CandidatesAdded.Load(),
						Stats.CandidatesDropped.Load(),
						rate,
					))
				}

				prevRecv = recv
				prevSent = sent
				prevMedia = media

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(inM, outM, iceSent, iceAdded, iceDropped int64, mediaRate float64) string {
	return fmt.Sprintf("Msg: %2d↓ %2d↑ | ICE: %2d↑ %2d↓ %2d✗ | Media: %s/s",
		inM,
		outM,
		iceSent,
		iceAdded,
		iceDropped,
		formatBytes(mediaRate),
	)
}
