// Package media consumes remote tracks delivered by the negotiation engine.
// Each track is drained on its own goroutine and, when a record directory is
// configured, written to disk in a container matching its codec.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/h264writer"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"

	"github.com/1ureka/rtcsig/internal/signaling"
	"github.com/1ureka/rtcsig/internal/util"
)

// Opus recording parameters.
const (
	OpusSampleRate   = 48000
	OpusChannelCount = 2
)

// Track is a remote track that can be read packet by packet.
// *webrtc.TrackRemote satisfies it.
type Track interface {
	signaling.Track
	Codec() webrtc.RTPCodecParameters
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// Compile-time interface checks.
var (
	_ Track               = (*webrtc.TrackRemote)(nil)
	_ signaling.MediaSink = (*Recorder)(nil)
)

// rtpWriter is the common surface of pion's media writers.
type rtpWriter interface {
	WriteRTP(*rtp.Packet) error
	Close() error
}

// Recorder is the media sink of the client.
type Recorder struct {
	ctx context.Context
	dir string // empty: drain only
	wg  sync.WaitGroup

	mu     sync.Mutex
	tracks int
}

// NewRecorder creates a recorder. Tracks stop being read when ctx is
// cancelled. An empty dir disables recording.
func NewRecorder(ctx context.Context, dir string) (*Recorder, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create record dir: %w", err)
		}
	}
	return &Recorder{ctx: ctx, dir: dir}, nil
}

// Play implements signaling.MediaSink. Tracks that cannot be read as RTP are
// logged and ignored.
func (r *Recorder) Play(t signaling.Track) {
	track, ok := t.(Track)
	if !ok {
		util.LogWarning("[media] track %s is not readable, ignoring", t.ID())
		return
	}

	r.mu.Lock()
	r.tracks++
	n := r.tracks
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.consume(n, track)
	}()
}

// Wait blocks until every track goroutine has returned.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// consume reads packets until the track ends or the recorder is cancelled.
func (r *Recorder) consume(n int, track Track) {
	codec := track.Codec()
	tag := fmt.Sprintf("[media %d %s]", n, codec.MimeType)

	w, path, err := r.openWriter(n, codec)
	if err != nil {
		util.LogError("%s cannot record: %v", tag, err)
		w = nil
	}
	if w != nil {
		util.LogInfo("%s recording to %s", tag, path)
		defer func() {
			if w == nil {
				return
			}
			if err := w.Close(); err != nil {
				util.LogWarning("%s failed to close %s: %v", tag, path, err)
			}
		}()
	}

	flowing := false
	for {
		if r.ctx.Err() != nil {
			return
		}

		pkt, _, err := track.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				util.LogInfo("%s track ended", tag)
			} else {
				util.LogDebug("%s read stopped: %v", tag, err)
			}
			return
		}

		if !flowing {
			flowing = true
			util.LogSuccess("%s media flowing (stream %s, track %s)", tag, track.StreamID(), track.ID())
		}
		util.Stats.AddMedia(pkt.MarshalSize())

		if w == nil {
			continue
		}
		if err := w.WriteRTP(pkt); err != nil {
			util.LogError("%s write failed, draining only: %v", tag, err)
			w.Close()
			w = nil
		}
	}
}

// openWriter picks a container for the codec. It returns a nil writer when
// recording is disabled or the codec has no supported container.
func (r *Recorder) openWriter(n int, codec webrtc.RTPCodecParameters) (rtpWriter, string, error) {
	if r.dir == "" {
		return nil, "", nil
	}

	base := filepath.Join(r.dir, fmt.Sprintf("track-%d", n))
	switch strings.ToLower(codec.MimeType) {
	case strings.ToLower(webrtc.MimeTypeVP8):
		path := base + ".ivf"
		w, err := ivfwriter.New(path)
		return w, path, err

	case strings.ToLower(webrtc.MimeTypeH264):
		path := base + ".h264"
		w, err := h264writer.New(path)
		return w, path, err

	case strings.ToLower(webrtc.MimeTypeOpus):
		path := base + ".ogg"
		w, err := oggwriter.New(path, OpusSampleRate, OpusChannelCount)
		return w, path, err
	}

	util.LogWarning("[media] no recorder for %s, draining only", codec.MimeType)
	return nil, "", nil
}
