package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcsig/internal/util"
)

// Compile-time interface check.
var _ Track = (*fakeTrack)(nil)

// fakeTrack replays a fixed list of packets, then reports io.EOF.
type fakeTrack struct {
	mime string

	mu      sync.Mutex
	packets []*rtp.Packet
}

func newFakeTrack(mime string, n int) *fakeTrack {
	t := &fakeTrack{mime: mime}
	for i := 0; i < n; i++ {
		t.packets = append(t.packets, &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    111,
				SequenceNumber: uint16(i),
				Timestamp:      uint32(i * 960),
				SSRC:           1234,
				Marker:         true,
			},
			Payload: []byte{0xfc, 0xff, 0xfe},
		})
	}
	return t
}

func (t *fakeTrack) ID() string       { return "audio0" }
func (t *fakeTrack) StreamID() string { return "stream0" }

func (t *fakeTrack) Codec() webrtc.RTPCodecParameters {
	return webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: t.mime, ClockRate: 48000, Channels: 2},
		PayloadType:        111,
	}
}

func (t *fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.packets) == 0 {
		return nil, nil, io.EOF
	}
	p := t.packets[0]
	t.packets = t.packets[1:]
	return p, nil, nil
}

// opaqueTrack has no RTP surface.
type opaqueTrack struct{}

func (opaqueTrack) ID() string       { return "opaque" }
func (opaqueTrack) StreamID() string { return "stream0" }

func waitRecorder(t *testing.T, r *Recorder) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not finish")
	}
}

func TestRecorderDrainsWithoutDir(t *testing.T) {
	r, err := NewRecorder(context.Background(), "")
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	before := util.Stats.MediaBytes.Load()
	track := newFakeTrack(webrtc.MimeTypeOpus, 4)
	r.Play(track)
	waitRecorder(t, r)

	if got := util.Stats.MediaBytes.Load() - before; got != int64(4*(12+3)) {
		t.Errorf("media bytes = %d, want %d", got, 4*(12+3))
	}
}

func TestRecorderWritesOgg(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rec")
	r, err := NewRecorder(context.Background(), dir)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	r.Play(newFakeTrack(webrtc.MimeTypeOpus, 10))
	waitRecorder(t, r)

	info, err := os.Stat(filepath.Join(dir, "track-1.ogg"))
	if err != nil {
		t.Fatalf("recording missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("recording is empty")
	}
}

func TestRecorderUnsupportedCodecDrains(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRecorder(context.Background(), dir)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	r.Play(newFakeTrack("video/AV1X", 3))
	waitRecorder(t, r)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("unexpected files for unsupported codec: %v", entries)
	}
}

func TestRecorderCancelledStopsReading(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := NewRecorder(ctx, "")
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	track := newFakeTrack(webrtc.MimeTypeOpus, 5)
	r.Play(track)
	waitRecorder(t, r)

	if len(track.packets) != 5 {
		t.Errorf("cancelled recorder read %d packets", 5-len(track.packets))
	}
}

func TestRecorderIgnoresOpaqueTrack(t *testing.T) {
	r, err := NewRecorder(context.Background(), "")
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	r.Play(opaqueTrack{})
	waitRecorder(t, r)
}
