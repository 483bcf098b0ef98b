package webrtc

import (
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcsig/internal/protocol"
	"github.com/1ureka/rtcsig/internal/signaling"
)

// Compile-time interface check.
var _ signaling.Track = (*webrtc.TrackRemote)(nil)

// newOfferer creates a plain pion peer that wants to send one video track,
// the way the GStreamer pipeline does.
func newOfferer(t *testing.T) (*webrtc.PeerConnection, webrtc.SessionDescription) {
	t.Helper()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("NewPeerConnection failed: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendonly,
	}); err != nil {
		t.Fatalf("AddTransceiverFromKind failed: %v", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		t.Fatalf("SetLocalDescription failed: %v", err)
	}
	return pc, offer
}

func TestEngineAnswersOffer(t *testing.T) {
	offerer, offer := newOfferer(t)

	e, err := NewEngine(Config{})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer e.Close()
	e.Subscribe(signaling.EngineEvents{})

	if err := e.SetRemoteDescription(protocol.SessionDescription{Type: protocol.SDPTypeOffer, SDP: offer.SDP}); err != nil {
		t.Fatalf("SetRemoteDescription failed: %v", err)
	}

	answer, err := e.CreateAnswer()
	if err != nil {
		t.Fatalf("CreateAnswer failed: %v", err)
	}
	if answer.Type != protocol.SDPTypeAnswer {
		t.Errorf("answer type = %s", answer.Type)
	}
	if !strings.Contains(answer.SDP, "m=video") || !strings.Contains(answer.SDP, "a=recvonly") {
		t.Errorf("answer does not receive the offered video:\n%s", answer.SDP)
	}

	if err := e.SetLocalDescription(answer); err != nil {
		t.Fatalf("SetLocalDescription failed: %v", err)
	}

	if err := offerer.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer.SDP}); err != nil {
		t.Fatalf("offerer rejected answer: %v", err)
	}
}

func TestEngineRejectsMalformedOffer(t *testing.T) {
	e, err := NewEngine(Config{})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer e.Close()

	err = e.SetRemoteDescription(protocol.SessionDescription{Type: protocol.SDPTypeOffer, SDP: "v=0..."})
	if err == nil {
		t.Fatal("SetRemoteDescription accepted malformed SDP")
	}
}

func TestEngineCandidateBeforeRemoteDescription(t *testing.T) {
	e, err := NewEngine(Config{ICEServers: []string{"stun:stun.example.com:3478"}})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer e.Close()

	err = e.AddICECandidate(protocol.ICECandidate{
		SDPMLineIndex: 0,
		Candidate:     "candidate:1 1 udp 2122260223 127.0.0.1 9 typ host",
	})
	if err == nil {
		t.Fatal("AddICECandidate succeeded without a remote description")
	}
	if got := e.ConnectionState(); got != webrtc.PeerConnectionStateNew {
		t.Errorf("connection state = %s, want new", got)
	}
}

func TestCandidateConversion(t *testing.T) {
	in := protocol.ICECandidate{SDPMLineIndex: 2, Candidate: "candidate:1 1 udp 1 10.0.0.1 9 typ host"}

	init := candidateToPion(in)
	if init.SDPMLineIndex == nil || *init.SDPMLineIndex != 2 || init.Candidate != in.Candidate {
		t.Fatalf("candidateToPion = %+v", init)
	}

	out := candidateFromPion(init)
	if *out != in {
		t.Errorf("candidateFromPion = %+v, want %+v", *out, in)
	}

	if got := candidateFromPion(webrtc.ICECandidateInit{Candidate: "c"}); got.SDPMLineIndex != 0 {
		t.Errorf("missing mline index should default to 0, got %d", got.SDPMLineIndex)
	}
}

func TestDescriptionConversion(t *testing.T) {
	got := descriptionToPion(protocol.SessionDescription{Type: protocol.SDPTypeOffer, SDP: "v=0"})
	if got.Type != webrtc.SDPTypeOffer || got.SDP != "v=0" {
		t.Errorf("descriptionToPion = %+v", got)
	}
}

func TestConfigICEServers(t *testing.T) {
	if got := (Config{}).iceServers(); len(got) != len(defaultSTUNServers) {
		t.Errorf("default ICE servers = %q", got)
	}
	custom := []string{"stun:stun.example.com:3478"}
	if got := (Config{ICEServers: custom}).iceServers(); got[0] != custom[0] {
		t.Errorf("custom ICE servers = %q", got)
	}
}
