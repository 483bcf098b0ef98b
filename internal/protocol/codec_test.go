package protocol_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/1ureka/rtcsig/internal/protocol"
)

// TestDecodeClassification verifies that every inbound shape is classified
// into the expected Kind.
func TestDecodeClassification(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want protocol.Kind
	}{
		{"offer", `{"sdp":{"type":"offer","sdp":"v=0"}}`, protocol.KindSessionDescription},
		{"answer", `{"sdp":{"type":"answer","sdp":"v=0"}}`, protocol.KindSessionDescription},
		{"flat offer", `{"type":"offer","sdp":"v=0"}`, protocol.KindSessionDescription},
		{"candidate", `{"ice":{"sdpMLineIndex":0,"candidate":"candidate:1 1 udp 1 127.0.0.1 9 typ host"}}`, protocol.KindICECandidate},
		{"sdp wins over ice", `{"sdp":{"type":"offer","sdp":"v=0"},"ice":{"sdpMLineIndex":0,"candidate":"c"}}`, protocol.KindSessionDescription},
		{"null sdp falls through to ice", `{"sdp":null,"ice":{"sdpMLineIndex":1,"candidate":"c"}}`, protocol.KindICECandidate},
		{"null ice", `{"ice":null}`, protocol.KindUnrecognized},
		{"unknown object", `{"foo":1}`, protocol.KindUnrecognized},
		{"pranswer", `{"sdp":{"type":"pranswer","sdp":"v=0"}}`, protocol.KindUnrecognized},
		{"flat sdp without type", `{"sdp":"v=0"}`, protocol.KindUnrecognized},
		{"negative mline index", `{"ice":{"sdpMLineIndex":-1,"candidate":"c"}}`, protocol.KindUnrecognized},
		{"array", `[1,2,3]`, protocol.KindUnrecognized},
		{"json string", `"offer"`, protocol.KindUnrecognized},
		{"json null", `null`, protocol.KindUnrecognized},
		{"relay hello", `HELLO`, protocol.KindRelay},
		{"relay session ok", `SESSION_OK`, protocol.KindRelay},
		{"relay error", `ERROR peer 'browser1' not found`, protocol.KindRelay},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := protocol.Decode(tc.raw)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if msg.Kind != tc.want {
				t.Errorf("Kind = %s, want %s", msg.Kind, tc.want)
			}
			if msg.Raw != tc.raw {
				t.Errorf("Raw = %q, want %q", msg.Raw, tc.raw)
			}
		})
	}
}

// TestDecodeMalformed verifies that non-structured text is reported as
// ErrMalformed.
func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{"", "hello world", "{not json", `{"sdp":`} {
		_, err := protocol.Decode(raw)
		if !errors.Is(err, protocol.ErrMalformed) {
			t.Errorf("Decode(%q) error = %v, want ErrMalformed", raw, err)
		}
	}
}

// TestDecodeFields verifies that payload fields are passed through unmodified.
func TestDecodeFields(t *testing.T) {
	msg, err := protocol.Decode(`{"sdp":{"type":"offer","sdp":"v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\n"}}`)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Description.Type != protocol.SDPTypeOffer || msg.Description.SDP != "v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\n" {
		t.Errorf("unexpected description: %+v", msg.Description)
	}

	msg, err = protocol.Decode(`{"ice":{"sdpMLineIndex":3,"candidate":"candidate:842163049 1 udp 1677729535 1.2.3.4 5000 typ srflx"}}`)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := protocol.ICECandidate{SDPMLineIndex: 3, Candidate: "candidate:842163049 1 udp 1677729535 1.2.3.4 5000 typ srflx"}
	if *msg.Candidate != want {
		t.Errorf("candidate = %+v, want %+v", *msg.Candidate, want)
	}

	msg, err = protocol.Decode(`{"type":"offer","sdp":"v=0"}`)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Description.Type != protocol.SDPTypeOffer || msg.Description.SDP != "v=0" {
		t.Errorf("flat offer decoded as %+v", msg.Description)
	}
}

// TestEncode verifies the exact outbound wire shapes.
func TestEncode(t *testing.T) {
	if got := protocol.EncodeHello("client1"); got != "HELLO client1" {
		t.Errorf("EncodeHello = %q", got)
	}

	got, err := protocol.EncodeDescription(protocol.SessionDescription{Type: protocol.SDPTypeAnswer, SDP: "v=0...(answer)"})
	if err != nil {
		t.Fatalf("EncodeDescription failed: %v", err)
	}
	if want := `{"sdp":{"type":"answer","sdp":"v=0...(answer)"}}`; got != want {
		t.Errorf("EncodeDescription = %s, want %s", got, want)
	}

	got, err = protocol.EncodeCandidate(protocol.ICECandidate{SDPMLineIndex: 0, Candidate: "candidate:1 1 udp 1 10.0.0.1 9 typ host"})
	if err != nil {
		t.Fatalf("EncodeCandidate failed: %v", err)
	}
	if want := `{"ice":{"sdpMLineIndex":0,"candidate":"candidate:1 1 udp 1 10.0.0.1 9 typ host"}}`; got != want {
		t.Errorf("EncodeCandidate = %s, want %s", got, want)
	}
}

// TestEncodedMessagesDecode checks that what this side sends is classified
// correctly by a peer using the same codec.
func TestEncodedMessagesDecode(t *testing.T) {
	answer, _ := protocol.EncodeDescription(protocol.SessionDescription{Type: protocol.SDPTypeAnswer, SDP: "v=0"})
	ice, _ := protocol.EncodeCandidate(protocol.ICECandidate{SDPMLineIndex: 1, Candidate: "c"})

	for raw, want := range map[string]protocol.Kind{
		answer: protocol.KindSessionDescription,
		ice:    protocol.KindICECandidate,
	} {
		msg, err := protocol.Decode(raw)
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", raw, err)
		}
		if msg.Kind != want {
			t.Errorf("Decode(%s).Kind = %s, want %s", raw, msg.Kind, want)
		}
		if !json.Valid([]byte(raw)) {
			t.Errorf("%s is not valid JSON", raw)
		}
	}
}
