package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned by Decode for text that is neither JSON nor a
// relay control line.
var ErrMalformed = errors.New("malformed signaling message")

// envelope is the outer JSON object. Fields are kept raw so presence and
// null can be told apart before the payload is interpreted.
type envelope struct {
	SDP  json.RawMessage `json:"sdp"`
	ICE  json.RawMessage `json:"ice"`
	Type json.RawMessage `json:"type"` // legacy flat form only
}

// Decode parses and classifies one inbound payload.
func Decode(raw string) (*Message, error) {
	msg := &Message{Kind: KindUnrecognized, Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if isRelayLine(trimmed) {
		msg.Kind = KindRelay
		return msg, nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// Valid JSON of another shape (array, string, {"type": 1}...).
			return msg, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch {
	case present(env.SDP):
		desc, ok := decodeDescription(env.SDP, env.Type)
		if ok {
			msg.Kind = KindSessionDescription
			msg.Description = desc
		}
	case present(env.ICE):
		var c ICECandidate
		if err := json.Unmarshal(env.ICE, &c); err == nil {
			msg.Kind = KindICECandidate
			msg.Candidate = &c
		}
	}

	return msg, nil
}

// decodeDescription accepts the nested {"sdp": {"type", "sdp"}} form and the
// flat {"type": "offer", "sdp": "<text>"} form sent by GStreamer offerers.
func decodeDescription(data, flatType json.RawMessage) (*SessionDescription, bool) {
	var desc SessionDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return nil, false
		}
		desc.SDP = text
		if err := json.Unmarshal(flatType, &desc.Type); err != nil {
			return nil, false
		}
	}

	switch desc.Type {
	case SDPTypeOffer, SDPTypeAnswer:
		return &desc, true
	default:
		return nil, false
	}
}

func present(data json.RawMessage) bool {
	return len(data) > 0 && string(data) != "null"
}

func isRelayLine(s string) bool {
	word, _, _ := strings.Cut(s, " ")
	for _, verb := range relayVerbs {
		if word == verb {
			return true
		}
	}
	return false
}

// EncodeHello returns the raw-text registration line for clientID.
func EncodeHello(clientID string) string {
	return "HELLO " + clientID
}

// EncodeDescription serializes a session description as {"sdp": {...}}.
func EncodeDescription(desc SessionDescription) (string, error) {
	data, err := json.Marshal(struct {
		SDP SessionDescription `json:"sdp"`
	}{desc})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EncodeCandidate serializes an ICE candidate as {"ice": {...}}.
func EncodeCandidate(c ICECandidate) (string, error) {
	data, err := json.Marshal(struct {
		ICE ICECandidate `json:"ice"`
	}{c})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
