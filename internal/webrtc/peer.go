// Package webrtc is the pion-backed negotiation engine used by the answerer.
package webrtc

import (
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcsig/internal/util"
)

// Default STUN servers for ICE candidate gathering. No TURN: media is meant
// to flow directly between the two peers.
var defaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
}

// Config configures the PeerConnection created for each engine.
type Config struct {
	ICEServers []string // STUN/TURN URLs; empty uses defaultSTUNServers
}

func (c Config) iceServers() []string {
	if len(c.ICEServers) == 0 {
		return defaultSTUNServers
	}
	return c.ICEServers
}

// newAPI builds a pion API with the default codecs and interceptors, logging
// through the application logger.
func newAPI() (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	s := webrtc.SettingEngine{}
	s.LoggerFactory = util.PionLoggerFactory()

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(s),
	), nil
}

// newPeerConnection creates a PeerConnection configured with cfg's ICE servers.
func newPeerConnection(cfg Config) (*webrtc.PeerConnection, error) {
	api, err := newAPI()
	if err != nil {
		return nil, err
	}

	return api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: cfg.iceServers()},
		},
	})
}
