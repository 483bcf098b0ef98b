// Command rtcsig is the signaling client entry point.
//
// This tool joins a GStreamer-style signaling relay as a WebRTC answerer:
// it registers with HELLO, answers the remote peer's SDP offer and trickles
// ICE candidates. Media flows peer-to-peer; the relay only carries metadata.
//
// Flags: -url, -id, -role, -stun, -record, -buffer-early-ice, -debug. When
// -url is omitted the URL is prompted for interactively.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/rtcsig/internal/config"
	"github.com/1ureka/rtcsig/internal/media"
	"github.com/1ureka/rtcsig/internal/signaling"
	"github.com/1ureka/rtcsig/internal/transport"
	"github.com/1ureka/rtcsig/internal/util"
	rtc "github.com/1ureka/rtcsig/internal/webrtc"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags.
	urlFlag := flag.String("url", "", "Signaling relay WebSocket URL (default "+config.DefaultServerURL+")")
	idFlag := flag.String("id", config.DefaultClientID, "Client id announced with HELLO")
	roleFlag := flag.String("role", string(config.RoleAnswerer), "Role: answerer or inert")
	stunFlag := flag.String("stun", "", "Comma-separated STUN/TURN URLs")
	recordFlag := flag.String("record", "", "Directory to record received media into")
	bufferFlag := flag.Bool("buffer-early-ice", false, "Buffer ICE candidates that arrive before the offer")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println("rtcsig v" + version)
	pterm.Println()

	rawURL := *urlFlag
	if rawURL == "" {
		rawURL = askURL()
	}
	wsURL, err := config.NormalizeURL(rawURL)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	cfg := config.Config{
		Role:                  config.Role(strings.ToLower(*roleFlag)),
		ServerURL:             wsURL,
		ClientID:              *idFlag,
		ICEServers:            config.SplitList(*stunFlag),
		RecordDir:             *recordFlag,
		BufferEarlyCandidates: *bufferFlag,
	}
	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	run(ctx, cfg)
	util.LogInfo("signaling client stopped")
}

// run wires the transport, the state machine and the media sink, then blocks
// until ctx is cancelled.
func run(ctx context.Context, cfg config.Config) {
	rec, err := media.NewRecorder(ctx, cfg.RecordDir)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	var factory signaling.EngineFactory
	if cfg.Role == config.RoleAnswerer {
		factory = rtc.Factory(rtc.Config{ICEServers: cfg.ICEServers})
	}

	tr := transport.New(cfg.ServerURL)
	m := signaling.NewMachine(tr, signaling.Options{
		ClientID:              cfg.ClientID,
		Role:                  cfg.Role,
		NewEngine:             factory,
		Status:                util.NewStatusLine(),
		Media:                 rec,
		BufferEarlyCandidates: cfg.BufferEarlyCandidates,
	})

	util.LogInfo("connecting to %s as %q (%s)", cfg.ServerURL, cfg.ClientID, cfg.Role)
	util.StartStatsReporter(ctx)

	machineDone := make(chan struct{})
	go func() {
		defer close(machineDone)
		m.Run(ctx)
	}()

	// The transport is not retried; once it closes the peer connection keeps
	// running until the user quits.
	if err := tr.Run(ctx, m); err != nil {
		util.LogWarning("signaling connection ended: %v", err)
	}
	if ctx.Err() == nil {
		util.LogInfo("press Ctrl+C to quit")
	}

	<-ctx.Done()
	<-machineDone
	rec.Wait()
}

// askURL prompts for the relay URL until a valid one is entered. An empty
// answer selects the default relay.
func askURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Signaling relay URL (empty for " + config.DefaultServerURL + ")").
			Show()

		raw = strings.TrimSpace(raw)
		if raw == "" {
			pterm.Println()
			return config.DefaultServerURL
		}
		if _, err := config.NormalizeURL(raw); err == nil {
			pterm.Println()
			return raw
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a valid host or URL")
	}
}
