// Command relay runs a local GStreamer-compatible signaling relay for rtcsig.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"github.com/1ureka/rtcsig/internal/relay"
	"github.com/1ureka/rtcsig/internal/util"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	listen := flag.String("listen", ":8443", "Address to listen on")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	s := relay.NewServer()
	addr, err := s.Start(*listen)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	defer s.Close()

	pterm.Info.Println("relay listening on ws://" + addr)
	<-ctx.Done()
	util.LogInfo("relay stopped")
}
