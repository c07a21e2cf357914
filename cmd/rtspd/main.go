// Command rtspd serves a single H.264/RTP video stream over RTSP.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/hoakea/camrtsp"
	"github.com/hoakea/camrtsp/internal/config"
	"github.com/hoakea/camrtsp/internal/logging"
)

var log = logging.DefaultLogger.WithTag("main")

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		fmt.Println("rtspd (camrtsp)")
		os.Exit(0)
	}

	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		log.Fatal(err)
	}
	applyFlagOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// Only the built-in synthetic test-pattern camera.Source is wired up
	// in this build; a real v4l2-backed camera.Source would be selected
	// here based on cfg.CameraDevice.
	srv, err := camrtsp.New(cfg, nil)
	if err != nil {
		log.Fatal(err)
	}

	quit := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(quit)
	}()

	if err := srv.Serve(quit); err != nil {
		log.Fatal(err)
	}
}

// applyFlagOverrides overlays any explicitly-set command-line flags on top
// of the config produced by config.Load (.env + environment + defaults).
// Flags left at their pflag zero value are treated as "not set" and do not
// override the loaded config.
func applyFlagOverrides(cfg *config.Config) {
	if flagRTSPPort != 0 {
		cfg.RTSPPort = flagRTSPPort
	}
	if flagRTPPort != 0 {
		cfg.RTPPort = flagRTPPort
	}
	if flagRTCPPort != 0 {
		cfg.RTCPPort = flagRTCPPort
	}
	if flagStreamPath != "" {
		cfg.StreamPath = flagStreamPath
	}
	if flagBitrate != 0 {
		cfg.BitrateBPS = flagBitrate
	}
	if flagGOP != 0 {
		cfg.GOP = flagGOP
	}
	if flagQPMin != 0 {
		cfg.QPMin = flagQPMin
	}
	if flagQPMax != 0 {
		cfg.QPMax = flagQPMax
	}
	if flagMaxClients != 0 {
		cfg.MaxClients = flagMaxClients
	}
	if flagUsername != "" {
		cfg.Username = flagUsername
	}
	if flagPassword != "" {
		cfg.Password = flagPassword
	}
	if flagCamera != "" {
		cfg.CameraDevice = flagCamera
	}
	if flagWidth != 0 {
		cfg.Width = flagWidth
	}
	if flagHeight != 0 {
		cfg.Height = flagHeight
	}
}
