// Package config holds the immutable server configuration record and the
// logic to populate it from an optional .env file, environment variables,
// and command-line flag defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the set of parameters that fully determine server behavior.
// It is constructed once, validated, and shared by reference; nothing in
// this package mutates a Config after Default or Load returns it.
type Config struct {
	RTSPPort   int
	RTPPort    int
	RTCPPort   int
	StreamPath string

	BitrateBPS int
	GOP        int
	QPMin      int
	QPMax      int

	MaxClients int

	Username string
	Password string

	// FrameInterval is the target spacing between captured frames.
	// Default 33ms (~30 FPS).
	FrameInterval time.Duration

	Width  int
	Height int

	CameraDevice string
}

// Default returns a Config populated with the same defaults as the original
// rtsp_server component: port 554, /stream, 5004/5005, 2Mbps, GOP 30,
// QP 10-40, up to 3 clients, no credentials, 1280x720 @ 30fps.
func Default() Config {
	return Config{
		RTSPPort:      554,
		RTPPort:       5004,
		RTCPPort:      5005,
		StreamPath:    "/stream",
		BitrateBPS:    2_000_000,
		GOP:           30,
		QPMin:         10,
		QPMax:         40,
		MaxClients:    3,
		FrameInterval: 33 * time.Millisecond,
		Width:         1280,
		Height:        720,
		CameraDevice:  "/dev/video0",
	}
}

// Validate checks the invariants from the data model: qp_min <= qp_max, and
// all three ports are non-zero and pairwise distinct.
func (c Config) Validate() error {
	if c.QPMin > c.QPMax {
		return fmt.Errorf("config: qp_min (%d) must be <= qp_max (%d)", c.QPMin, c.QPMax)
	}
	if c.RTSPPort == 0 || c.RTPPort == 0 || c.RTCPPort == 0 {
		return fmt.Errorf("config: rtsp_port, rtp_port, and rtcp_port must all be nonzero")
	}
	if c.RTSPPort == c.RTPPort || c.RTSPPort == c.RTCPPort || c.RTPPort == c.RTCPPort {
		return fmt.Errorf("config: rtsp_port, rtp_port, and rtcp_port must be distinct")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: width and height must be positive")
	}
	if c.Width%2 != 0 || c.Height%2 != 0 {
		return fmt.Errorf("config: width and height must be even")
	}
	return nil
}

// AuthEnabled reports whether Basic authentication is required.
func (c Config) AuthEnabled() bool {
	return c.Username != "" || c.Password != ""
}

// Load starts from Default(), applies an optional .env file (if present, via
// godotenv), then overlays any of the recognized environment variables that
// are set. It does not touch command-line flags; callers that also accept
// flags should apply flag values after Load returns.
func Load(envFile string) (Config, error) {
	cfg := Default()

	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		// The .env file is optional; only log-worthy, not fatal.
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	cfg.RTSPPort = getEnvInt("RTSP_PORT", cfg.RTSPPort)
	cfg.RTPPort = getEnvInt("RTP_PORT", cfg.RTPPort)
	cfg.RTCPPort = getEnvInt("RTCP_PORT", cfg.RTCPPort)
	cfg.StreamPath = getEnvString("STREAM_PATH", cfg.StreamPath)
	cfg.BitrateBPS = getEnvInt("BITRATE_BPS", cfg.BitrateBPS)
	cfg.GOP = getEnvInt("GOP", cfg.GOP)
	cfg.QPMin = getEnvInt("QP_MIN", cfg.QPMin)
	cfg.QPMax = getEnvInt("QP_MAX", cfg.QPMax)
	cfg.MaxClients = getEnvInt("MAX_CLIENTS", cfg.MaxClients)
	cfg.Username = getEnvString("RTSP_USERNAME", cfg.Username)
	cfg.Password = getEnvString("RTSP_PASSWORD", cfg.Password)
	cfg.Width = getEnvInt("VIDEO_WIDTH", cfg.Width)
	cfg.Height = getEnvInt("VIDEO_HEIGHT", cfg.Height)
	cfg.CameraDevice = getEnvString("CAMERA_DEVICE", cfg.CameraDevice)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
