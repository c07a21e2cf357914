// Package camrtsp is the top-level coordinator (§4.8): it owns the
// configuration, the listening TCP socket, the shared RTP/RTCP UDP
// sockets, the lazily-created encoder, the media task, and an enable
// flag. It wires internal/rtsp, internal/mediatask, internal/encoder, and
// internal/camera together into a runnable RTSP server.
package camrtsp

import (
	"math/rand"
	"net"
	"sync"

	"github.com/hoakea/camrtsp/internal/camera"
	"github.com/hoakea/camrtsp/internal/config"
	"github.com/hoakea/camrtsp/internal/encoder"
	"github.com/hoakea/camrtsp/internal/logging"
	"github.com/hoakea/camrtsp/internal/mediatask"
	"github.com/hoakea/camrtsp/internal/rtppacket"
	"github.com/hoakea/camrtsp/internal/rtsp"
	"github.com/hoakea/camrtsp/internal/rtspwire"
	"github.com/hoakea/camrtsp/internal/session"
	"github.com/hoakea/camrtsp/internal/yuv"
	"golang.org/x/xerrors"
)

var log = logging.DefaultLogger.WithTag("camrtsp")

// Server bootstraps and owns every subsystem of a single RTSP streaming
// server instance.
type Server struct {
	cfg config.Config

	cam camera.Source

	sessions *session.Store
	rtpConn  *net.UDPConn

	rtsp *rtsp.Server

	mu      sync.Mutex
	enabled bool
	adapter *encoder.Adapter
	task    *mediatask.Task
}

// New builds a Server from cfg but does not yet bind any socket. cam is
// the camera source to stream from; passing nil uses an internal
// synthetic test pattern sized to cfg.Width/cfg.Height.
func New(cfg config.Config, cam camera.Source) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cam == nil {
		pattern, err := camera.NewTestPattern(cfg.Width, cfg.Height)
		if err != nil {
			return nil, xerrors.Errorf("camrtsp: building test pattern source: %w", err)
		}
		cam = pattern
	}

	s := &Server{
		cfg:      cfg,
		cam:      cam,
		sessions: session.NewStore(cfg.MaxClients),
		enabled:  true,
	}
	s.rtsp = rtsp.New(cfg, s.sessions, s, s)
	return s, nil
}

// Serve binds the RTSP listener and the shared RTP UDP socket, then runs
// the protocol thread until quit is closed.
func (s *Server) Serve(quit <-chan struct{}) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: s.cfg.RTPPort})
	if err != nil {
		return xerrors.Errorf("camrtsp: binding RTP socket: %w", err)
	}
	s.rtpConn = conn
	defer conn.Close()

	if err := s.rtsp.Listen(); err != nil {
		return xerrors.Errorf("camrtsp: binding RTSP listener: %w", err)
	}
	defer s.rtsp.Close()

	log.Info("listening: rtsp=%d rtp=%d rtcp=%d path=%s", s.cfg.RTSPPort, s.cfg.RTPPort, s.cfg.RTCPPort, s.cfg.StreamPath)
	s.rtsp.Run(quit)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task != nil {
		s.task.Stop()
		s.task = nil
	}
	s.releaseEncoderLocked()
	return nil
}

// Enable resumes accepting clients and allows the encoder to be recreated
// lazily on the next DESCRIBE/PLAY.
func (s *Server) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
}

// Disable stops the media task and releases the encoder and its buffers,
// but leaves the RTSP listener and session table untouched: clients stay
// connected, but DESCRIBE/PLAY will fail with 500 until Enable is called
// again (§4.8).
func (s *Server) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enabled = false
	if s.task != nil {
		// Each Playing session holds one start vote on the task; retract
		// them all so the task actually stops. Extra Stops are no-ops.
		for n := s.sessions.CountPlaying(); n > 0; n-- {
			s.task.Stop()
		}
		s.task = nil
	}
	s.releaseEncoderLocked()
}

func (s *Server) releaseEncoderLocked() {
	if s.adapter != nil {
		s.adapter.Close()
		s.adapter = nil
	}
}

// EnsureEncoder implements rtsp.EncoderProvider: it lazily opens the
// encoder on first use. The camera is started later, by PrimeOnce or by the
// media task.
func (s *Server) EnsureEncoder() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureEncoderLocked()
}

func (s *Server) ensureEncoderLocked() error {
	if !s.enabled {
		return xerrors.New("camrtsp: server is disabled")
	}
	if s.adapter != nil {
		return nil
	}

	adapter, err := encoder.NewAdapter(encoder.NewSoftwareBackend(), encoder.Config{
		Width:      s.cfg.Width,
		Height:     s.cfg.Height,
		FPS:        framesPerSecond(s.cfg),
		GOP:        s.cfg.GOP,
		BitrateBPS: s.cfg.BitrateBPS,
		QPMin:      s.cfg.QPMin,
		QPMax:      s.cfg.QPMax,
	})
	if err != nil {
		return xerrors.Errorf("camrtsp: opening encoder: %w", err)
	}
	s.adapter = adapter

	ssrc := rand.Uint32()
	packetizer := rtppacket.NewPacketizer(ssrc)
	s.task = mediatask.New(s.cam, mediatask.PixelFormatRGB565, adapter, packetizer, s.rtpConn, s.sessions, s.cfg.FrameInterval, framesPerSecond(s.cfg))
	return nil
}

// PrimeOnce implements rtsp.EncoderProvider: it runs one capture/encode
// cycle so SPS/PPS is cached before DESCRIBE responds, per §4.6's
// "DESCRIBE primes SPS/PPS with a one-shot encode" rule.
func (s *Server) PrimeOnce() error {
	s.mu.Lock()
	adapter := s.adapter
	cam := s.cam
	s.mu.Unlock()
	if adapter == nil {
		return xerrors.New("camrtsp: encoder not open")
	}

	if !cam.IsStreaming() {
		if err := cam.StartStreaming(); err != nil {
			return xerrors.Errorf("camrtsp: starting camera for priming: %w", err)
		}
	}
	if err := cam.CaptureFrame(); err != nil {
		return xerrors.Errorf("camrtsp: priming capture: %w", err)
	}

	raw := cam.ImageData()
	if err := yuv.RGB565ToYUV420(adapter.YUVBuffer(), raw, cam.Width(), cam.Height()); err != nil {
		return xerrors.Errorf("camrtsp: priming conversion: %w", err)
	}

	_, _, _, err := adapter.Process()
	return err
}

// VideoDescription implements rtsp.EncoderProvider.
func (s *Server) VideoDescription() rtspwire.VideoDescription {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := rtspwire.VideoDescription{Width: s.cfg.Width, Height: s.cfg.Height}
	if s.adapter != nil {
		v.SPS = s.adapter.SPS()
		v.PPS = s.adapter.PPS()
	}
	return v
}

// Start implements rtsp.MediaTask by delegating to the lazily-created
// media task. It is a no-op if EnsureEncoder has not yet been called --
// that should never happen in practice, since every PLAY handler calls
// EnsureEncoder first.
func (s *Server) Start() {
	s.mu.Lock()
	task := s.task
	s.mu.Unlock()
	if task != nil {
		task.Start()
	}
}

// Stop implements rtsp.MediaTask.
func (s *Server) Stop() {
	s.mu.Lock()
	task := s.task
	s.mu.Unlock()
	if task != nil {
		task.Stop()
	}
}

// Sequence implements rtsp.MediaTask.
func (s *Server) Sequence() uint16 {
	s.mu.Lock()
	task := s.task
	s.mu.Unlock()
	if task != nil {
		return task.Sequence()
	}
	return 0
}

func framesPerSecond(cfg config.Config) int {
	if cfg.FrameInterval <= 0 {
		return 30
	}
	fps := int(1_000_000_000 / cfg.FrameInterval.Nanoseconds())
	if fps <= 0 {
		return 1
	}
	return fps
}
