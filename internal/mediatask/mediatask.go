// Package mediatask implements the media thread (§4.7): a single
// capture→convert→encode→scan→packetize→send loop, started when the first
// session transitions to Playing and stopped when none remain.
package mediatask

import (
	"net"
	"sync"
	"time"

	"github.com/hoakea/camrtsp/internal/camera"
	"github.com/hoakea/camrtsp/internal/encoder"
	"github.com/hoakea/camrtsp/internal/logging"
	"github.com/hoakea/camrtsp/internal/rtppacket"
	"github.com/hoakea/camrtsp/internal/session"
	"github.com/hoakea/camrtsp/internal/yuv"
)

var log = logging.DefaultLogger.WithTag("mediatask")

// PixelFormat identifies the camera source's raw pixel layout, which
// determines which converter in internal/yuv is used.
type PixelFormat int

const (
	PixelFormatRGB565 PixelFormat = iota
	PixelFormatYUYV
)

// Task is the media thread. Like the teacher's singletonLoop, starting it
// is a vote: each session's transition to Playing casts a vote, each
// session leaving Playing retracts one, and the underlying goroutine runs
// iff the vote count is positive. Callers must pair every Start with a
// Stop.
type Task struct {
	camera      camera.Source
	format      PixelFormat
	adapter     *encoder.Adapter
	packetizer  *rtppacket.Packetizer
	conn        *net.UDPConn
	sessions    *session.Store
	frameInterval time.Duration
	fps         int

	mu         sync.Mutex
	votes      int
	quit       chan struct{}
	terminated chan struct{}
}

// New builds a Task. fps should match the fps the encoder.Config was
// opened with, so RTP timestamp deltas line up with the adapter's PTS
// derivation.
func New(cam camera.Source, format PixelFormat, adapter *encoder.Adapter, packetizer *rtppacket.Packetizer, conn *net.UDPConn, sessions *session.Store, frameInterval time.Duration, fps int) *Task {
	return &Task{
		camera:        cam,
		format:        format,
		adapter:       adapter,
		packetizer:    packetizer,
		conn:          conn,
		sessions:      sessions,
		frameInterval: frameInterval,
		fps:           fps,
	}
}

// Start casts a vote to run the task, starting the underlying goroutine if
// this is the first vote.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.votes++
	if t.votes > 1 {
		return
	}

	t.quit = make(chan struct{})
	t.terminated = make(chan struct{})
	go t.run(t.quit, t.terminated)
}

// Stop retracts a vote, stopping the underlying goroutine (and blocking
// until it has exited) once no votes remain.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.votes == 0 {
		return
	}
	t.votes--
	if t.votes > 0 {
		return
	}

	close(t.quit)
	terminated := t.terminated
	t.mu.Unlock()
	<-terminated
	t.mu.Lock()

	t.quit = nil
	t.terminated = nil
}

func (t *Task) run(quit <-chan struct{}, terminated chan struct{}) {
	defer close(terminated)

	if err := t.camera.StartStreaming(); err != nil {
		log.Error("media task: failed to start camera: %v", err)
		return
	}
	log.Info("media task started")
	defer log.Info("media task stopped")

	var frameCount int
	var windowEncodeTime time.Duration
	windowStart := time.Now()

	for {
		select {
		case <-quit:
			return
		default:
		}

		frameStart := time.Now()
		t.runOneFrame()
		windowEncodeTime += time.Since(frameStart)
		frameCount++

		if frameCount%30 == 0 {
			elapsed := time.Since(windowStart)
			fps := float64(30) / elapsed.Seconds()
			avgEncode := windowEncodeTime / 30
			log.Info("fps=%.1f avg_encode=%s", fps, avgEncode)
			windowStart = time.Now()
			windowEncodeTime = 0
		}

		elapsed := time.Since(frameStart)
		remaining := t.frameInterval - elapsed
		if remaining <= 0 {
			continue
		}
		timer := time.NewTimer(remaining)
		select {
		case <-quit:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runOneFrame executes one iteration of §4.7 steps 2-7: capture, convert,
// encode, scan, packetize, fan out. Errors at any stage are logged and the
// frame is dropped; they never abort the loop.
func (t *Task) runOneFrame() {
	if err := t.camera.CaptureFrame(); err != nil {
		log.Warn("capture failed: %v", err)
		return
	}

	raw := t.camera.ImageData()
	w, h := t.camera.Width(), t.camera.Height()

	var err error
	switch t.format {
	case PixelFormatYUYV:
		err = yuv.YUYVToYUV420(t.adapter.YUVBuffer(), raw, w, h)
	default:
		err = yuv.RGB565ToYUV420(t.adapter.YUVBuffer(), raw, w, h)
	}
	if err != nil {
		log.Warn("frame conversion failed: %v", err)
		return
	}

	nalus, _, pts, err := t.adapter.Process()
	if err != nil {
		log.Warn("encode failed: %v", err)
		return
	}

	dests := destinationsFor(t.sessions.PlayingSnapshot())
	err = t.packetizer.PacketizeFrame(nalus, pts, func(pkt []byte) error {
		rtppacket.FanOut(t.conn, dests, pkt)
		return nil
	})
	if err != nil {
		log.Warn("packetize failed: %v", err)
	}
}

// Sequence reports the packetizer's current RTP sequence number, used by
// the RTSP server as an advisory value in a PLAY response's RTP-Info
// header.
func (t *Task) Sequence() uint16 {
	return t.packetizer.Sequence()
}

func destinationsFor(sessions []*session.Session) []rtppacket.Destination {
	dests := make([]rtppacket.Destination, 0, len(sessions))
	for _, sess := range sessions {
		if sess.RemoteIP == nil || sess.ClientRTPPort == 0 {
			continue
		}
		dests = append(dests, rtppacket.Destination{
			Addr: &net.UDPAddr{IP: sess.RemoteIP, Port: int(sess.ClientRTPPort)},
		})
	}
	return dests
}
