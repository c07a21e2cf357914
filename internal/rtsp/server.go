// Package rtsp implements the server-side RTSP 1.0 protocol state machine
// (§4.6): a non-blocking TCP listener, per-connection request handling,
// Basic authentication, and the OPTIONS/DESCRIBE/SETUP/PLAY/TEARDOWN method
// handlers. It depends on internal/rtspwire for wire encoding/decoding and
// internal/session for the session table, but knows nothing about capture
// or encoding -- those are reached through the EncoderProvider and
// MediaTask interfaces, satisfied by the top-level coordinator.
package rtsp

import (
	"net"
	"time"

	"github.com/hoakea/camrtsp/internal/config"
	"github.com/hoakea/camrtsp/internal/logging"
	"github.com/hoakea/camrtsp/internal/rtspwire"
	"github.com/hoakea/camrtsp/internal/session"
)

var log = logging.DefaultLogger.WithTag("rtsp")

// readBudget is the maximum number of bytes read from a client socket in a
// single tick, matching the teacher's preference for small, bounded
// per-tick work over blocking reads.
const readBudget = 2048

// tickDeadline is how far in the future Accept/Read deadlines are set so
// that a tick never blocks for long when nothing is ready -- the Go
// equivalent of an O_NONBLOCK socket.
const tickDeadline = time.Millisecond

// EncoderProvider is the subset of the top-level coordinator that the
// RTSP server needs in order to answer DESCRIBE: lazily materializing an
// encoder and describing its video track in SDP terms.
type EncoderProvider interface {
	// EnsureEncoder lazily opens the encoder so at least one frame can be
	// primed for SPS/PPS. It does not start the camera; PrimeOnce and the
	// media task do that.
	EnsureEncoder() error
	// PrimeOnce runs a single capture/encode cycle so SPS/PPS becomes
	// available for an IDR-bearing DESCRIBE response, if it isn't already
	// cached.
	PrimeOnce() error
	// VideoDescription reports the track's dimensions and, if cached, its
	// SPS/PPS NAL payloads.
	VideoDescription() rtspwire.VideoDescription
}

// MediaTask is the subset of mediatask.Task that the RTSP server drives:
// start on the first Playing session, stop once none remain, and report
// an advisory starting sequence number for RTP-Info.
type MediaTask interface {
	Start()
	Stop()
	Sequence() uint16
}

// Server is the RTSP protocol thread. Run drives its non-blocking
// accept/read loop until the supplied channel is closed.
type Server struct {
	cfg       config.Config
	sessions  *session.Store
	encoder   EncoderProvider
	mediaTask MediaTask

	listener *net.TCPListener
}

// New builds a Server. It does not yet bind a socket; call Listen for that.
func New(cfg config.Config, sessions *session.Store, encoder EncoderProvider, mediaTask MediaTask) *Server {
	return &Server{
		cfg:       cfg,
		sessions:  sessions,
		encoder:   encoder,
		mediaTask: mediaTask,
	}
}

// Listen binds the TCP listener on cfg.RTSPPort with SO_REUSEADDR.
func (s *Server) Listen() error {
	ln, err := listen(s.cfg.RTSPPort)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Close releases the listener. Sessions in the table and their connections
// are not closed.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Run drives the protocol thread until quit is closed: each iteration
// accepts at most one new connection, reads at most once from each
// existing session's socket, sweeps idle sessions, and yields briefly
// before the next tick.
func (s *Server) Run(quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		default:
		}

		s.acceptOne()
		s.readEach()
		s.stopMediaTaskFor(s.sessions.SweepTimeouts(time.Now()))

		timer := time.NewTimer(tickDeadline)
		select {
		case <-quit:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// acceptOne accepts at most one pending connection per tick. If the
// session table is already at capacity the connection is closed
// immediately without ever gaining a session.
func (s *Server) acceptOne() {
	s.listener.SetDeadline(time.Now().Add(tickDeadline))
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}

	remoteIP := remoteIPOf(conn)
	sess := &session.Session{
		Conn:         conn,
		State:        session.Init,
		RemoteIP:     remoteIP,
		LastActivity: time.Now(),
	}
	if err := s.sessions.Insert(sess); err != nil {
		log.Warn("rejecting connection from %s: %v", remoteIP, err)
		conn.Close()
		return
	}
	log.Info("accepted connection from %s", remoteIP)
}

// stopMediaTaskFor retracts one media task vote for every session in sessions
// that was Playing, mirroring handleTeardown's wasPlaying/Stop() pattern for
// every other path that removes a session from the table (§4.6, §7).
func (s *Server) stopMediaTaskFor(sessions []*session.Session) {
	for _, sess := range sessions {
		if sess.State == session.Playing {
			s.mediaTask.Stop()
		}
	}
}

func remoteIPOf(conn net.Conn) net.IP {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.IP
	}
	return nil
}

// readEach performs one non-blocking read attempt per active connection
// and dispatches whatever request it parses to, if anything arrived.
func (s *Server) readEach() {
	for _, sess := range s.sessions.Snapshot() {
		s.readOne(sess)
	}
}

func (s *Server) readOne(sess *session.Session) {
	conn := sess.Conn
	if conn == nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(tickDeadline))
	buf := make([]byte, readBudget)
	n, err := conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return
		}
		// EOF or a hard error: the client went away.
		wasPlaying := sess.State == session.Playing
		s.sessions.Remove(sess)
		if wasPlaying {
			s.mediaTask.Stop()
		}
		return
	}
	if n == 0 {
		return
	}

	sess.Touch(time.Now())

	req, err := rtspwire.ParseRequest(buf[:n])
	if err != nil {
		log.Warn("malformed request from %s: %v", sess.RemoteIP, err)
		return
	}

	resp := s.handle(req, sess)
	if resp == nil {
		return
	}
	if _, err := conn.Write(resp.Bytes()); err != nil {
		log.Warn("write to %s failed: %v", sess.RemoteIP, err)
	}
}
