package rtsp

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/hoakea/camrtsp/internal/rtspwire"
	"github.com/hoakea/camrtsp/internal/session"
)

const realm = `RTSP Server`

// handle is the top-level dispatch: the Basic-auth gate runs in front of
// every method except OPTIONS (§4.6), then the request is routed to its
// handler. Unrecognized methods, including PAUSE (Open Question 4), are
// silently dropped -- no response is returned at all.
func (s *Server) handle(req *rtspwire.Request, sess *session.Session) *rtspwire.Response {
	if req.Method != rtspwire.MethodOptions && s.cfg.AuthEnabled() {
		if resp := s.checkAuth(req); resp != nil {
			return resp
		}
	}

	switch req.Method {
	case rtspwire.MethodOptions:
		return s.handleOptions(req)
	case rtspwire.MethodDescribe:
		return s.handleDescribe(req, sess)
	case rtspwire.MethodSetup:
		return s.handleSetup(req, sess)
	case rtspwire.MethodPlay:
		return s.handlePlay(req, sess)
	case rtspwire.MethodTeardown:
		return s.handleTeardown(req, sess)
	default:
		return nil
	}
}

// checkAuth validates an "Authorization: Basic <b64>" header against the
// configured username/password, returning a 401 challenge when it is
// missing or wrong and nil when the request may proceed.
func (s *Server) checkAuth(req *rtspwire.Request) *rtspwire.Response {
	want := s.cfg.Username + ":" + s.cfg.Password
	auth := req.Header("Authorization")

	const prefix = "Basic "
	if strings.HasPrefix(auth, prefix) {
		got := string(rtspwire.Base64Decode(auth[len(prefix):]))
		if got == want {
			return nil
		}
	}

	resp := rtspwire.NewResponse(401)
	resp.Set("CSeq", strconv.Itoa(req.CSeq))
	resp.Set("WWW-Authenticate", fmt.Sprintf(`Basic realm="%s"`, realm))
	return resp
}

func (s *Server) handleOptions(req *rtspwire.Request) *rtspwire.Response {
	resp := rtspwire.NewResponse(200)
	resp.Set("CSeq", strconv.Itoa(req.CSeq))
	resp.Set("Public", "OPTIONS, DESCRIBE, SETUP, PLAY, TEARDOWN")
	return resp
}

func (s *Server) handleDescribe(req *rtspwire.Request, sess *session.Session) *rtspwire.Response {
	if err := s.encoder.EnsureEncoder(); err != nil {
		log.Error("DESCRIBE: failed to start encoder: %v", err)
		return serverError(req)
	}

	v := s.encoder.VideoDescription()
	if (len(v.SPS) == 0 || len(v.PPS) == 0) && s.sessions.CountPlaying() == 0 {
		// The media task is the only other caller of the encoder, and it
		// only runs once a session is Playing -- priming here is safe
		// precisely because that can't yet be happening (§4.6, §7).
		if err := s.encoder.PrimeOnce(); err != nil {
			log.Warn("DESCRIBE: priming encoder failed: %v", err)
		}
		v = s.encoder.VideoDescription()
	}

	serverAddr := localIPOf(sess.Conn)
	body := rtspwire.BuildSDP(s.cfg.StreamPath, serverAddr, v)

	resp := rtspwire.NewResponse(200)
	resp.Set("CSeq", strconv.Itoa(req.CSeq))
	resp.SetBody("application/sdp", []byte(body))
	return resp
}

func localIPOf(conn net.Conn) string {
	if conn == nil {
		return "0.0.0.0"
	}
	if addr, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		return addr.IP.String()
	}
	return "0.0.0.0"
}

// handleSetup parses the Transport header, rejecting interleaved/TCP
// transports with 461, binds the session to the client's RTP/RTCP ports,
// assigns it an ID, and transitions Init -> Ready.
func (s *Server) handleSetup(req *rtspwire.Request, sess *session.Session) *rtspwire.Response {
	transport := req.Header("Transport")
	rtpPort, rtcpPort, ok := parseClientPorts(transport)
	if !ok {
		resp := rtspwire.NewResponse(461)
		resp.Set("CSeq", strconv.Itoa(req.CSeq))
		return resp
	}

	if sess.ID == "" {
		id, err := session.NewID()
		if err != nil {
			log.Error("SETUP: failed to allocate session id: %v", err)
			return serverError(req)
		}
		sess.ID = id
	}
	sess.ClientRTPPort = rtpPort
	sess.ClientRTCPPort = rtcpPort
	if sess.State == session.Init {
		sess.State = session.Ready
	}

	resp := rtspwire.NewResponse(200)
	resp.Set("CSeq", strconv.Itoa(req.CSeq))
	resp.Set("Session", sess.ID)
	resp.Set("Transport", fmt.Sprintf(
		"RTP/AVP;unicast;client_port=%d-%d;server_port=%d-%d",
		rtpPort, rtcpPort, s.cfg.RTPPort, s.cfg.RTCPPort))
	return resp
}

// parseClientPorts extracts the client_port=RTP-RTCP parameter from a
// Transport header, rejecting any header that requests TCP interleaving
// (§4.6's 461 Unsupported Transport path) rather than UDP unicast.
func parseClientPorts(transport string) (rtp, rtcp uint16, ok bool) {
	if transport == "" {
		return 0, 0, false
	}
	for _, part := range strings.Split(transport, ";") {
		part = strings.TrimSpace(part)
		if strings.EqualFold(part, "RTP/AVP/TCP") || strings.HasPrefix(part, "interleaved=") {
			return 0, 0, false
		}
		if strings.HasPrefix(part, "client_port=") {
			portRange := strings.TrimPrefix(part, "client_port=")
			fields := strings.SplitN(portRange, "-", 2)
			if len(fields) != 2 {
				return 0, 0, false
			}
			rtpN, err1 := strconv.Atoi(fields[0])
			rtcpN, err2 := strconv.Atoi(fields[1])
			if err1 != nil || err2 != nil || rtpN <= 0 || rtcpN <= 0 {
				return 0, 0, false
			}
			rtp, rtcp = uint16(rtpN), uint16(rtcpN)
		}
	}
	if rtp == 0 {
		return 0, 0, false
	}
	return rtp, rtcp, true
}

// handlePlay ensures the encoder exists, transitions the session to
// Playing (starting the media task on the first such transition), and
// responds with an RTP-Info header carrying the packetizer's current
// sequence number as an advisory starting point.
func (s *Server) handlePlay(req *rtspwire.Request, sess *session.Session) *rtspwire.Response {
	if sess.State == session.Init {
		resp := rtspwire.NewResponse(455)
		resp.Set("CSeq", strconv.Itoa(req.CSeq))
		return resp
	}

	if err := s.encoder.EnsureEncoder(); err != nil {
		log.Error("PLAY: failed to start encoder: %v", err)
		return serverError(req)
	}

	wasPlaying := sess.State == session.Playing
	sess.State = session.Playing
	if !wasPlaying {
		s.mediaTask.Start()
	}

	resp := rtspwire.NewResponse(200)
	resp.Set("CSeq", strconv.Itoa(req.CSeq))
	resp.Set("Session", sess.ID)
	resp.Set("RTP-Info", fmt.Sprintf("url=%s;seq=%d", s.cfg.StreamPath, s.mediaTask.Sequence()))
	return resp
}

// handleTeardown removes the session from the table (closing its
// connection) and stops the media task once no Playing sessions remain.
func (s *Server) handleTeardown(req *rtspwire.Request, sess *session.Session) *rtspwire.Response {
	wasPlaying := sess.State == session.Playing

	resp := rtspwire.NewResponse(200)
	resp.Set("CSeq", strconv.Itoa(req.CSeq))
	resp.Set("Session", sess.ID)

	if wasPlaying {
		s.mediaTask.Stop()
	}
	s.sessions.Remove(sess)
	return resp
}

func serverError(req *rtspwire.Request) *rtspwire.Response {
	resp := rtspwire.NewResponse(500)
	resp.Set("CSeq", strconv.Itoa(req.CSeq))
	return resp
}
