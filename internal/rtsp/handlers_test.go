package rtsp

import (
	"strings"
	"testing"

	"github.com/hoakea/camrtsp/internal/config"
	"github.com/hoakea/camrtsp/internal/rtspwire"
	"github.com/hoakea/camrtsp/internal/session"
)

type fakeEncoder struct {
	ensureErr error
	primeErr  error
	desc      rtspwire.VideoDescription
	primed    bool
}

func (f *fakeEncoder) EnsureEncoder() error { return f.ensureErr }
func (f *fakeEncoder) PrimeOnce() error {
	f.primed = true
	return f.primeErr
}
func (f *fakeEncoder) VideoDescription() rtspwire.VideoDescription { return f.desc }

type fakeMediaTask struct {
	starts, stops int
	seq           uint16
}

func (f *fakeMediaTask) Start()          { f.starts++ }
func (f *fakeMediaTask) Stop()           { f.stops++ }
func (f *fakeMediaTask) Sequence() uint16 { return f.seq }

func newTestServer(cfg config.Config) (*Server, *fakeEncoder, *fakeMediaTask) {
	enc := &fakeEncoder{desc: rtspwire.VideoDescription{Width: 640, Height: 480}}
	mt := &fakeMediaTask{}
	return New(cfg, session.NewStore(4), enc, mt), enc, mt
}

func req(method string, cseq int, headers map[string]string) *rtspwire.Request {
	return &rtspwire.Request{Method: method, CSeq: cseq, Headers: headers}
}

func TestHandleOptionsNoAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(config.Default())
	resp := srv.handle(req(rtspwire.MethodOptions, 1, nil), &session.Session{})
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if !strings.Contains(headerValue(resp, "Public"), "DESCRIBE") {
		t.Error("Public header missing DESCRIBE")
	}
}

func TestAuthChallengeWhenMissingHeader(t *testing.T) {
	cfg := config.Default()
	cfg.Username, cfg.Password = "admin", "secret"
	srv, _, _ := newTestServer(cfg)

	resp := srv.handle(req(rtspwire.MethodDescribe, 2, nil), &session.Session{})
	if resp.Status != 401 {
		t.Fatalf("status = %d, want 401", resp.Status)
	}
	if headerValue(resp, "WWW-Authenticate") != `Basic realm="RTSP Server"` {
		t.Errorf("WWW-Authenticate = %q", headerValue(resp, "WWW-Authenticate"))
	}
}

func TestAuthAcceptsKnownVector(t *testing.T) {
	cfg := config.Default()
	cfg.Username, cfg.Password = "admin", "secret"
	srv, _, _ := newTestServer(cfg)

	// "admin:secret" base64-encodes to "YWRtaW46c2VjcmV0".
	headers := map[string]string{"Authorization": "Basic YWRtaW46c2VjcmV0"}
	resp := srv.handle(req(rtspwire.MethodDescribe, 3, headers), &session.Session{})
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
}

func TestAuthRejectsWrongCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Username, cfg.Password = "admin", "secret"
	srv, _, _ := newTestServer(cfg)

	headers := map[string]string{"Authorization": "Basic d3Jvbmc6d3Jvbmc="}
	resp := srv.handle(req(rtspwire.MethodDescribe, 4, headers), &session.Session{})
	if resp.Status != 401 {
		t.Fatalf("status = %d, want 401", resp.Status)
	}
}

func TestDescribeReturnsSDPBody(t *testing.T) {
	srv, _, _ := newTestServer(config.Default())
	sess := &session.Session{}
	resp := srv.handle(req(rtspwire.MethodDescribe, 5, nil), sess)
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if !strings.Contains(string(resp.Body), "m=video") {
		t.Errorf("body missing video media line: %s", resp.Body)
	}
}

// TestDescribeDoesNotPrimeWhileAnotherSessionPlays guards the §4.6/§7
// single-writer invariant: once a session is Playing, the media task may
// already be mid-encode, so a second DESCRIBE must never call PrimeOnce,
// even if SPS/PPS isn't cached yet.
func TestDescribeDoesNotPrimeWhileAnotherSessionPlays(t *testing.T) {
	srv, enc, _ := newTestServer(config.Default())
	playing := &session.Session{ID: "aaaaaaaa", State: session.Playing}
	srv.sessions.Insert(playing)

	resp := srv.handle(req(rtspwire.MethodDescribe, 14, nil), &session.Session{})
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if enc.primed {
		t.Error("PrimeOnce must not be called while a session is Playing")
	}
}

func TestSetupRejectsInterleavedTransport(t *testing.T) {
	srv, _, _ := newTestServer(config.Default())
	headers := map[string]string{"Transport": "RTP/AVP/TCP;interleaved=0-1"}
	resp := srv.handle(req(rtspwire.MethodSetup, 6, headers), &session.Session{})
	if resp.Status != 461 {
		t.Fatalf("status = %d, want 461", resp.Status)
	}
}

func TestSetupAcceptsUDPTransport(t *testing.T) {
	srv, _, _ := newTestServer(config.Default())
	sess := &session.Session{}
	headers := map[string]string{"Transport": "RTP/AVP;unicast;client_port=6970-6971"}
	resp := srv.handle(req(rtspwire.MethodSetup, 7, headers), sess)
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if sess.State != session.Ready {
		t.Errorf("session state = %v, want Ready", sess.State)
	}
	if sess.ClientRTPPort != 6970 || sess.ClientRTCPPort != 6971 {
		t.Errorf("client ports = %d/%d, want 6970/6971", sess.ClientRTPPort, sess.ClientRTCPPort)
	}
	if sess.ID == "" {
		t.Error("expected a session id to be assigned")
	}
	if !strings.Contains(headerValue(resp, "Transport"), "server_port=5004-5005") {
		t.Errorf("Transport header = %q", headerValue(resp, "Transport"))
	}
}

func TestPlayStartsMediaTaskOnce(t *testing.T) {
	srv, _, mt := newTestServer(config.Default())
	sess := &session.Session{ID: "aaaaaaaa", State: session.Ready}

	resp := srv.handle(req(rtspwire.MethodPlay, 8, nil), sess)
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if sess.State != session.Playing {
		t.Errorf("session state = %v, want Playing", sess.State)
	}
	if mt.starts != 1 {
		t.Errorf("media task starts = %d, want 1", mt.starts)
	}

	// A second PLAY on an already-Playing session must not vote again.
	srv.handle(req(rtspwire.MethodPlay, 9, nil), sess)
	if mt.starts != 1 {
		t.Errorf("media task starts after repeat PLAY = %d, want 1", mt.starts)
	}
}

func TestPlayBeforeSetupRejected(t *testing.T) {
	srv, _, _ := newTestServer(config.Default())
	sess := &session.Session{State: session.Init}
	resp := srv.handle(req(rtspwire.MethodPlay, 10, nil), sess)
	if resp.Status != 455 {
		t.Fatalf("status = %d, want 455", resp.Status)
	}
}

func TestTeardownRemovesSessionAndStopsMediaTask(t *testing.T) {
	srv, _, mt := newTestServer(config.Default())
	sess := &session.Session{ID: "bbbbbbbb", State: session.Playing}
	srv.sessions.Insert(sess)

	resp := srv.handle(req(rtspwire.MethodTeardown, 11, nil), sess)
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if mt.stops != 1 {
		t.Errorf("media task stops = %d, want 1", mt.stops)
	}
	if srv.sessions.FindByID("bbbbbbbb") != nil {
		t.Error("session should have been removed from the store")
	}
}

func TestUnknownMethodProducesNoResponse(t *testing.T) {
	srv, _, _ := newTestServer(config.Default())
	resp := srv.handle(req("PAUSE", 12, nil), &session.Session{})
	if resp != nil {
		t.Errorf("expected nil response for PAUSE, got %v", resp)
	}
	resp = srv.handle(req("WOMBAT", 13, nil), &session.Session{})
	if resp != nil {
		t.Errorf("expected nil response for an unrecognized method, got %v", resp)
	}
}

func headerValue(resp *rtspwire.Response, name string) string {
	for _, h := range resp.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}
