package rtspwire

import "testing"

func TestParseRequestBasic(t *testing.T) {
	buf := []byte("OPTIONS rtsp://192.168.1.1/stream RTSP/1.0\r\nCSeq: 1\r\nUser-Agent: test\r\n\r\n")
	req, err := ParseRequest(buf)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Method != MethodOptions {
		t.Errorf("Method = %q, want %q", req.Method, MethodOptions)
	}
	if req.URI != "rtsp://192.168.1.1/stream" {
		t.Errorf("URI = %q", req.URI)
	}
	if req.CSeq != 1 {
		t.Errorf("CSeq = %d, want 1", req.CSeq)
	}
	if req.Header("User-Agent") != "test" {
		t.Errorf("User-Agent = %q", req.Header("User-Agent"))
	}
}

func TestParseRequestHeaderTrimming(t *testing.T) {
	buf := []byte("DESCRIBE rtsp://host/stream RTSP/1.0\r\nCSeq:   7   \r\nAccept:application/sdp\r\n\r\n")
	req, err := ParseRequest(buf)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.CSeq != 7 {
		t.Errorf("CSeq = %d, want 7", req.CSeq)
	}
	if req.Header("Accept") != "application/sdp" {
		t.Errorf("Accept = %q", req.Header("Accept"))
	}
}

func TestParseRequestMissingCSeqDefaultsZero(t *testing.T) {
	buf := []byte("OPTIONS * RTSP/1.0\r\n\r\n")
	req, err := ParseRequest(buf)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.CSeq != 0 {
		t.Errorf("CSeq = %d, want 0", req.CSeq)
	}
}

func TestParseRequestIgnoresTrailingGarbageAfterTerminator(t *testing.T) {
	buf := []byte("PLAY rtsp://host/stream RTSP/1.0\r\nCSeq: 3\r\n\r\ngarbage-that-is-not-a-header\r\n\r\n")
	req, err := ParseRequest(buf)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.CSeq != 3 {
		t.Errorf("CSeq = %d, want 3", req.CSeq)
	}
	if _, ok := req.Headers["garbage-that-is-not-a-header"]; ok {
		t.Errorf("trailing garbage after terminator should not be parsed as a header")
	}
}

func TestParseRequestEmptyBuffer(t *testing.T) {
	if _, err := ParseRequest(nil); err == nil {
		t.Fatal("expected error for empty request")
	}
}

func TestParseRequestCaseSensitiveHeaderLookup(t *testing.T) {
	buf := []byte("SETUP rtsp://host/stream RTSP/1.0\r\nCSeq: 2\r\nTransport: RTP/AVP;unicast;client_port=4588-4589\r\n\r\n")
	req, err := ParseRequest(buf)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Header("transport") != "" {
		t.Errorf("lookup should be case-sensitive, got non-empty for lowercase name")
	}
	if req.Header("Transport") == "" {
		t.Errorf("expected Transport header to be present")
	}
}
