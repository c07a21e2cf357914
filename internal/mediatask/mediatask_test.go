package mediatask

import (
	"net"
	"testing"
	"time"

	"github.com/hoakea/camrtsp/internal/camera"
	"github.com/hoakea/camrtsp/internal/encoder"
	"github.com/hoakea/camrtsp/internal/rtppacket"
	"github.com/hoakea/camrtsp/internal/session"
)

func newTestTask(t *testing.T) *Task {
	t.Helper()

	cam, err := camera.NewTestPattern(64, 32)
	if err != nil {
		t.Fatalf("NewTestPattern: %v", err)
	}

	adapter, err := encoder.NewAdapter(encoder.NewSoftwareBackend(), encoder.Config{
		Width: 64, Height: 32, FPS: 30, GOP: 2, BitrateBPS: 500000, QPMin: 10, QPMax: 40,
	})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	t.Cleanup(func() { adapter.Close() })

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	store := session.NewStore(4)

	task := New(cam, PixelFormatRGB565, adapter, rtppacket.NewPacketizer(1), conn, store, time.Millisecond, 30)
	return task
}

func TestMediaTaskStartStopIsVoteCounted(t *testing.T) {
	task := newTestTask(t)

	task.Start()
	task.Start()
	// Two votes: one Stop should not actually halt the loop.
	task.Stop()
	if task.quit == nil {
		t.Fatal("task should still be running after one Stop with two outstanding votes")
	}
	task.Stop()
	if task.quit != nil {
		t.Fatal("task should be stopped once votes reach zero")
	}
}

func TestMediaTaskDeliversRTPToPlayingSession(t *testing.T) {
	task := newTestTask(t)

	receiver, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer receiver.Close()
	recvAddr := receiver.LocalAddr().(*net.UDPAddr)

	task.sessions.Insert(&session.Session{
		ID:            "aaaaaaaa",
		State:         session.Playing,
		RemoteIP:      recvAddr.IP,
		ClientRTPPort: uint16(recvAddr.Port),
	})

	task.Start()
	defer task.Stop()

	buf := make([]byte, 4096)
	receiver.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := receiver.Read(buf)
	if err != nil {
		t.Fatalf("expected to receive an RTP packet: %v", err)
	}
	if n < rtppacket.HeaderSize {
		t.Fatalf("packet too short: %d bytes", n)
	}
	if buf[0] != 0x80 {
		t.Errorf("first byte = %#x, want 0x80", buf[0])
	}
	if buf[1]&0x7f != rtppacket.PayloadType {
		t.Errorf("payload type = %d, want %d", buf[1]&0x7f, rtppacket.PayloadType)
	}
}
