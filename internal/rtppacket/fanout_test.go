package rtppacket

import (
	"net"
	"testing"
	"time"
)

func TestFanOutDeliversToEachDestination(t *testing.T) {
	out, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer out.Close()

	var receivers []*net.UDPConn
	var dests []Destination
	for i := 0; i < 2; i++ {
		r, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		if err != nil {
			t.Fatalf("ListenUDP: %v", err)
		}
		defer r.Close()
		receivers = append(receivers, r)
		dests = append(dests, Destination{Addr: r.LocalAddr().(*net.UDPAddr)})
	}

	pkt := []byte{0x80, 0x60, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	FanOut(out, dests, pkt)

	for i, r := range receivers {
		buf := make([]byte, 64)
		r.SetReadDeadline(time.Now().Add(time.Second))
		n, err := r.Read(buf)
		if err != nil {
			t.Fatalf("receiver %d: Read: %v", i, err)
		}
		if string(buf[:n]) != string(pkt) {
			t.Errorf("receiver %d got %x, want %x", i, buf[:n], pkt)
		}
	}
}

func TestFanOutSkipsNilAddr(t *testing.T) {
	out, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer out.Close()

	// Should not panic when a destination has no address (a torn-down
	// session observed mid-iteration).
	FanOut(out, []Destination{{Addr: nil}}, []byte{1, 2, 3})
}
