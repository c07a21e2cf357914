package rtppacket

import (
	"testing"

	"github.com/hoakea/camrtsp/internal/packet"
)

func TestHeaderWriteToLayout(t *testing.T) {
	h := Header{
		Marker:      true,
		PayloadType: PayloadType,
		Sequence:    0x1234,
		Timestamp:   0x89abcdef,
		SSRC:        0x11223344,
	}
	buf := make([]byte, HeaderSize)
	w := packet.NewWriter(buf)
	h.writeTo(w)

	if buf[0] != 0x80 {
		t.Errorf("byte 0 = %#x, want 0x80", buf[0])
	}
	if buf[1] != 0x80|PayloadType {
		t.Errorf("byte 1 = %#x, want %#x", buf[1], 0x80|PayloadType)
	}
	if buf[2] != 0x12 || buf[3] != 0x34 {
		t.Errorf("sequence bytes = %x %x", buf[2], buf[3])
	}
	if buf[4] != 0x89 || buf[5] != 0xab || buf[6] != 0xcd || buf[7] != 0xef {
		t.Errorf("timestamp bytes = %x", buf[4:8])
	}
	if buf[8] != 0x11 || buf[9] != 0x22 || buf[10] != 0x33 || buf[11] != 0x44 {
		t.Errorf("ssrc bytes = %x", buf[8:12])
	}
}
