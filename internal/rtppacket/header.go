// Package rtppacket implements RTP packetization of an H.264 Annex-B
// bitstream, per RFC 3550 (RTP) and RFC 6184 (H.264 payload format): header
// construction, single-NAL and FU-A fragmented packets, and per-session
// fan-out over a shared UDP socket.
package rtppacket

import "github.com/hoakea/camrtsp/internal/packet"

// RTP version 2, per RFC 3550.
const rtpVersion = 2

// HeaderSize is the fixed RTP header length in bytes (no CSRC identifiers,
// no header extension -- neither is used by this server).
const HeaderSize = 12

// Header is the fixed 12-byte RTP header: version=2, padding=0,
// extension=0, CSRC count=0.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|V=2|P|X|  CC   |M|     PT      |       sequence number        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                           timestamp                          |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|           synchronization source (SSRC) identifier           |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type Header struct {
	Marker      bool
	PayloadType byte
	Sequence    uint16
	Timestamp   uint32
	SSRC        uint32
}

func (h *Header) writeTo(w *packet.Writer) {
	w.WriteByte(rtpVersion << 6) // V=2, P=0, X=0, CC=0
	var pt byte = h.PayloadType & 0x7f
	if h.Marker {
		pt |= 0x80
	}
	w.WriteByte(pt)
	w.WriteUint16(h.Sequence)
	w.WriteUint32(h.Timestamp)
	w.WriteUint32(h.SSRC)
}
