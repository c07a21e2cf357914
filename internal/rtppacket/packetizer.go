package rtppacket

import (
	"math/rand"

	"github.com/hoakea/camrtsp/internal/packet"
	"github.com/hoakea/camrtsp/internal/rtspwire"
)

// PayloadType is the dynamic RTP payload type used for H.264, per §4.1/§4.2.
const PayloadType = 96

// singleNALBudget is the largest NAL (including its header byte) that is
// sent whole, as a single RTP packet. Above this, the NAL is fragmented.
const singleNALBudget = 1400

// fuaFragmentBudget is the maximum size of one FU-A fragment's body (the
// NAL bytes after the original header, excluding the 2-byte FU overhead).
const fuaFragmentBudget = 1398

const (
	naluTypeFUA = 28
)

// Packetizer turns NAL units into RTP packets for one outbound stream. It
// owns the RTP sequence number and is not safe for concurrent use -- per
// §7's single-writer discipline, exactly one goroutine (the media task)
// calls into a given Packetizer.
type Packetizer struct {
	ssrc uint32
	seq  uint16

	// Reused across fragments to avoid a per-fragment allocation.
	scratch []byte
}

// NewPacketizer returns a Packetizer with a random initial sequence number
// and the given SSRC.
func NewPacketizer(ssrc uint32) *Packetizer {
	return &Packetizer{
		ssrc:    ssrc,
		seq:     uint16(rand.Uint32()),
		scratch: make([]byte, HeaderSize+2+fuaFragmentBudget),
	}
}

// Sequence returns the sequence number of the next packet to be sent. It is
// safe to call from another goroutine for advisory reads (e.g. RTP-Info),
// per §7: non-atomic reads of this value are acceptable because it is only
// informational there.
func (p *Packetizer) Sequence() uint16 {
	return p.seq
}

// Send is called once per outbound RTP packet, with the fully serialized
// packet bytes (header + payload). The packetizer does not own socket I/O;
// the caller (typically a fan-out helper) decides where bytes go.
type Send func(pkt []byte) error

// PacketizeNAL emits one or more RTP packets for a single NAL unit:
// single-NAL mode when it fits singleNALBudget, FU-A fragmentation
// otherwise. marker is set only on the final packet emitted for this NAL;
// callers pass marker=true only when this is also the last NAL of the
// frame, per §4.2's "Ordering contract".
func (p *Packetizer) PacketizeNAL(nalu []byte, timestamp uint32, marker bool, send Send) error {
	if len(nalu) == 0 {
		return nil
	}
	if len(nalu) <= singleNALBudget {
		return p.sendPacket(timestamp, marker, nalu, send)
	}
	return p.fragment(nalu, timestamp, marker, send)
}

func (p *Packetizer) sendPacket(timestamp uint32, marker bool, payload []byte, send Send) error {
	hdr := Header{
		Marker:      marker,
		PayloadType: PayloadType,
		Sequence:    p.seq,
		Timestamp:   timestamp,
		SSRC:        p.ssrc,
	}
	p.seq++

	w := packet.NewWriter(p.scratch[:HeaderSize+len(payload)])
	hdr.writeTo(w)
	if err := w.WriteSlice(payload); err != nil {
		return err
	}
	return send(w.Bytes())
}

// fragment splits nalu into FU-A packets per RFC 6184 §5.8. The forbidden
// bit and NRI are copied from the original NAL header into the FU
// indicator; the FU header carries the S/E bits and the original NAL type.
func (p *Packetizer) fragment(nalu []byte, timestamp uint32, marker bool, send Send) error {
	_, nri, naluType := rtspwire.NALHeader(nalu[0])
	indicator := nri<<5 | naluTypeFUA

	body := nalu[1:]
	for offset := 0; offset < len(body); {
		end := offset + fuaFragmentBudget
		last := end >= len(body)
		if last {
			end = len(body)
		}

		var fuHeader byte = naluType
		if offset == 0 {
			fuHeader |= 0x80 // S bit
		}
		if last {
			fuHeader |= 0x40 // E bit
		}

		fragLen := end - offset
		pkt := p.scratch[:HeaderSize+2+fragLen]
		hdr := Header{
			Marker:      last && marker,
			PayloadType: PayloadType,
			Sequence:    p.seq,
			Timestamp:   timestamp,
			SSRC:        p.ssrc,
		}
		p.seq++

		w := packet.NewWriter(pkt)
		hdr.writeTo(w)
		w.WriteByte(indicator)
		w.WriteByte(fuHeader)
		if err := w.WriteSlice(body[offset:end]); err != nil {
			return err
		}
		if err := send(w.Bytes()); err != nil {
			return err
		}

		offset = end
	}
	return nil
}

// PacketizeFrame packetizes every NAL unit of one coded frame in bitstream
// order, setting the marker bit only on the final packet of the final NAL,
// per §4.2.
func (p *Packetizer) PacketizeFrame(nalus [][]byte, timestamp uint32, send Send) error {
	for i, nalu := range nalus {
		last := i == len(nalus)-1
		if err := p.PacketizeNAL(nalu, timestamp, last, send); err != nil {
			return err
		}
	}
	return nil
}
