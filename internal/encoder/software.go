package encoder

import (
	"encoding/binary"
	"hash/fnv"

	"golang.org/x/xerrors"
)

// SoftwareBackend is a deterministic stand-in for the real hardware
// encoder referenced in §6: it performs no real H.264 compression. Each
// call to Process repackages the input frame as a single slice-coded NAL
// unit; on every GOP-th frame it additionally emits synthetic SPS and PPS
// NAL units ahead of an IDR slice. This is enough to exercise the wire
// codec, packetizer, and media task end-to-end without real hardware --
// the role the teacher's file-backed video sources play in cmd/alohartcd
// when no live camera is present.
type SoftwareBackend struct {
	cfg        Config
	frameIndex int
	open       bool
}

// NewSoftwareBackend returns an unopened SoftwareBackend.
func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{}
}

// syntheticSPS and syntheticPPS are fixed, well-formed-looking NAL
// payloads (correct header byte and NAL type, made-up profile bytes).
// They are not decodable by a real H.264 decoder, but their structure is
// exactly what the SDP generator and wire codec key off of.
var syntheticSPS = []byte{0x67, 0x42, 0xc0, 0x1e, 0xda, 0x0f, 0x00}
var syntheticPPS = []byte{0x68, 0xce, 0x3c, 0x80}

const startCode = "\x00\x00\x00\x01"

func (b *SoftwareBackend) Open(cfg Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return xerrors.New("software encoder: invalid resolution")
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.GOP <= 0 {
		cfg.GOP = 30
	}
	b.cfg = cfg
	b.frameIndex = 0
	b.open = true
	return nil
}

func (b *SoftwareBackend) Process(pts uint32, yuvFrame []byte, out []byte) (int, FrameType, error) {
	if !b.open {
		return 0, FrameP, xerrors.New("software encoder: not open")
	}
	if len(yuvFrame) == 0 {
		return 0, FrameP, xerrors.New("software encoder: empty input frame")
	}

	idr := b.frameIndex%b.cfg.GOP == 0
	b.frameIndex++

	var nalus [][]byte
	if idr {
		nalus = [][]byte{syntheticSPS, syntheticPPS, slicePayload(0x65, pts, yuvFrame)} // NRI=3, type=5 (IDR)
	} else {
		nalus = [][]byte{slicePayload(0x41, pts, yuvFrame)} // NRI=2, type=1 (non-IDR)
	}

	n := 0
	for _, nalu := range nalus {
		need := n + len(startCode) + len(nalu)
		if need > len(out) {
			return 0, FrameP, xerrors.New("software encoder: output buffer too small")
		}
		n += copy(out[n:], startCode)
		n += copy(out[n:], nalu)
	}

	frameType := FrameP
	if idr {
		frameType = FrameIDR
	}
	return n, frameType, nil
}

func (b *SoftwareBackend) Close() error {
	b.open = false
	return nil
}

// slicePayload derives a short, deterministic "compressed" slice body from
// the frame contents and timestamp, so repeated runs against the same
// input are reproducible in tests.
func slicePayload(header byte, pts uint32, yuvFrame []byte) []byte {
	h := fnv.New64a()
	h.Write(yuvFrame)
	var ptsBytes [4]byte
	binary.BigEndian.PutUint32(ptsBytes[:], pts)
	h.Write(ptsBytes[:])
	sum := h.Sum64()

	payload := make([]byte, 1+8)
	payload[0] = header
	binary.BigEndian.PutUint64(payload[1:], sum)
	return payload
}
