package encoder

import (
	"github.com/hoakea/camrtsp/internal/rtspwire"
	"github.com/hoakea/camrtsp/internal/yuv"
	"golang.org/x/xerrors"
)

// Adapter owns the YUV buffer, bitstream buffer, and cached SPS/PPS byte
// slices (§3's "Buffers"), and drives one Backend through its lifecycle. It
// is single-writer: only the media task calls Process.
type Adapter struct {
	backend Backend
	cfg     Config

	yuvBuf    []byte
	bitstream []byte

	frameCount uint64

	sps []byte
	pps []byte
}

// NewAdapter creates an adapter around backend for the given configuration
// and Opens backend with it. The bitstream buffer is sized at 2x the YUV buffer,
// per §3's "at least 2x YUV bytes" invariant.
func NewAdapter(backend Backend, cfg Config) (*Adapter, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, xerrors.New("encoder: invalid resolution")
	}
	yuvSize := yuv.FrameSize(cfg.Width, cfg.Height)
	a := &Adapter{
		backend:   backend,
		cfg:       cfg,
		yuvBuf:    make([]byte, yuvSize),
		bitstream: make([]byte, 2*yuvSize),
	}
	if err := backend.Open(cfg); err != nil {
		return nil, xerrors.Errorf("encoder: open: %w", err)
	}
	return a, nil
}

// YUVBuffer returns the adapter-owned scratch buffer the frame converter
// (C3) should write into before calling Process.
func (a *Adapter) YUVBuffer() []byte {
	return a.yuvBuf
}

// SPS returns the most recently cached SPS NAL payload (header byte
// included, start code excluded), or nil if none has been observed yet.
func (a *Adapter) SPS() []byte {
	return a.sps
}

// PPS returns the most recently cached PPS NAL payload, or nil.
func (a *Adapter) PPS() []byte {
	return a.pps
}

// Process encodes the current contents of the YUV buffer, advances the
// frame counter, derives the 90kHz PTS from it (frame_count * 90000 / fps,
// per §4.4), and -- on an IDR frame -- refreshes the cached SPS/PPS by
// re-scanning the bitstream with the Annex-B NAL scanner (C1). It returns
// the encoded NAL units in bitstream order.
func (a *Adapter) Process() (nalus [][]byte, frameType FrameType, pts uint32, err error) {
	pts = uint32(a.frameCount * 90000 / uint64(a.cfg.FPS))

	n, frameType, err := a.backend.Process(pts, a.yuvBuf, a.bitstream)
	if err != nil {
		return nil, frameType, pts, xerrors.Errorf("encoder: process: %w", err)
	}
	if n <= 0 {
		return nil, frameType, pts, xerrors.New("encoder: process returned empty output")
	}
	a.frameCount++

	nalus = rtspwire.ScanNALUs(a.bitstream[:n])
	if frameType == FrameIDR {
		a.refreshParameterSets(nalus)
	}
	return nalus, frameType, pts, nil
}

func (a *Adapter) refreshParameterSets(nalus [][]byte) {
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		_, _, naluType := rtspwire.NALHeader(nalu[0])
		switch naluType {
		case rtspwire.NALTypeSPS:
			a.sps = append([]byte(nil), nalu...)
		case rtspwire.NALTypePPS:
			a.pps = append([]byte(nil), nalu...)
		}
	}
}

// Close releases the backend.
func (a *Adapter) Close() error {
	return a.backend.Close()
}
