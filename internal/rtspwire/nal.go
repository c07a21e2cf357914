package rtspwire

// NAL unit types relevant to this server. See RFC 6184 §5.2 and H.264
// Annex B.
const (
	NALTypeSlice    = 1
	NALTypeIDRSlice = 5
	NALTypeSEI      = 6
	NALTypeSPS      = 7
	NALTypePPS      = 8
)

// NALHeader decomposes the first byte of a NAL unit.
func NALHeader(b byte) (forbiddenZero bool, nri byte, naluType byte) {
	forbiddenZero = b&0x80 != 0
	nri = (b >> 5) & 0x3
	naluType = b & 0x1f
	return
}

// NALScanner is a lending iterator over an Annex-B bitstream: each call to
// Next returns a slice borrowed from the original buffer (no per-NAL
// allocation), valid only as long as the underlying buffer is not
// overwritten or reused.
//
// The scan bound is i+2 < len (not the off-by-one i+3 < len seen in the
// reference implementation this is distilled from), so that a trailing NAL
// unit whose start code sits within 3 bytes of the buffer's end is still
// found.
type NALScanner struct {
	buf []byte
	pos int
}

// NewNALScanner returns a scanner over buf.
func NewNALScanner(buf []byte) *NALScanner {
	return &NALScanner{buf: buf}
}

// Next returns the next NAL unit (the bytes after its start code, up to but
// not including the next start code or end of buffer), or ok=false when the
// buffer is exhausted. Every returned slice is non-empty and begins with the
// NAL header byte.
func (s *NALScanner) Next() (nalu []byte, ok bool) {
	buf := s.buf
	n := len(buf)

	// Find the next start code at or after s.pos.
	start := -1
	var codeLen int
	i := s.pos
	for i+2 < n {
		if buf[i] == 0 && buf[i+1] == 0 {
			if buf[i+2] == 1 {
				start, codeLen = i, 3
				break
			}
			if i+3 < n && buf[i+2] == 0 && buf[i+3] == 1 {
				start, codeLen = i, 4
				break
			}
		}
		i++
	}
	if start < 0 {
		s.pos = n
		return nil, false
	}

	naluStart := start + codeLen

	// Find the following start code to bound this NAL unit.
	end := n
	j := naluStart
	for j+2 < n {
		if buf[j] == 0 && buf[j+1] == 0 {
			if buf[j+2] == 1 {
				end = j
				break
			}
			if j+3 < n && buf[j+2] == 0 && buf[j+3] == 1 {
				end = j
				break
			}
		}
		j++
	}

	s.pos = end
	if end <= naluStart {
		// Degenerate: empty NAL unit between back-to-back start codes.
		return s.Next()
	}
	return buf[naluStart:end], true
}

// ScanNALUs collects every NAL unit in buf via a NALScanner.
func ScanNALUs(buf []byte) [][]byte {
	var nalus [][]byte
	s := NewNALScanner(buf)
	for {
		nalu, ok := s.Next()
		if !ok {
			break
		}
		nalus = append(nalus, nalu)
	}
	return nalus
}
