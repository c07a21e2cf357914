package camera

import (
	"encoding/binary"
	"sync"

	"golang.org/x/xerrors"
)

// TestPattern is a synthetic LockingSource that generates a deterministic
// moving RGB565 (little-endian) test pattern: diagonal stripes that shift
// one pixel to the left on every captured frame. It requires no hardware,
// letting the rest of the pipeline (C3-C7) be exercised end-to-end --
// playing the same role as the teacher's build-tag-gated stub sources
// (internal/v4l2/stub.go, internal/media/mp4_stub.go) that satisfy a media
// interface without a real device behind it.
type TestPattern struct {
	mu sync.Mutex

	width, height int
	streaming     bool

	frame      []byte
	frameIndex int

	locked bool
}

// NewTestPattern returns a TestPattern of the given dimensions, which must
// both be even and positive.
func NewTestPattern(width, height int) (*TestPattern, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, xerrors.New("camera: test pattern dimensions must be positive and even")
	}
	return &TestPattern{
		width:  width,
		height: height,
		frame:  make([]byte, width*height*2),
	}, nil
}

func (t *TestPattern) IsStreaming() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streaming
}

func (t *TestPattern) StartStreaming() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streaming = true
	return nil
}

// CaptureFrame renders the next frame of the pattern in place.
func (t *TestPattern) CaptureFrame() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.streaming {
		return xerrors.New("camera: test pattern not streaming")
	}
	if t.locked {
		return xerrors.New("camera: test pattern frame already locked")
	}

	renderDiagonalStripes(t.frame, t.width, t.height, t.frameIndex)
	t.frameIndex++
	return nil
}

// renderDiagonalStripes fills buf (width*height RGB565LE pixels) with
// 32-pixel-wide diagonal stripes of alternating primary colors, offset by
// phase pixels, so consecutive frames visibly differ and the sequence is
// exactly reproducible from the frame index alone.
func renderDiagonalStripes(buf []byte, width, height, phase int) {
	const stripeWidth = 32
	colors := [3]uint16{
		rgb565(31, 0, 0),
		rgb565(0, 63, 0),
		rgb565(0, 0, 31),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			band := ((x + y + phase) / stripeWidth) % len(colors)
			binary.LittleEndian.PutUint16(buf[(y*width+x)*2:], colors[band])
		}
	}
}

func rgb565(r, g, b byte) uint16 {
	return uint16(r&0x1f)<<11 | uint16(g&0x3f)<<5 | uint16(b&0x1f)
}

func (t *TestPattern) ImageData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame
}

func (t *TestPattern) ImageSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frame)
}

func (t *TestPattern) Width() int {
	return t.width
}

func (t *TestPattern) Height() int {
	return t.height
}

// CurrentFrame locks the current frame buffer for the caller's exclusive
// use until ReleaseBuffer is called with the returned token.
func (t *TestPattern) CurrentFrame() (token any, data []byte, w, h int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.locked {
		return nil, nil, 0, 0, xerrors.New("camera: test pattern frame already locked")
	}
	t.locked = true
	return t.frame, t.frame, t.width, t.height, nil
}

// ReleaseBuffer releases the lock acquired by CurrentFrame. token must be
// the value returned by the matching CurrentFrame call; a mismatched token
// is ignored.
func (t *TestPattern) ReleaseBuffer(token any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf, ok := token.([]byte)
	if !ok || &buf[0] != &t.frame[0] {
		return
	}
	t.locked = false
}
