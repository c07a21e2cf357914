// Package encoder wraps an H.264 hardware (or software) encoder behind the
// trivial create/open/process/close/destroy lifecycle described in §6 of
// the camera interface: a fallible constructor, an explicit Open, a
// per-frame Process call that yields a frame-type tag, and Close.
package encoder

import "github.com/hoakea/camrtsp/internal/logging"

var log = logging.DefaultLogger.WithTag("encoder")

// FrameType classifies an encoded picture.
type FrameType int

const (
	FrameP FrameType = iota
	FrameI
	FrameIDR
)

func (t FrameType) String() string {
	switch t {
	case FrameIDR:
		return "IDR"
	case FrameI:
		return "I"
	default:
		return "P"
	}
}

// Config carries the parameters the adapter passes to create(config) in
// §4.4: pixel layout is always O_UYY_E_VYY (§4.3), so only the remaining
// fields are represented here.
type Config struct {
	Width, Height int
	FPS           int
	GOP           int
	BitrateBPS    int
	QPMin, QPMax  int
}

// Backend is the opaque hardware (or software) encoder handle. A Backend is
// created via a concrete constructor (the "create" step, which may fail
// fast) then Open'd; Process is called once per captured frame; Close
// releases the handle. There is no separate "destroy" step in the Go
// binding -- Close plays that role, and the backend value is then
// discarded.
type Backend interface {
	// Open prepares the backend to encode frames of the given
	// configuration. A non-nil error here fails server startup, per §4.4.
	Open(cfg Config) error

	// Process encodes one YUV420 O_UYY_E_VYY frame at the given 90kHz
	// presentation timestamp, writing the Annex-B bitstream into out and
	// returning the number of bytes written and the resulting frame's
	// type. Zero-length output must be reported as an error (§4.4).
	Process(pts uint32, yuv []byte, out []byte) (n int, frameType FrameType, err error)

	Close() error
}
