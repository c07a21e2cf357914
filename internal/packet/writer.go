// Package packet provides a small fixed-buffer binary writer used to
// serialize wire structures (here, RTP headers and payloads) without a
// per-field allocation.
package packet

import (
	"encoding/binary"
	"fmt"
)

var networkOrder = binary.BigEndian

// Writer serializes fields into a caller-supplied fixed-size buffer, in
// network byte order. It never grows the buffer; callers size it up front
// (internal/rtppacket sizes it to one RTP packet).
type Writer struct {
	buffer []byte
	offset int
}

// NewWriter wraps buffer for writing, starting at offset 0.
func NewWriter(buffer []byte) *Writer {
	return &Writer{buffer, 0}
}

func (w *Writer) WriteByte(v byte) {
	w.buffer[w.offset] = v
	w.offset++
}

func (w *Writer) WriteUint16(v uint16) {
	networkOrder.PutUint16(w.buffer[w.offset:], v)
	w.offset += 2
}

func (w *Writer) WriteUint32(v uint32) {
	networkOrder.PutUint32(w.buffer[w.offset:], v)
	w.offset += 4
}

// WriteSlice appends p, if there is enough room left in the buffer.
func (w *Writer) WriteSlice(p []byte) error {
	if err := w.CheckCapacity(len(p)); err != nil {
		return err
	}
	w.offset += copy(w.buffer[w.offset:], p)
	return nil
}

// Capacity returns the number of bytes the underlying buffer can hold.
func (w *Writer) Capacity() int {
	return len(w.buffer)
}

func (w *Writer) CheckCapacity(needed int) error {
	if available := w.Capacity() - w.offset; available < needed {
		return fmt.Errorf("%d bytes available, %d needed", available, needed)
	}
	return nil
}

// Bytes returns the slice of the buffer written so far.
func (w *Writer) Bytes() []byte {
	return w.buffer[0:w.offset]
}
