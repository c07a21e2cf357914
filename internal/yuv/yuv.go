// Package yuv converts camera frames into the packed O_UYY_E_VYY layout
// expected by the hardware H.264 encoder (see internal/encoder).
//
// O_UYY_E_VYY: the first row of each row pair (rows 0, 2, 4, ..., the
// "odd" lines when counting from 1) is laid out as repeating "U Y Y"
// triplets, the second row (rows 1, 3, 5, ...) as repeating "V Y Y"
// triplets; U and V are each shared across a 2x2 pixel block.
package yuv

import (
	"fmt"

	"github.com/hoakea/camrtsp/internal/logging"
)

var log = logging.DefaultLogger.WithTag("yuv")

// BT.601 integer coefficients, scaled by 256. See §4.3.
const (
	coeffYR = 66
	coeffYG = 129
	coeffYB = 25

	coeffUR = -38
	coeffUG = -74
	coeffUB = 112

	coeffVR = 112
	coeffVG = -94
	coeffVB = -18
)

// lut holds the nine precomputed per-channel, per-coefficient lookup
// tables, eliminating multiplications from the conversion hot path. Entries
// are the unshifted products (coefficient * 8-bit channel value); the sum of
// three entries is shifted right by 8 once, as in the BT.601 formula.
type lut struct {
	yR, uR, vR [32]int32 // indexed by 5-bit R
	yG, uG, vG [64]int32 // indexed by 6-bit G
	yB, uB, vB [32]int32 // indexed by 5-bit B
}

var tables = buildLUT()

func buildLUT() *lut {
	t := &lut{}
	for i := 0; i < 32; i++ {
		v8 := expand5(uint8(i))
		t.yR[i] = int32(coeffYR * int(v8))
		t.uR[i] = int32(coeffUR * int(v8))
		t.vR[i] = int32(coeffVR * int(v8))

		t.yB[i] = int32(coeffYB * int(v8))
		t.uB[i] = int32(coeffUB * int(v8))
		t.vB[i] = int32(coeffVB * int(v8))
	}
	for i := 0; i < 64; i++ {
		v8 := expand6(uint8(i))
		t.yG[i] = int32(coeffYG * int(v8))
		t.uG[i] = int32(coeffUG * int(v8))
		t.vG[i] = int32(coeffVG * int(v8))
	}
	return t
}

// expand5 replicates a 5-bit channel value into the full 8-bit range.
func expand5(v uint8) uint8 {
	return (v << 3) | (v >> 2)
}

// expand6 replicates a 6-bit channel value into the full 8-bit range.
func expand6(v uint8) uint8 {
	return (v << 2) | (v >> 4)
}

func clamp(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// FrameSize returns the number of bytes needed to hold a packed
// O_UYY_E_VYY buffer for the given dimensions, 4:2:0 subsampled: width *
// height * 3/2 bytes, the same as planar YUV420.
func FrameSize(width, height int) int {
	return width * height * 3 / 2
}

// RGB565ToYUV420 converts a little-endian RGB565 frame of dimensions
// width x height (both required to be even and positive) into dst, which
// must be at least FrameSize(width, height) bytes. Y uses per-pixel RGB;
// U and V use the arithmetic mean of R, G, B over each 2x2 block. Output
// is always clamped to [0, 255].
func RGB565ToYUV420(dst []byte, src []byte, width, height int) error {
	if src == nil || dst == nil {
		return fmt.Errorf("yuv: nil buffer")
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("yuv: invalid dimensions %dx%d", width, height)
	}
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("yuv: dimensions must be even, got %dx%d", width, height)
	}
	if len(src) < width*height*2 {
		return fmt.Errorf("yuv: src too small: have %d, need %d", len(src), width*height*2)
	}
	if len(dst) < FrameSize(width, height) {
		return fmt.Errorf("yuv: dst too small: have %d, need %d", len(dst), FrameSize(width, height))
	}

	t := tables
	rowBytes := width * 3 / 2

	for row := 0; row < height; row += 2 {
		oddLine := dst[row*rowBytes : (row+1)*rowBytes]
		evenLine := dst[(row+1)*rowBytes : (row+2)*rowBytes]

		r0base := row * width * 2
		r1base := (row + 1) * width * 2

		out := 0
		for col := 0; col < width; col += 2 {
			p00 := readLE16(src, r0base+col*2)
			p01 := readLE16(src, r0base+(col+1)*2)
			p10 := readLE16(src, r1base+col*2)
			p11 := readLE16(src, r1base+(col+1)*2)

			r0, g0, b0 := splitRGB565(p00)
			r1, g1, b1 := splitRGB565(p01)
			r2, g2, b2 := splitRGB565(p10)
			r3, g3, b3 := splitRGB565(p11)

			y0 := clamp((t.yR[r0]+t.yG[g0]+t.yB[b0])>>8 + 16)
			y1 := clamp((t.yR[r1]+t.yG[g1]+t.yB[b1])>>8 + 16)
			y2 := clamp((t.yR[r2]+t.yG[g2]+t.yB[b2])>>8 + 16)
			y3 := clamp((t.yR[r3]+t.yG[g3]+t.yB[b3])>>8 + 16)

			rAvg := (uint32(r0) + uint32(r1) + uint32(r2) + uint32(r3)) >> 2
			gAvg := (uint32(g0) + uint32(g1) + uint32(g2) + uint32(g3)) >> 2
			bAvg := (uint32(b0) + uint32(b1) + uint32(b2) + uint32(b3)) >> 2

			u := clamp((t.uR[rAvg]+t.uG[gAvg]+t.uB[bAvg])>>8 + 128)
			v := clamp((t.vR[rAvg]+t.vG[gAvg]+t.vB[bAvg])>>8 + 128)

			// Odd line: U Y Y
			oddLine[out+0] = u
			oddLine[out+1] = y0
			oddLine[out+2] = y1

			// Even line: V Y Y
			evenLine[out+0] = v
			evenLine[out+1] = y2
			evenLine[out+2] = y3

			out += 3
		}
	}

	return nil
}

func readLE16(b []byte, i int) uint16 {
	return uint16(b[i]) | uint16(b[i+1])<<8
}

func splitRGB565(p uint16) (r, g, b uint32) {
	r = uint32(p>>11) & 0x1f
	g = uint32(p>>5) & 0x3f
	b = uint32(p) & 0x1f
	return
}

// YUYVToYUV420 converts a packed YUYV (YUY2) frame into O_UYY_E_VYY. No
// color-space arithmetic is needed: U = avg(U of row0, U of row1), V =
// avg(V of row0, V of row1), rearranged into the packed layout.
func YUYVToYUV420(dst []byte, src []byte, width, height int) error {
	if src == nil || dst == nil {
		return fmt.Errorf("yuv: nil buffer")
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("yuv: invalid dimensions %dx%d", width, height)
	}
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("yuv: dimensions must be even, got %dx%d", width, height)
	}
	if len(src) < width*height*2 {
		return fmt.Errorf("yuv: src too small: have %d, need %d", len(src), width*height*2)
	}
	if len(dst) < FrameSize(width, height) {
		return fmt.Errorf("yuv: dst too small: have %d, need %d", len(dst), FrameSize(width, height))
	}

	rowBytes := width * 3 / 2
	srcRowBytes := width * 2

	for row := 0; row < height; row += 2 {
		oddLine := dst[row*rowBytes : (row+1)*rowBytes]
		evenLine := dst[(row+1)*rowBytes : (row+2)*rowBytes]

		row0 := src[row*srcRowBytes : (row+1)*srcRowBytes]
		row1 := src[(row+1)*srcRowBytes : (row+2)*srcRowBytes]

		out := 0
		for col := 0; col < width; col += 2 {
			// YUYV: Y0 U Y1 V, repeating every 2 pixels.
			i := col * 2
			y0a, u0, y1a, v0 := row0[i], row0[i+1], row0[i+2], row0[i+3]
			y0b, u1, y1b, v1 := row1[i], row1[i+1], row1[i+2], row1[i+3]

			u := uint8((uint16(u0) + uint16(u1)) / 2)
			v := uint8((uint16(v0) + uint16(v1)) / 2)

			oddLine[out+0] = u
			oddLine[out+1] = y0a
			oddLine[out+2] = y1a

			evenLine[out+0] = v
			evenLine[out+1] = y0b
			evenLine[out+2] = y1b

			out += 3
		}
	}

	return nil
}
