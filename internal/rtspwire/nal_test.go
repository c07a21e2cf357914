package rtspwire

import "testing"

func TestNALHeaderDecomposition(t *testing.T) {
	forbidden, nri, naluType := NALHeader(0x65) // 0110 0101: nri=3, type=5 (IDR slice)
	if forbidden {
		t.Error("forbidden bit should be clear")
	}
	if nri != 3 {
		t.Errorf("nri = %d, want 3", nri)
	}
	if naluType != NALTypeIDRSlice {
		t.Errorf("naluType = %d, want %d", naluType, NALTypeIDRSlice)
	}
}

func TestScanNALUsThreeByteStartCodes(t *testing.T) {
	buf := []byte{
		0, 0, 1, 0x67, 0xAA, 0xBB, // SPS
		0, 0, 1, 0x68, 0xCC, // PPS
		0, 0, 1, 0x65, 0xDD, 0xEE, 0xFF, // IDR slice
	}
	nalus := ScanNALUs(buf)
	if len(nalus) != 3 {
		t.Fatalf("got %d NAL units, want 3", len(nalus))
	}
	if nalus[0][0] != 0x67 || len(nalus[0]) != 3 {
		t.Errorf("nalu[0] = %x", nalus[0])
	}
	if nalus[1][0] != 0x68 || len(nalus[1]) != 2 {
		t.Errorf("nalu[1] = %x", nalus[1])
	}
	if nalus[2][0] != 0x65 || len(nalus[2]) != 4 {
		t.Errorf("nalu[2] = %x", nalus[2])
	}
}

func TestScanNALUsFourByteStartCodes(t *testing.T) {
	buf := []byte{
		0, 0, 0, 1, 0x67, 0xAA,
		0, 0, 0, 1, 0x68, 0xBB, 0xCC,
	}
	nalus := ScanNALUs(buf)
	if len(nalus) != 2 {
		t.Fatalf("got %d NAL units, want 2", len(nalus))
	}
	if nalus[0][0] != 0x67 || len(nalus[0]) != 2 {
		t.Errorf("nalu[0] = %x", nalus[0])
	}
	if nalus[1][0] != 0x68 || len(nalus[1]) != 3 {
		t.Errorf("nalu[1] = %x", nalus[1])
	}
}

func TestScanNALUsMixedStartCodes(t *testing.T) {
	buf := []byte{
		0, 0, 0, 1, 0x67, 0xAA, 0xBB,
		0, 0, 1, 0x68, 0xCC,
	}
	nalus := ScanNALUs(buf)
	if len(nalus) != 2 {
		t.Fatalf("got %d NAL units, want 2", len(nalus))
	}
}

// Regression test for the off-by-one in the scan bound: a NAL unit whose
// start code begins within 3 bytes of the end of the buffer must still be
// found, and the trailing NAL unit (with no further start code after it)
// must run to the end of the buffer.
func TestScanNALUsTrailingNALNearBufferEnd(t *testing.T) {
	buf := []byte{
		0, 0, 1, 0x67, 0xAA, 0xBB, 0xCC, 0xDD, // first NAL, padding to push next start code near the end
		0, 0, 1, 0x41, // trailing NAL: header byte 0x41 only, no trailing payload
	}
	nalus := ScanNALUs(buf)
	if len(nalus) != 2 {
		t.Fatalf("got %d NAL units, want 2", len(nalus))
	}
	if len(nalus[1]) != 1 || nalus[1][0] != 0x41 {
		t.Errorf("trailing nalu = %x, want single byte 0x41", nalus[1])
	}
}

func TestScanNALUsEmptyBuffer(t *testing.T) {
	if nalus := ScanNALUs(nil); len(nalus) != 0 {
		t.Errorf("expected no NAL units from empty buffer, got %d", len(nalus))
	}
}

func TestScanNALUsNoStartCode(t *testing.T) {
	if nalus := ScanNALUs([]byte{1, 2, 3, 4, 5}); len(nalus) != 0 {
		t.Errorf("expected no NAL units when no start code present, got %d", len(nalus))
	}
}

// Every returned slice must be non-empty, per Next's contract.
func TestScanNALUsNeverReturnsEmptySlice(t *testing.T) {
	buf := []byte{
		0, 0, 1, 0, 0, 1, 0x67, 0xAA, // back-to-back start codes: degenerate empty NAL skipped
	}
	nalus := ScanNALUs(buf)
	for i, nalu := range nalus {
		if len(nalu) == 0 {
			t.Errorf("nalu[%d] is empty", i)
		}
	}
}

// Concatenating each start code with its following slice must reconstruct
// the logical content of the original buffer (spec invariant: the scanner
// never drops or duplicates payload bytes).
func TestScanNALUsReconstructsPayload(t *testing.T) {
	buf := []byte{
		0, 0, 1, 0x67, 0xAA, 0xBB,
		0, 0, 0, 1, 0x68, 0xCC, 0xDD, 0xEE,
		0, 0, 1, 0x65, 0xFF,
	}
	nalus := ScanNALUs(buf)
	want := [][]byte{
		{0x67, 0xAA, 0xBB},
		{0x68, 0xCC, 0xDD, 0xEE},
		{0x65, 0xFF},
	}
	if len(nalus) != len(want) {
		t.Fatalf("got %d NAL units, want %d", len(nalus), len(want))
	}
	for i := range want {
		if string(nalus[i]) != string(want[i]) {
			t.Errorf("nalu[%d] = %x, want %x", i, nalus[i], want[i])
		}
	}
}
