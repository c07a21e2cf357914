package camera

import "testing"

func TestNewTestPatternRejectsOddDimensions(t *testing.T) {
	if _, err := NewTestPattern(65, 64); err == nil {
		t.Fatal("expected error for odd width")
	}
}

func TestTestPatternLifecycle(t *testing.T) {
	tp, err := NewTestPattern(64, 32)
	if err != nil {
		t.Fatalf("NewTestPattern: %v", err)
	}
	if tp.IsStreaming() {
		t.Fatal("should not be streaming before StartStreaming")
	}
	if err := tp.CaptureFrame(); err == nil {
		t.Fatal("CaptureFrame before StartStreaming should fail")
	}
	if err := tp.StartStreaming(); err != nil {
		t.Fatalf("StartStreaming: %v", err)
	}
	if !tp.IsStreaming() {
		t.Fatal("should be streaming after StartStreaming")
	}
	if err := tp.CaptureFrame(); err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if got := tp.ImageSize(); got != 64*32*2 {
		t.Errorf("ImageSize = %d, want %d", got, 64*32*2)
	}
	if tp.Width() != 64 || tp.Height() != 32 {
		t.Errorf("dimensions = %dx%d, want 64x32", tp.Width(), tp.Height())
	}
}

func TestTestPatternFramesDiffer(t *testing.T) {
	tp, _ := NewTestPattern(64, 32)
	tp.StartStreaming()

	tp.CaptureFrame()
	first := append([]byte(nil), tp.ImageData()...)
	tp.CaptureFrame()
	second := tp.ImageData()

	if string(first) == string(second) {
		t.Error("expected consecutive frames to differ")
	}
}

func TestTestPatternDeterministicByFrameIndex(t *testing.T) {
	tp1, _ := NewTestPattern(64, 32)
	tp1.StartStreaming()
	tp1.CaptureFrame()
	tp1.CaptureFrame()
	frame1 := append([]byte(nil), tp1.ImageData()...)

	tp2, _ := NewTestPattern(64, 32)
	tp2.StartStreaming()
	tp2.CaptureFrame()
	tp2.CaptureFrame()
	frame2 := tp2.ImageData()

	if string(frame1) != string(frame2) {
		t.Error("expected identical frame sequences from two freshly created sources")
	}
}

func TestTestPatternCurrentFrameLockRoundTrip(t *testing.T) {
	tp, _ := NewTestPattern(64, 32)
	tp.StartStreaming()
	tp.CaptureFrame()

	token, data, w, h, err := tp.CurrentFrame()
	if err != nil {
		t.Fatalf("CurrentFrame: %v", err)
	}
	if w != 64 || h != 32 || len(data) != 64*32*2 {
		t.Fatalf("unexpected frame shape: %dx%d, %d bytes", w, h, len(data))
	}

	if _, _, _, _, err := tp.CurrentFrame(); err == nil {
		t.Fatal("second concurrent CurrentFrame should fail while locked")
	}

	tp.ReleaseBuffer(token)

	if _, _, _, _, err := tp.CurrentFrame(); err != nil {
		t.Fatalf("CurrentFrame after release: %v", err)
	}
}
