package av1source

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/av1encoder"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

// encodeFixture produces an AV1 MP4 with frameCount solid frames whose red
// channel ramps with the frame index.
func encodeFixture(t *testing.T, frameCount int) []byte {
	t.Helper()

	enc := av1encoder.New()
	if err := enc.Begin(64, 48, 30.0, ports.EncoderOptions{Quality: 40}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for i := 0; i < frameCount; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 64, 48))
		c := color.RGBA{R: uint8(i * 20), G: 100, B: 100, A: 255}
		for y := 0; y < 48; y++ {
			for x := 0; x < 64; x++ {
				img.Set(x, y, c)
			}
		}
		if err := enc.EncodeFrame(img, i*33); err != nil {
			t.Fatalf("EncodeFrame %d failed: %v", i, err)
		}
	}
	data, err := enc.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	return data
}

func TestFromBytes_Probe(t *testing.T) {
	src, err := FromBytes(encodeFixture(t, 10))
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	defer src.Close()

	w, h := src.Dimensions()
	if w != 64 || h != 48 {
		t.Errorf("expected 64x48, got %dx%d", w, h)
	}
	if d := src.DurationSec(); d < 0.25 || d > 0.45 {
		t.Errorf("expected roughly 0.33s duration, got %.3f", d)
	}
}

func TestSeekFrame_ForwardAndBackward(t *testing.T) {
	src, err := FromBytes(encodeFixture(t, 10))
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	defer src.Close()

	ctx := context.Background()

	first, err := src.SeekFrame(ctx, 0)
	if err != nil {
		t.Fatalf("seek 0 failed: %v", err)
	}
	if first.TimestampSec != 0 {
		t.Errorf("expected timestamp 0, got %.3f", first.TimestampSec)
	}
	if first.Image == nil {
		t.Fatal("expected decoded image")
	}

	mid, err := src.SeekFrame(ctx, 0.2)
	if err != nil {
		t.Fatalf("seek 0.2 failed: %v", err)
	}
	if mid.TimestampSec <= first.TimestampSec {
		t.Errorf("expected later timestamp, got %.3f", mid.TimestampSec)
	}
	// The frame's presentation interval must cover the requested time.
	if mid.TimestampSec > 0.2 || mid.TimestampSec+mid.DurationSec < 0.2 {
		t.Errorf("interval [%.3f, %.3f) does not cover 0.2", mid.TimestampSec, mid.TimestampSec+mid.DurationSec)
	}

	// Backward seek rewinds through the keyframe and still decodes.
	back, err := src.SeekFrame(ctx, 0.05)
	if err != nil {
		t.Fatalf("backward seek failed: %v", err)
	}
	if back.TimestampSec > 0.05 {
		t.Errorf("expected timestamp <= 0.05, got %.3f", back.TimestampSec)
	}
}

func TestSeekFrame_PastEndClampsToLastFrame(t *testing.T) {
	src, err := FromBytes(encodeFixture(t, 5))
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	defer src.Close()

	frame, err := src.SeekFrame(context.Background(), 100)
	if err != nil {
		t.Fatalf("seek past end failed: %v", err)
	}
	if frame.Image == nil {
		t.Fatal("expected last frame")
	}
}

func TestSeekFrame_CancelledContext(t *testing.T) {
	src, err := FromBytes(encodeFixture(t, 5))
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.SeekFrame(ctx, 0); err == nil {
		t.Error("expected context error")
	}
}

func TestClose_Idempotent(t *testing.T) {
	src, err := FromBytes(encodeFixture(t, 3))
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if _, err := src.SeekFrame(context.Background(), 0); err == nil {
		t.Error("expected error seeking a closed source")
	}
}

func TestSampleAt(t *testing.T) {
	src := &Source{
		samples: []sample{
			{startSec: 0, durSec: 0.5},
			{startSec: 0.5, durSec: 0.5},
			{startSec: 1.0, durSec: 0.5},
		},
	}

	tests := []struct {
		t    float64
		want int
	}{
		{-1, 0},
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{0.99, 1},
		{1.2, 2},
		{99, 2},
	}
	for _, tt := range tests {
		if got := src.sampleAt(tt.t); got != tt.want {
			t.Errorf("sampleAt(%.2f) = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestFromBytes_Garbage(t *testing.T) {
	if _, err := FromBytes([]byte("not an mp4")); err == nil {
		t.Error("expected error for garbage input")
	}
}
