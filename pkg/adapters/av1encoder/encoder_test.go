package av1encoder

import (
	"image"
	"image/color"
	"testing"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

func solidFrame(width, height int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestEncoder_Begin(t *testing.T) {
	encoder := New()

	err := encoder.Begin(128, 128, 30.0, ports.EncoderOptions{
		Quality: 30,
		Bitrate: 1000,
	})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	encoder.Abort()
}

func TestEncoder_BeginTwiceFails(t *testing.T) {
	encoder := New()

	if err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer encoder.Abort()

	if err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{}); err == nil {
		t.Error("expected error for double Begin")
	}
}

func TestEncoder_EncodeWithoutBegin(t *testing.T) {
	encoder := New()

	err := encoder.EncodeFrame(solidFrame(64, 64, color.RGBA{R: 255, A: 255}), 0)
	if err == nil {
		t.Error("expected error when encoding without Begin")
	}
}

func TestEncoder_EndProducesMP4(t *testing.T) {
	encoder := New()

	if err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{Quality: 40}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	colors := []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, A: 255},
		{R: 255, B: 255, A: 255},
	}
	for i, c := range colors {
		if err := encoder.EncodeFrame(solidFrame(64, 64, c), i*33); err != nil {
			t.Fatalf("EncodeFrame %d failed: %v", i, err)
		}
	}

	data, err := encoder.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if len(data) < 8 {
		t.Fatal("MP4 data too short")
	}
	if string(data[4:8]) != "ftyp" {
		t.Errorf("expected ftyp signature, got %q", data[4:8])
	}
}

func TestEncoder_EndWithoutFrames(t *testing.T) {
	encoder := New()

	if err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if _, err := encoder.End(); err == nil {
		t.Error("expected error when ending without frames")
	}
}

func TestEncoder_AbortDiscardsSession(t *testing.T) {
	encoder := New()

	if err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{Quality: 40}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := encoder.EncodeFrame(solidFrame(64, 64, color.RGBA{R: 255, A: 255}), 0); err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	encoder.Abort()

	if len(encoder.frames) != 0 {
		t.Errorf("expected buffered frames discarded, got %d", len(encoder.frames))
	}
	if _, err := encoder.End(); err == nil {
		t.Error("expected error for End after Abort")
	}

	// A fresh session on the same encoder still works.
	if err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{Quality: 40}); err != nil {
		t.Fatalf("Begin after Abort failed: %v", err)
	}
	if err := encoder.EncodeFrame(solidFrame(64, 64, color.RGBA{G: 255, A: 255}), 0); err != nil {
		t.Fatalf("EncodeFrame after restart failed: %v", err)
	}
	if _, err := encoder.End(); err != nil {
		t.Fatalf("End after restart failed: %v", err)
	}
}

func TestEncoder_AbortAfterEndIsNoop(t *testing.T) {
	encoder := New()

	if err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{Quality: 40}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := encoder.EncodeFrame(solidFrame(64, 64, color.RGBA{R: 255, A: 255}), 0); err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	if _, err := encoder.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	encoder.Abort()
}

func TestEncoder_DifferentResolutions(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"small", 64, 64},
		{"wide", 320, 180},
		{"tall", 180, 320},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder := New()

			if err := encoder.Begin(tt.width, tt.height, 30.0, ports.EncoderOptions{Quality: 45}); err != nil {
				t.Fatalf("Begin failed: %v", err)
			}
			if err := encoder.EncodeFrame(solidFrame(tt.width, tt.height, color.RGBA{R: 100, G: 150, B: 200, A: 255}), 0); err != nil {
				t.Fatalf("EncodeFrame failed: %v", err)
			}

			data, err := encoder.End()
			if err != nil {
				t.Fatalf("End failed: %v", err)
			}
			if len(data) == 0 {
				t.Error("expected non-empty MP4 data")
			}
		})
	}
}

func TestExtractSequenceHeader(t *testing.T) {
	// OBU with type 2 (temporal delimiter), then type 1 (sequence header).
	td := []byte{0x12, 0x00}
	seq := []byte{0x0a, 0x03, 0xaa, 0xbb, 0xcc}
	stream := append(append([]byte{}, td...), seq...)

	got := extractSequenceHeader(stream)
	if len(got) != len(seq) {
		t.Fatalf("expected %d bytes, got %d", len(seq), len(got))
	}
	for i := range seq {
		if got[i] != seq[i] {
			t.Fatalf("byte %d: expected %#x, got %#x", i, seq[i], got[i])
		}
	}
}

func TestReadLeb128(t *testing.T) {
	tests := []struct {
		data       []byte
		wantValue  int
		wantOffset int
	}{
		{[]byte{0x00}, 0, 1},
		{[]byte{0x7f}, 127, 1},
		{[]byte{0x80, 0x01}, 128, 2},
		{[]byte{0xff, 0x7f}, 16383, 2},
	}
	for _, tt := range tests {
		value, offset := readLeb128(tt.data, 0)
		if value != tt.wantValue || offset != tt.wantOffset {
			t.Errorf("readLeb128(%v) = (%d, %d), want (%d, %d)", tt.data, value, offset, tt.wantValue, tt.wantOffset)
		}
	}
}
