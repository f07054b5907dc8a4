package codecselect

import (
	"testing"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/av1encoder"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/h264encoder"
)

func TestSelect_AV1AlwaysAvailable(t *testing.T) {
	enc, info, err := Select([]string{CodecAV1}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := enc.(*av1encoder.Encoder); !ok {
		t.Errorf("expected libaom encoder, got %T", enc)
	}
	if info.Codec != CodecAV1 || info.Backend != "libaom" {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.FallbackUsed {
		t.Error("first preference satisfied, fallback flag should be false")
	}
	if info.MimeType == "" {
		t.Error("expected a MIME type")
	}
}

func TestSelect_FallsBackToAV1(t *testing.T) {
	// Point the h264 probe at a missing binary so the first preference fails.
	defer h264encoder.SetFFmpegPath("")
	enc, info, err := Select(DefaultPreferences(), Options{FFmpegPath: "/nonexistent/ffmpeg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := enc.(*av1encoder.Encoder); !ok {
		t.Fatalf("expected fallback to libaom encoder, got %T", enc)
	}
	if info.Codec != CodecAV1 {
		t.Errorf("expected av1, got %s", info.Codec)
	}
	if !info.FallbackUsed {
		t.Error("expected fallback flag")
	}
}

func TestSelect_UnknownNamesSkipped(t *testing.T) {
	_, info, err := Select([]string{"vp9", CodecAV1}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Codec != CodecAV1 {
		t.Errorf("expected av1, got %s", info.Codec)
	}
	if !info.FallbackUsed {
		t.Error("expected fallback flag when first preference is unknown")
	}
}

func TestSelect_EmptyListUsesDefaults(t *testing.T) {
	_, info, err := Select(nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Codec != CodecH264 && info.Codec != CodecAV1 {
		t.Errorf("unexpected codec %s", info.Codec)
	}
}
