package main

import (
	"errors"
	"testing"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/codecselect"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/exporter"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/mocks"
)

func TestSelectEncoderUnavailable(t *testing.T) {
	logger := &mocks.Logger{}

	// A preference list with no known codec leaves nothing to select.
	_, _, err := selectEncoder([]string{"vp9"}, "", logger)
	if err == nil {
		t.Fatal("expected error for unselectable preference list")
	}
	if !errors.Is(err, exporter.ErrEncoderUnavailable) {
		t.Errorf("error should match ErrEncoderUnavailable, got %v", err)
	}
}

func TestSelectEncoderAV1AlwaysAvailable(t *testing.T) {
	logger := &mocks.Logger{}

	encoder, info, err := selectEncoder([]string{codecselect.CodecAV1}, "", logger)
	if err != nil {
		t.Fatalf("selectEncoder failed: %v", err)
	}
	if encoder == nil {
		t.Fatal("nil encoder")
	}
	if info.Codec != codecselect.CodecAV1 {
		t.Errorf("codec: got %s, want %s", info.Codec, codecselect.CodecAV1)
	}
}
