package ports

import (
	"image"
)

// VideoEncoder abstracts video encoding operations.
//
// A VideoEncoder is a live encode session: Begin opens it, frames are pushed
// in strictly increasing timestamp order, and exactly one of End or Abort
// closes it.
type VideoEncoder interface {
	// Begin initializes the encoder with the specified dimensions and frame rate.
	Begin(width, height int, fps float64, opts EncoderOptions) error

	// EncodeFrame encodes a single frame at the specified timestamp.
	EncodeFrame(img image.Image, timestampMs int) error

	// End flushes the encoder and returns the finished container bytes.
	End() ([]byte, error)

	// Abort stops the session without flushing and discards buffered output.
	// Used on cancellation. Safe to call after End (no-op).
	Abort()
}

// EncoderOptions configures video encoding parameters.
type EncoderOptions struct {
	Bitrate int // Target bitrate in kbps
	Quality int // CRF value: 0-63 (lower is higher quality)
}
