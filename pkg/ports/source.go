package ports

import (
	"context"
	"image"
)

// DecodedFrame is a single decoded video frame.
//
// TimestampSec is the frame's actual presentation time in the source, which
// may differ from the requested seek time when the underlying decoder cannot
// seek exactly. Callers decide whether to accept the drift.
type DecodedFrame struct {
	Image        image.Image
	TimestampSec float64
	DurationSec  float64
}

// FrameSource abstracts seekable decoding of a source video.
//
// A FrameSource is a live decode session: it is opened once per export job,
// owned exclusively by the export driver, and must be closed exactly once.
type FrameSource interface {
	// Dimensions returns the natural pixel width and height of the source.
	Dimensions() (width, height int)

	// DurationSec returns the source duration in seconds.
	DurationSec() float64

	// SeekFrame decodes and returns the frame whose presentation interval
	// covers tSec. It blocks until the frame is available or ctx is done.
	// The returned frame reports its actual presentation time.
	SeekFrame(ctx context.Context, tSec float64) (DecodedFrame, error)

	// Close releases the decode session. Safe to call more than once.
	Close() error
}
