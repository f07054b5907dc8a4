package mocks

import (
	"context"
	"image"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource.
// Unless SeekFrameFunc is set, it returns a solid frame at the requested
// timestamp with duration 1/30s.
type FrameSource struct {
	Width    int
	Height   int
	Duration float64

	SeekFrameFunc func(ctx context.Context, tSec float64) (ports.DecodedFrame, error)

	// Recorded calls for verification
	SeekCalls  []float64
	CloseCount int
}

// NewFrameSource creates a mock FrameSource with the given geometry.
func NewFrameSource(width, height int, durationSec float64) *FrameSource {
	return &FrameSource{Width: width, Height: height, Duration: durationSec}
}

func (m *FrameSource) Dimensions() (int, int) {
	return m.Width, m.Height
}

func (m *FrameSource) DurationSec() float64 {
	return m.Duration
}

func (m *FrameSource) SeekFrame(ctx context.Context, tSec float64) (ports.DecodedFrame, error) {
	m.SeekCalls = append(m.SeekCalls, tSec)
	if m.SeekFrameFunc != nil {
		return m.SeekFrameFunc(ctx, tSec)
	}
	return ports.DecodedFrame{
		Image:        image.NewRGBA(image.Rect(0, 0, m.Width, m.Height)),
		TimestampSec: tSec,
		DurationSec:  1.0 / 30.0,
	}, nil
}

func (m *FrameSource) Close() error {
	m.CloseCount++
	return nil
}

var _ ports.FrameSource = (*FrameSource)(nil)
