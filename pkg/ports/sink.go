package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
// It allows saving intermediate compositing results for debugging purposes.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SavePlanJSON saves the resolved export plan (geometry, schedule) as JSON.
	SavePlanJSON(data []byte) error

	// SaveBackground saves the rendered background template.
	SaveBackground(img image.Image) error

	// SaveComposedFrame saves a composed output frame.
	SaveComposedFrame(index int, img image.Image) error
}
