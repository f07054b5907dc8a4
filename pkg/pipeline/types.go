package pipeline

import (
	"fmt"
)

// =============================================================================
// Common Types
// =============================================================================

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// Rect represents a rectangular area in pixels.
// Float coordinates keep percentage-derived geometry truncation-free until
// the final draw call.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// =============================================================================
// Edit Descriptor
// =============================================================================

// CropSpec describes a crop rectangle as percentages of the source
// dimensions. Each value is in [0, 100], X+Width <= 100, Y+Height <= 100.
type CropSpec struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// FullCrop returns a crop spec covering the entire source.
func FullCrop() CropSpec {
	return CropSpec{X: 0, Y: 0, Width: 100, Height: 100}
}

// ZoomEffect is a time-windowed scale-about-anchor effect.
//
// TargetX/TargetY are grid coordinates on a fixed 0-7 axis mapped to a pixel
// anchor inside the drawable region. Zoom is applied as a step function over
// [StartSec, EndSec] (inclusive); there is no easing between windows.
type ZoomEffect struct {
	StartSec float64 `yaml:"start" json:"start"`
	EndSec   float64 `yaml:"end" json:"end"`
	Zoom     float64 `yaml:"zoom" json:"zoom"`
	TargetX  int     `yaml:"target_x" json:"target_x"`
	TargetY  int     `yaml:"target_y" json:"target_y"`
}

// ZoomGridMax is the maximum grid coordinate of a zoom anchor (0-7 axis).
const ZoomGridMax = 7

// BackgroundKind discriminates the background variant.
type BackgroundKind string

const (
	// BackgroundColor fills the output canvas with a solid color.
	BackgroundColor BackgroundKind = "color"
	// BackgroundImage rasterizes a fitted image into the output canvas.
	BackgroundImage BackgroundKind = "image"
)

// BackgroundFit is the policy for scaling a background image into the canvas.
type BackgroundFit string

const (
	// FitCover scales the image to fully cover the canvas, cropping overflow.
	FitCover BackgroundFit = "cover"
	// FitContain scales the image to fit entirely within the canvas, centered.
	FitContain BackgroundFit = "contain"
	// FitFill stretches the image to exactly the canvas dimensions.
	FitFill BackgroundFit = "fill"
)

// Background describes the layer rendered beneath the video.
type Background struct {
	Kind BackgroundKind `yaml:"kind" json:"kind"`

	// Color is a hex color like "#1a1a2e". Used when Kind is BackgroundColor.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`

	// ImageData holds encoded image bytes (PNG/JPEG). Used when Kind is
	// BackgroundImage.
	ImageData []byte `yaml:"-" json:"-"`

	// Fit selects the image scaling policy. Used when Kind is BackgroundImage.
	Fit BackgroundFit `yaml:"fit,omitempty" json:"fit,omitempty"`
}

// ColorBackground returns a solid-color background.
func ColorBackground(hex string) Background {
	return Background{Kind: BackgroundColor, Color: hex}
}

// EditDescriptor describes one export job. It is created once by the caller
// before the export begins and never mutated during the export.
type EditDescriptor struct {
	TrimStartSec float64 `yaml:"trim_start" json:"trim_start"`
	TrimEndSec   float64 `yaml:"trim_end" json:"trim_end"`

	Crop CropSpec `yaml:"crop" json:"crop"`

	// PaddingPercent shrinks the rendered video inside the output frame.
	// The pixel inset is PaddingPercent/100 of the smaller canvas dimension.
	PaddingPercent float64 `yaml:"padding" json:"padding"`

	// CornerRadius rounds the corners of the drawable region, in output pixels.
	CornerRadius float64 `yaml:"corner_radius" json:"corner_radius"`

	Background Background `yaml:"background" json:"background"`

	// ZoomEffects are time-ordered and must not overlap.
	ZoomEffects []ZoomEffect `yaml:"zoom_effects" json:"zoom_effects"`
}

// Validate re-checks the descriptor invariants against the source duration.
// The caller is responsible for UI-level validation; this is the fail-fast
// boundary check run by the export driver before any resource is opened.
func (d EditDescriptor) Validate(sourceDurationSec float64) error {
	if d.TrimStartSec < 0 {
		return fmt.Errorf("trim start %.3f is negative", d.TrimStartSec)
	}
	if d.TrimStartSec >= d.TrimEndSec {
		return fmt.Errorf("trim start %.3f must be before trim end %.3f", d.TrimStartSec, d.TrimEndSec)
	}
	if sourceDurationSec > 0 && d.TrimEndSec > sourceDurationSec+1e-6 {
		return fmt.Errorf("trim end %.3f exceeds source duration %.3f", d.TrimEndSec, sourceDurationSec)
	}
	if err := validateCrop(d.Crop); err != nil {
		return err
	}
	if d.PaddingPercent < 0 || d.PaddingPercent > 100 {
		return fmt.Errorf("padding %.1f%% outside [0, 100]", d.PaddingPercent)
	}
	if d.CornerRadius < 0 {
		return fmt.Errorf("corner radius %.1f is negative", d.CornerRadius)
	}
	if err := validateBackground(d.Background); err != nil {
		return err
	}
	for i, z := range d.ZoomEffects {
		if z.StartSec >= z.EndSec {
			return fmt.Errorf("zoom effect %d: start %.3f must be before end %.3f", i, z.StartSec, z.EndSec)
		}
		if z.Zoom < 1 {
			return fmt.Errorf("zoom effect %d: zoom %.2f must be >= 1", i, z.Zoom)
		}
		if z.TargetX < 0 || z.TargetX > ZoomGridMax || z.TargetY < 0 || z.TargetY > ZoomGridMax {
			return fmt.Errorf("zoom effect %d: target (%d, %d) outside grid 0-%d", i, z.TargetX, z.TargetY, ZoomGridMax)
		}
	}
	return nil
}

func validateCrop(c CropSpec) error {
	vals := []struct {
		name string
		v    float64
	}{
		{"x", c.X}, {"y", c.Y}, {"width", c.Width}, {"height", c.Height},
	}
	for _, f := range vals {
		if f.v < 0 || f.v > 100 {
			return fmt.Errorf("crop %s %.1f%% outside [0, 100]", f.name, f.v)
		}
	}
	if c.X+c.Width > 100+1e-9 {
		return fmt.Errorf("crop x+width %.1f%% exceeds 100%%", c.X+c.Width)
	}
	if c.Y+c.Height > 100+1e-9 {
		return fmt.Errorf("crop y+height %.1f%% exceeds 100%%", c.Y+c.Height)
	}
	return nil
}

func validateBackground(b Background) error {
	switch b.Kind {
	case BackgroundColor, "":
		return nil
	case BackgroundImage:
		if len(b.ImageData) == 0 {
			return fmt.Errorf("image background has no image data")
		}
		switch b.Fit {
		case FitCover, FitContain, FitFill:
			return nil
		default:
			return fmt.Errorf("unknown background fit %q", b.Fit)
		}
	default:
		return fmt.Errorf("unknown background kind %q", b.Kind)
	}
}

// =============================================================================
// Progress
// =============================================================================

// Phase is the export driver's state machine phase.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseProcessing   Phase = "processing"
	PhaseFinalizing   Phase = "finalizing"
	PhaseComplete     Phase = "complete"
	PhaseError        Phase = "error"
	PhaseCancelled    Phase = "cancelled"
)

// Terminal reports whether the phase is a terminal state.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError || p == PhaseCancelled
}

// Progress is a snapshot of export progress, emitted on every meaningful
// state change. Consumers must treat it as a snapshot, not a diff.
type Progress struct {
	Phase      Phase   `json:"phase"`
	Percent    float64 `json:"percent"`
	CurrentSec float64 `json:"current_sec,omitempty"`
	TotalSec   float64 `json:"total_sec,omitempty"`
	Message    string  `json:"message,omitempty"`
}
