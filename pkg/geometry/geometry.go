// Package geometry resolves percentage-based edit descriptors into absolute
// pixel rectangles and transforms. All functions are pure and perform no I/O.
package geometry

import (
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
)

// ResolveCrop converts a percentage crop spec into a pixel rectangle using
// the source's natural dimensions. The result is clamped to the source
// bounds, and degenerate rectangles are clamped to 1px so draws never
// collapse to zero area.
func ResolveCrop(sourceWidth, sourceHeight int, crop pipeline.CropSpec) pipeline.Rect {
	sw := float64(sourceWidth)
	sh := float64(sourceHeight)

	r := pipeline.Rect{
		X:      crop.X * sw / 100,
		Y:      crop.Y * sh / 100,
		Width:  crop.Width * sw / 100,
		Height: crop.Height * sh / 100,
	}

	r.X = clamp(r.X, 0, sw)
	r.Y = clamp(r.Y, 0, sh)
	r.Width = clamp(r.Width, 0, sw-r.X)
	r.Height = clamp(r.Height, 0, sh-r.Y)

	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}

// ResolveCanvasRegion computes the drawable region of the output canvas: the
// canvas inset on all sides by paddingPercent of the smaller canvas
// dimension.
func ResolveCanvasRegion(outputWidth, outputHeight int, paddingPercent float64) pipeline.Rect {
	ow := float64(outputWidth)
	oh := float64(outputHeight)

	minDim := ow
	if oh < minDim {
		minDim = oh
	}
	pad := paddingPercent / 100 * minDim

	r := pipeline.Rect{
		X:      pad,
		Y:      pad,
		Width:  ow - pad*2,
		Height: oh - pad*2,
	}
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}

// Transform is a scale-about-anchor transform in output canvas coordinates.
// Applying Translate(TranslateX, TranslateY) then Scale(Scale) maps a point p
// to anchor + Scale*(p - anchor).
type Transform struct {
	TranslateX float64
	TranslateY float64
	Scale      float64
}

// Identity reports whether the transform leaves coordinates unchanged.
func (t Transform) Identity() bool {
	return t.Scale == 1 && t.TranslateX == 0 && t.TranslateY == 0
}

// ResolveZoomTransform maps a zoom effect's grid target (0-7 per axis) to a
// pixel anchor inside the drawable region and yields the scale-about-anchor
// transform for that effect.
func ResolveZoomTransform(z pipeline.ZoomEffect, region pipeline.Rect) Transform {
	anchorX := region.X + float64(z.TargetX)/pipeline.ZoomGridMax*region.Width
	anchorY := region.Y + float64(z.TargetY)/pipeline.ZoomGridMax*region.Height

	return Transform{
		TranslateX: anchorX * (1 - z.Zoom),
		TranslateY: anchorY * (1 - z.Zoom),
		Scale:      z.Zoom,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
