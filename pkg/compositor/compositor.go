package compositor

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/geometry"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/timeline"
)

// Compositor composes one output frame per scheduled timestamp.
//
// Geometry is resolved once at construction: crop against the source's
// natural dimensions, padding and zoom anchors against the output canvas.
// The compositor holds no mutable state between frames; each Compose call
// draws on a fresh canvas and the transform/clip scope is closed before the
// frame is returned.
type Compositor struct {
	renderer ports.Renderer

	outWidth  int
	outHeight int

	crop       pipeline.Rect
	region     pipeline.Rect
	radius     float64
	zoom       *timeline.Index
	background image.Image
}

// New resolves the descriptor's geometry for the given source and output
// dimensions and renders the background template. An undecodable background
// image fails here, before any frame is composited.
func New(renderer ports.Renderer, sourceWidth, sourceHeight, outWidth, outHeight int, edit pipeline.EditDescriptor) (*Compositor, error) {
	bg, err := RenderBackground(renderer, outWidth, outHeight, edit.Background)
	if err != nil {
		return nil, fmt.Errorf("render background: %w", err)
	}

	return &Compositor{
		renderer:   renderer,
		outWidth:   outWidth,
		outHeight:  outHeight,
		crop:       geometry.ResolveCrop(sourceWidth, sourceHeight, edit.Crop),
		region:     geometry.ResolveCanvasRegion(outWidth, outHeight, edit.PaddingPercent),
		radius:     edit.CornerRadius,
		zoom:       timeline.NewIndex(edit.ZoomEffects),
		background: bg,
	}, nil
}

// Region returns the drawable region of the output canvas.
func (c *Compositor) Region() pipeline.Rect {
	return c.region
}

// Background returns the rendered background template.
func (c *Compositor) Background() image.Image {
	return c.background
}

// Compose renders the output frame for source frame at timeline time tSec.
// tSec is absolute source time (inside the trim window); zoom windows are
// expressed on the same clock.
func (c *Compositor) Compose(frame image.Image, tSec float64) image.Image {
	canvas := c.renderer.CreateCanvas(c.outWidth, c.outHeight, color.Transparent)
	canvas.DrawImage(c.background, 0, 0)

	c.drawVideoLayer(canvas, frame, tSec)

	return canvas.ToImage()
}

// drawVideoLayer draws the clipped, transformed source frame. The push/pop
// pair scopes the clip and transform to this call, so nothing leaks into
// later frames.
func (c *Compositor) drawVideoLayer(canvas ports.Canvas, frame image.Image, tSec float64) {
	canvas.Push()
	defer canvas.Pop()

	if c.radius > 0 {
		canvas.ClipRoundedRect(c.region.X, c.region.Y, c.region.Width, c.region.Height, c.radius)
	}

	if effect, ok := c.zoom.ActiveAt(tSec); ok {
		tr := geometry.ResolveZoomTransform(effect, c.region)
		canvas.Translate(tr.TranslateX, tr.TranslateY)
		canvas.Scale(tr.Scale)
	}

	cropped := extractSubImage(frame,
		int(c.crop.X), int(c.crop.Y),
		int(c.crop.Width+0.5), int(c.crop.Height+0.5))
	if cropped == nil {
		return
	}

	canvas.DrawImageScaled(cropped, c.region.X, c.region.Y, c.region.Width, c.region.Height)
}

// extractSubImage extracts a portion of an image.
// IMPORTANT: Returns an image with bounds starting at (0,0) for compatibility
// with drawing libraries like gg that may not handle non-zero bounds correctly.
func extractSubImage(img image.Image, x, y, width, height int) image.Image {
	if img == nil {
		return nil
	}
	bounds := img.Bounds()

	srcX := bounds.Min.X + x
	srcY := bounds.Min.Y + y

	if srcX < bounds.Min.X {
		srcX = bounds.Min.X
	}
	if srcY < bounds.Min.Y {
		srcY = bounds.Min.Y
	}
	if srcX+width > bounds.Max.X {
		width = bounds.Max.X - srcX
	}
	if srcY+height > bounds.Max.Y {
		height = bounds.Max.Y - srcY
	}

	if width <= 0 || height <= 0 {
		return nil
	}

	// Full-frame extraction of a (0,0)-origin RGBA image needs no copy.
	if rgba, ok := img.(*image.RGBA); ok && srcX == 0 && srcY == 0 &&
		bounds.Min == image.Pt(0, 0) && width == bounds.Dx() && height == bounds.Dy() {
		return rgba
	}

	result := image.NewRGBA(image.Rect(0, 0, width, height))
	for dy := 0; dy < height; dy++ {
		for dx := 0; dx < width; dx++ {
			result.Set(dx, dy, img.At(srcX+dx, srcY+dy))
		}
	}
	return result
}
