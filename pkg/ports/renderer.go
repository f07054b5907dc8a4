package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts image processing operations.
type Renderer interface {
	// CreateCanvas creates a new drawing canvas with the specified dimensions and background color.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// DecodeImage decodes image data into an image.Image.
	DecodeImage(data []byte, format ImageFormat) (image.Image, error)

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas provides drawing operations for compositing frames.
//
// Transform and clip state is scoped: every Push must be paired with a Pop,
// which restores the matrix and clip exactly as they were. Callers composite
// one frame per canvas, so state can never leak across frames.
type Canvas interface {
	// Push saves the current transform and clip state.
	Push()

	// Pop restores the most recently pushed transform and clip state.
	Pop()

	// Translate adds a translation to the current transform.
	Translate(dx, dy float64)

	// Scale adds a uniform scale to the current transform.
	Scale(s float64)

	// ClipRoundedRect intersects the clip region with a rounded rectangle.
	// Subsequent draws are masked to that region until the enclosing Pop.
	ClipRoundedRect(x, y, w, h, radius float64)

	// DrawImage draws an image at the specified position.
	DrawImage(img image.Image, x, y int)

	// DrawImageScaled draws an image stretched to the specified rectangle.
	DrawImageScaled(img image.Image, x, y, width, height float64)

	// Fill fills the entire canvas with a color, replacing prior content.
	Fill(c color.Color)

	// ToImage returns the canvas as an image.Image.
	ToImage() image.Image
}

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
	// FormatAuto lets the decoder sniff the format from the data.
	FormatAuto
)
