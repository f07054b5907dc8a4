// Package compositor renders edited output frames: a background layer plus
// the clipped, transformed source frame.
package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

// ParseHexColor parses a "#rrggbb" or "#rgb" hex string into an RGBA color.
func ParseHexColor(hex string) (color.RGBA, error) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}

	parse := func(s string) (uint8, error) {
		var v uint8
		for _, c := range s {
			var d uint8
			switch {
			case c >= '0' && c <= '9':
				d = uint8(c - '0')
			case c >= 'a' && c <= 'f':
				d = uint8(c-'a') + 10
			case c >= 'A' && c <= 'F':
				d = uint8(c-'A') + 10
			default:
				return 0, fmt.Errorf("invalid hex digit %q", c)
			}
			v = v<<4 | d
		}
		return v, nil
	}

	switch len(hex) {
	case 6:
		r, err := parse(hex[0:2])
		if err != nil {
			return color.RGBA{}, err
		}
		g, err := parse(hex[2:4])
		if err != nil {
			return color.RGBA{}, err
		}
		b, err := parse(hex[4:6])
		if err != nil {
			return color.RGBA{}, err
		}
		return color.RGBA{R: r, G: g, B: b, A: 255}, nil
	case 3:
		r, err := parse(hex[0:1])
		if err != nil {
			return color.RGBA{}, err
		}
		g, err := parse(hex[1:2])
		if err != nil {
			return color.RGBA{}, err
		}
		b, err := parse(hex[2:3])
		if err != nil {
			return color.RGBA{}, err
		}
		return color.RGBA{R: r * 17, G: g * 17, B: b * 17, A: 255}, nil
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}
}

// RenderBackground rasterizes the background spec into a full-canvas image.
// It runs once per export job; the result fully overwrites the destination
// on every frame, so it must be drawn before the video layer.
func RenderBackground(r ports.Renderer, width, height int, bg pipeline.Background) (image.Image, error) {
	switch bg.Kind {
	case pipeline.BackgroundColor, "":
		c := color.RGBA{A: 255}
		if bg.Color != "" {
			parsed, err := ParseHexColor(bg.Color)
			if err != nil {
				return nil, fmt.Errorf("parse background color: %w", err)
			}
			c = parsed
		}
		canvas := r.CreateCanvas(width, height, color.Transparent)
		canvas.Fill(c)
		return canvas.ToImage(), nil

	case pipeline.BackgroundImage:
		img, err := r.DecodeImage(bg.ImageData, ports.FormatAuto)
		if err != nil {
			return nil, fmt.Errorf("decode background image: %w", err)
		}
		return fitImage(r, img, width, height, bg.Fit), nil

	default:
		return nil, fmt.Errorf("unknown background kind %q", bg.Kind)
	}
}

// fitImage scales img into a width x height canvas per the fit policy.
func fitImage(r ports.Renderer, img image.Image, width, height int, fit pipeline.BackgroundFit) image.Image {
	canvas := r.CreateCanvas(width, height, color.Transparent)

	bounds := img.Bounds()
	iw := float64(bounds.Dx())
	ih := float64(bounds.Dy())
	cw := float64(width)
	ch := float64(height)

	switch fit {
	case pipeline.FitFill:
		canvas.DrawImage(r.ResizeImage(img, width, height), 0, 0)

	case pipeline.FitContain:
		scale := math.Min(cw/iw, ch/ih)
		tw := int(math.Round(iw * scale))
		th := int(math.Round(ih * scale))
		canvas.DrawImage(r.ResizeImage(img, tw, th), (width-tw)/2, (height-th)/2)

	default: // FitCover
		scale := math.Max(cw/iw, ch/ih)
		tw := int(math.Round(iw * scale))
		th := int(math.Round(ih * scale))
		canvas.DrawImage(r.ResizeImage(img, tw, th), (width-tw)/2, (height-th)/2)
	}

	return canvas.ToImage()
}
