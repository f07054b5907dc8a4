// Package codecselect picks a video encoder backend from a ranked codec
// preference list, probing each candidate for availability.
package codecselect

import (
	"errors"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/av1encoder"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/h264encoder"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

// Codec names accepted in a preference list.
const (
	CodecH264 = "h264"
	CodecAV1  = "av1"
)

// ErrNoEncoderAvailable is returned when no candidate in the preference list
// can run on this machine.
var ErrNoEncoderAvailable = errors.New("codecselect: no encoder available")

// Info describes the selected backend.
type Info struct {
	// Codec is the codec actually selected.
	Codec string
	// Backend names the implementation ("ffmpeg" or "libaom").
	Backend string
	// MimeType is the container MIME type the encoder produces.
	MimeType string
	// FallbackUsed is true when the first preference was unavailable.
	FallbackUsed bool
}

// Options configures selection.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// Logger, when set, receives a warning on fallback.
	Logger ports.Logger
}

// DefaultPreferences is the codec order used when the caller has none.
func DefaultPreferences() []string {
	return []string{CodecH264, CodecAV1}
}

type candidate struct {
	codec     string
	backend   string
	mimeType  string
	available func() bool
	build     func() ports.VideoEncoder
}

func candidates() []candidate {
	return []candidate{
		{
			codec:     CodecH264,
			backend:   "ffmpeg",
			mimeType:  `video/mp4; codecs="avc1.42E01F"`,
			available: h264encoder.IsFFmpegAvailable,
			build:     func() ports.VideoEncoder { return h264encoder.New() },
		},
		{
			codec:    CodecAV1,
			backend:  "libaom",
			mimeType: `video/mp4; codecs="av01.0.08M.08"`,
			// libaom is linked in, so AV1 is always encodable.
			available: func() bool { return true },
			build:     func() ports.VideoEncoder { return av1encoder.New() },
		},
	}
}

// Select walks the preference list and returns the first available backend.
// Unknown codec names are skipped.
func Select(preferences []string, opts Options) (ports.VideoEncoder, Info, error) {
	if len(preferences) == 0 {
		preferences = DefaultPreferences()
	}
	if opts.FFmpegPath != "" {
		h264encoder.SetFFmpegPath(opts.FFmpegPath)
	}

	all := candidates()
	for rank, pref := range preferences {
		for _, c := range all {
			if c.codec != pref {
				continue
			}
			if !c.available() {
				if opts.Logger != nil {
					opts.Logger.Warn("%s encoder (%s) not available, trying next preference", c.codec, c.backend)
				}
				break
			}
			return c.build(), Info{
				Codec:        c.codec,
				Backend:      c.backend,
				MimeType:     c.mimeType,
				FallbackUsed: rank > 0,
			}, nil
		}
	}

	return nil, Info{}, ErrNoEncoderAvailable
}
