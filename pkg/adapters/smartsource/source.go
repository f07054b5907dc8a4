// Package smartsource opens a frame source for a video file, picking the
// decode backend from the file's codec.
package smartsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/av1source"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/codecdetect"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/ffmpegsource"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

// ErrNoDecoderAvailable is returned when neither backend can open the file.
var ErrNoDecoderAvailable = errors.New("smartsource: no decoder available")

// Info describes the selected decode backend.
type Info struct {
	// Codec is the detected source codec.
	Codec string
	// Backend names the implementation ("libaom" or "ffmpeg").
	Backend string
}

// Options configures backend selection.
type Options struct {
	// FFmpegPath overrides ffmpeg discovery for the ffmpeg backend.
	FFmpegPath string

	// TrimStartSec/TrimEndSec bound the ffmpeg backend's decode window.
	// The libaom backend seeks natively and ignores them.
	TrimStartSec float64
	TrimEndSec   float64

	// Logger, when set, receives backend selection details.
	Logger ports.Logger
}

// Open detects the codec of the file and returns a frame source for it.
//
// AV1 decodes in-process through libaom. Anything else goes through ffmpeg,
// which handles H.264 and whatever other codec the local build supports.
func Open(ctx context.Context, path string, opts Options) (ports.FrameSource, Info, error) {
	codec, err := codecdetect.DetectFromFile(path)
	if err != nil {
		codec = codecdetect.CodecUnknown
	}

	if codec == codecdetect.CodecAV1 {
		src, err := av1source.Open(path)
		if err == nil {
			if opts.Logger != nil {
				opts.Logger.Debug("source backend: libaom (av1)")
			}
			return src, Info{Codec: string(codec), Backend: "libaom"}, nil
		}
		if opts.Logger != nil {
			opts.Logger.Warn("libaom source failed (%v), trying ffmpeg", err)
		}
	}

	src, err := ffmpegsource.Open(ctx, path, ffmpegsource.Options{
		FFmpegPath:   opts.FFmpegPath,
		TrimStartSec: opts.TrimStartSec,
		TrimEndSec:   opts.TrimEndSec,
	})
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %v", ErrNoDecoderAvailable, err)
	}

	if opts.Logger != nil {
		opts.Logger.Debug("source backend: ffmpeg (%s)", codec)
	}
	return src, Info{Codec: string(codec), Backend: "ffmpeg"}, nil
}
