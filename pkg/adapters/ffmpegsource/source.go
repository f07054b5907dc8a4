// Package ffmpegsource provides a frame source backed by an external ffmpeg
// process. The requested window is decoded once into an in-memory RGBA index;
// seeks are then served without touching ffmpeg again.
package ffmpegsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/h264encoder"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
var ErrFFmpegNotFound = errors.New("ffmpegsource: ffmpeg not found")

// Options configures the decode window.
type Options struct {
	// FFmpegPath overrides ffmpeg discovery.
	FFmpegPath string

	// TrimStartSec/TrimEndSec bound the decoded window. With both zero the
	// whole file is decoded.
	TrimStartSec float64
	TrimEndSec   float64
}

type frame struct {
	img      *image.RGBA
	startSec float64
	durSec   float64
}

// Source implements ports.FrameSource over a decoded RGBA frame index.
type Source struct {
	mu sync.Mutex

	frames   []frame
	width    int
	height   int
	duration float64

	closed bool
}

// Open probes the file and decodes the requested window into memory.
func Open(ctx context.Context, path string, opts Options) (*Source, error) {
	if opts.FFmpegPath != "" {
		h264encoder.SetFFmpegPath(opts.FFmpegPath)
	}
	ffmpegPath, err := h264encoder.FindFFmpeg()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}

	width, height, fps, duration, err := probe(ctx, ffmpegPath, path)
	if err != nil {
		return nil, err
	}

	frames, err := decodeWindow(ctx, ffmpegPath, path, width, height, fps, opts)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames decoded")
	}

	return &Source{
		frames:   frames,
		width:    width,
		height:   height,
		duration: duration,
	}, nil
}

// Dimensions returns the natural pixel size of the video stream.
func (s *Source) Dimensions() (int, int) {
	return s.width, s.height
}

// DurationSec returns the full source duration, independent of the decoded
// window.
func (s *Source) DurationSec() float64 {
	return s.duration
}

// SeekFrame returns the indexed frame covering tSec, clamped to the decoded
// window.
func (s *Source) SeekFrame(ctx context.Context, tSec float64) (ports.DecodedFrame, error) {
	if err := ctx.Err(); err != nil {
		return ports.DecodedFrame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ports.DecodedFrame{}, fmt.Errorf("source closed")
	}

	idx := sort.Search(len(s.frames), func(i int) bool {
		return s.frames[i].startSec > tSec
	}) - 1
	if idx < 0 {
		idx = 0
	}

	f := s.frames[idx]
	return ports.DecodedFrame{
		Image:        f.img,
		TimestampSec: f.startSec,
		DurationSec:  f.durSec,
	}, nil
}

// Close drops the frame index. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = nil
	s.closed = true
	return nil
}

// probe reads stream geometry and timing with ffprobe, falling back to a
// sibling binary next to ffmpeg.
func probe(ctx context.Context, ffmpegPath, path string) (width, height int, fps, duration float64, err error) {
	ffprobePath := strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1)
	if _, lookErr := exec.LookPath(ffprobePath); lookErr != nil {
		if p, lookErr2 := exec.LookPath("ffprobe"); lookErr2 == nil {
			ffprobePath = p
		} else {
			return 0, 0, 0, 0, fmt.Errorf("ffprobe not found next to %s", ffmpegPath)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate:format=duration",
		"-of", "csv=p=0",
		path,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("ffprobe: %w\nstderr: %s", err, stderr.String())
	}

	// Two CSV lines: "width,height,r_frame_rate" then "duration".
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) < 2 {
		return 0, 0, 0, 0, fmt.Errorf("unexpected ffprobe output: %q", stdout.String())
	}
	streamFields := strings.Split(strings.TrimSpace(lines[0]), ",")
	if len(streamFields) < 3 {
		return 0, 0, 0, 0, fmt.Errorf("unexpected ffprobe stream line: %q", lines[0])
	}

	width, err = strconv.Atoi(streamFields[0])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("parse width: %w", err)
	}
	height, err = strconv.Atoi(streamFields[1])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("parse height: %w", err)
	}
	fps, err = parseRate(streamFields[2])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	duration, err = strconv.ParseFloat(strings.TrimSpace(lines[len(lines)-1]), 64)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("parse duration: %w", err)
	}

	return width, height, fps, duration, nil
}

// parseRate parses ffprobe's rational frame rate ("30/1", "30000/1001").
func parseRate(s string) (float64, error) {
	parts := strings.Split(s, "/")
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	if len(parts) == 1 {
		return num, nil
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0, fmt.Errorf("parse frame rate %q", s)
	}
	return num / den, nil
}

// decodeWindow runs ffmpeg once and slices its rawvideo output into frames.
func decodeWindow(ctx context.Context, ffmpegPath, path string, width, height int, fps float64, opts Options) ([]frame, error) {
	args := []string{"-v", "error"}
	if opts.TrimStartSec > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.6f", opts.TrimStartSec))
	}
	if opts.TrimEndSec > opts.TrimStartSec {
		args = append(args, "-to", fmt.Sprintf("%.6f", opts.TrimEndSec))
	}
	args = append(args,
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	frameSize := width * height * 4
	frameDur := 1.0 / fps

	var frames []frame
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			cmd.Process.Kill()
			cmd.Wait()
			return nil, err
		}

		buf := make([]byte, frameSize)
		if _, err := io.ReadFull(stdout, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			cmd.Process.Kill()
			cmd.Wait()
			return nil, fmt.Errorf("read frame %d: %w", i, err)
		}

		img := &image.RGBA{
			Pix:    buf,
			Stride: width * 4,
			Rect:   image.Rect(0, 0, width, height),
		}
		frames = append(frames, frame{
			img:      img,
			startSec: opts.TrimStartSec + float64(i)*frameDur,
			durSec:   frameDur,
		})
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w\nstderr: %s", err, stderr.String())
	}

	return frames, nil
}

var _ ports.FrameSource = (*Source)(nil)
