// Package exporter drives one export job from edit descriptor to encoded
// video blob: frame scheduling, compositing, encoding and progress reporting.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/compositor"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/timeline"
)

// Input carries everything one export job needs. The caller opens the source
// and picks the encoder; the exporter owns both for the duration of the job
// and releases them on every exit path.
type Input struct {
	Source  ports.FrameSource
	Edit    pipeline.EditDescriptor
	Encoder ports.VideoEncoder

	// MimeType of the container the encoder produces, echoed into the Result.
	MimeType string

	OutputWidth  int
	OutputHeight int
	FPS          float64

	Bitrate int // kbps
	Quality int // CRF

	// OutroMs extends the output by holding the last frame, in milliseconds.
	OutroMs int

	// OnProgress, when set, receives a snapshot on every state change and on
	// every processed frame. It is called synchronously on the export
	// goroutine and must not block.
	OnProgress func(pipeline.Progress)
}

// Result is the finished export.
type Result struct {
	Data       []byte
	MimeType   string
	FrameCount int
	DurationMs int
}

// Exporter executes export jobs. It is stateless across jobs; per-job state
// lives on the stack of Execute.
type Exporter struct {
	renderer ports.Renderer
	logger   ports.Logger
	sink     ports.DebugSink
}

// New creates an Exporter.
func New(renderer ports.Renderer, logger ports.Logger, sink ports.DebugSink) *Exporter {
	return &Exporter{
		renderer: renderer,
		logger:   logger.WithComponent("exporter"),
		sink:     sink,
	}
}

// exportPlan is the resolved job geometry and schedule, saved by the debug
// sink before the first frame is composited.
type exportPlan struct {
	OutputWidth  int           `json:"output_width"`
	OutputHeight int           `json:"output_height"`
	FPS          float64       `json:"fps"`
	TrimStartSec float64       `json:"trim_start_sec"`
	TrimEndSec   float64       `json:"trim_end_sec"`
	FrameCount   int           `json:"frame_count"`
	OutroFrames  int           `json:"outro_frames"`
	Region       pipeline.Rect `json:"region"`
}

// Execute runs the export state machine: initializing, processing, finalizing,
// then one of complete, error or cancelled. Cancellation is observed between
// frames; a cancelled job aborts the encoder and returns ErrCancelled with no
// output bytes.
func (e *Exporter) Execute(ctx context.Context, input Input) (Result, error) {
	defer input.Source.Close()

	e.emit(input, pipeline.Progress{Phase: pipeline.PhaseInitializing, Percent: 0})

	if err := ctx.Err(); err != nil {
		return Result{}, e.cancel(input)
	}

	// ---- initializing ----

	if input.FPS <= 0 {
		return Result{}, e.fail(input, fmt.Errorf("%w: fps %.2f must be positive", ErrValidation, input.FPS))
	}
	if input.OutputWidth < 2 || input.OutputHeight < 2 {
		return Result{}, e.fail(input, fmt.Errorf("%w: output %dx%d too small", ErrValidation, input.OutputWidth, input.OutputHeight))
	}
	if err := input.Edit.Validate(input.Source.DurationSec()); err != nil {
		return Result{}, e.fail(input, fmt.Errorf("%w: %v", ErrValidation, err))
	}
	if err := timeline.Validate(input.Edit.ZoomEffects); err != nil {
		return Result{}, e.fail(input, fmt.Errorf("%w: %v", ErrValidation, err))
	}

	// Most codecs reject odd dimensions; round down to even.
	outWidth := input.OutputWidth &^ 1
	outHeight := input.OutputHeight &^ 1

	srcWidth, srcHeight := input.Source.Dimensions()
	if srcWidth <= 0 || srcHeight <= 0 {
		return Result{}, e.fail(input, fmt.Errorf("%w: source reports %dx%d", ErrSource, srcWidth, srcHeight))
	}

	comp, err := compositor.New(e.renderer, srcWidth, srcHeight, outWidth, outHeight, input.Edit)
	if err != nil {
		return Result{}, e.fail(input, fmt.Errorf("%w: %v", ErrBackgroundAsset, err))
	}

	trimStart := input.Edit.TrimStartSec
	trimEnd := input.Edit.TrimEndSec
	frameCount := scheduleFrames(trimStart, trimEnd, input.FPS)
	outroFrames := int(math.Round(float64(input.OutroMs) / 1000.0 * input.FPS))
	totalFrames := frameCount + outroFrames

	if err := input.Encoder.Begin(outWidth, outHeight, input.FPS, ports.EncoderOptions{
		Bitrate: input.Bitrate,
		Quality: input.Quality,
	}); err != nil {
		return Result{}, e.fail(input, fmt.Errorf("%w: begin: %v", ErrEncoding, err))
	}
	ended := false
	defer func() {
		if !ended {
			input.Encoder.Abort()
		}
	}()

	e.saveDebugPlan(exportPlan{
		OutputWidth:  outWidth,
		OutputHeight: outHeight,
		FPS:          input.FPS,
		TrimStartSec: trimStart,
		TrimEndSec:   trimEnd,
		FrameCount:   frameCount,
		OutroFrames:  outroFrames,
		Region:       comp.Region(),
	}, comp.Background())

	e.logger.Debug("export plan: %dx%d @ %.2ffps, %d frames (%d outro)",
		outWidth, outHeight, input.FPS, totalFrames, outroFrames)
	e.emit(input, pipeline.Progress{Phase: pipeline.PhaseInitializing, Percent: 10})

	// ---- processing ----

	var lastComposed image.Image
	for i := 0; i < frameCount; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, e.cancel(input)
		}

		t := trimStart + float64(i)/input.FPS
		frame, err := input.Source.SeekFrame(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, e.cancel(input)
			}
			return Result{}, e.fail(input, fmt.Errorf("%w: seek %.3fs: %v", ErrSource, t, err))
		}
		if drift := math.Abs(frame.TimestampSec - t); drift > 1/input.FPS {
			e.logger.Debug("frame %d: seek drift %.3fs (asked %.3f, got %.3f)", i, drift, t, frame.TimestampSec)
		}

		composed := comp.Compose(frame.Image, t)
		lastComposed = composed
		e.saveDebugFrame(i, composed)

		timestampMs := int(math.Round(float64(i) * 1000.0 / input.FPS))
		if err := input.Encoder.EncodeFrame(composed, timestampMs); err != nil {
			return Result{}, e.fail(input, fmt.Errorf("%w: frame %d: %v", ErrEncoding, i, err))
		}

		e.emit(input, pipeline.Progress{
			Phase:      pipeline.PhaseProcessing,
			Percent:    processingPercent(i+1, totalFrames),
			CurrentSec: t - trimStart,
			TotalSec:   trimEnd - trimStart,
		})
	}

	// Hold the last frame for the outro.
	for i := 0; i < outroFrames && lastComposed != nil; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, e.cancel(input)
		}
		timestampMs := int(math.Round(float64(frameCount+i) * 1000.0 / input.FPS))
		if err := input.Encoder.EncodeFrame(lastComposed, timestampMs); err != nil {
			return Result{}, e.fail(input, fmt.Errorf("%w: outro frame %d: %v", ErrEncoding, i, err))
		}
		e.emit(input, pipeline.Progress{
			Phase:      pipeline.PhaseProcessing,
			Percent:    processingPercent(frameCount+i+1, totalFrames),
			CurrentSec: trimEnd - trimStart,
			TotalSec:   trimEnd - trimStart,
		})
	}

	// ---- finalizing ----

	if err := ctx.Err(); err != nil {
		return Result{}, e.cancel(input)
	}
	e.emit(input, pipeline.Progress{Phase: pipeline.PhaseFinalizing, Percent: 95})

	data, err := input.Encoder.End()
	ended = true
	if err != nil {
		return Result{}, e.fail(input, fmt.Errorf("%w: flush: %v", ErrEncoding, err))
	}

	durationMs := int(math.Round(float64(totalFrames) * 1000.0 / input.FPS))
	e.logger.Info("export finished: %d frames, %d bytes", totalFrames, len(data))
	e.emit(input, pipeline.Progress{
		Phase:      pipeline.PhaseComplete,
		Percent:    100,
		CurrentSec: trimEnd - trimStart,
		TotalSec:   trimEnd - trimStart,
	})

	return Result{
		Data:       data,
		MimeType:   input.MimeType,
		FrameCount: totalFrames,
		DurationMs: durationMs,
	}, nil
}

// scheduleFrames counts timestamps trimStart + i/fps strictly below trimEnd,
// which is ceil(duration * fps) up to float noise.
func scheduleFrames(trimStart, trimEnd, fps float64) int {
	n := 0
	for trimStart+float64(n)/fps < trimEnd-1e-9 {
		n++
	}
	return n
}

// processingPercent maps frame completion onto the 20-95 progress band.
func processingPercent(done, total int) float64 {
	if total <= 0 {
		return 95
	}
	return 20 + 75*float64(done)/float64(total)
}

func (e *Exporter) emit(input Input, p pipeline.Progress) {
	if input.OnProgress != nil {
		input.OnProgress(p)
	}
}

// fail reports a terminal error state and returns err for the caller.
func (e *Exporter) fail(input Input, err error) error {
	e.logger.Error("export failed: %v", err)
	e.emit(input, pipeline.Progress{Phase: pipeline.PhaseError, Message: err.Error()})
	return err
}

// cancel reports the cancelled terminal state. The deferred Abort in Execute
// discards any partial encoder output.
func (e *Exporter) cancel(input Input) error {
	e.logger.Info("export cancelled")
	e.emit(input, pipeline.Progress{Phase: pipeline.PhaseCancelled, Message: ErrCancelled.Error()})
	return ErrCancelled
}

func (e *Exporter) saveDebugPlan(plan exportPlan, background image.Image) {
	if e.sink == nil || !e.sink.Enabled() {
		return
	}
	if data, err := json.MarshalIndent(plan, "", "  "); err == nil {
		if err := e.sink.SavePlanJSON(data); err != nil {
			e.logger.Warn("save debug plan: %v", err)
		}
	}
	if err := e.sink.SaveBackground(background); err != nil {
		e.logger.Warn("save debug background: %v", err)
	}
}

func (e *Exporter) saveDebugFrame(index int, img image.Image) {
	if e.sink == nil || !e.sink.Enabled() {
		return
	}
	if err := e.sink.SaveComposedFrame(index, img); err != nil {
		e.logger.Warn("save debug frame %d: %v", index, err)
	}
}

// Exporter is a pipeline stage from Input to Result.
var _ pipeline.Stage[Input, Result] = (*Exporter)(nil)
