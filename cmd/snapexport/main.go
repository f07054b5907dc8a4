// Package main provides the CLI entry point for snapexport.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/codecselect"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/filesink"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/ggrenderer"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/logger"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/nullsink"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/osfilesystem"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/smartsource"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/api"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/config"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/exporter"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/jobs"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/jobstore"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "snapexport",
		Usage:   "Composite and encode edited screen recordings",
		Version: version,
		Commands: []*cli.Command{
			exportCommand(),
			serveCommand(),
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(c *cli.Context) error {
					fmt.Println(l10n.F("snapexport version %s", version))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to a YAML configuration file"},
		&cli.StringFlag{Name: "ffmpeg-path", Usage: "Path to the ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)"},
		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: "Log level (debug, info, warn, error)"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: "Suppress all log output"},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export an edited video to a file",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "Source video file"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "Output MP4 file path"},
			&cli.StringFlag{Name: "edit", Aliases: []string{"e"}, Usage: "Edit descriptor file (YAML or JSON)"},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: "Output video width"},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: "Output video height"},
			&cli.Float64Flag{Name: "fps", Usage: "Output frame rate"},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Usage: "Video quality (0-63, lower is better)"},
			&cli.IntFlag{Name: "bitrate", Usage: "Target bitrate in kbps (0 = quality-driven)"},
			&cli.IntFlag{Name: "outro-ms", Usage: "Duration to hold the final frame in milliseconds"},
			&cli.StringSliceFlag{Name: "codec", Usage: "Codec preference order (h264, av1)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "Save intermediate artifacts"},
			&cli.StringFlag{Name: "debug-dir", Value: "./debug", Usage: "Directory for debug output"},
		}, commonFlags()...),
		Action: runExport,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the export job API server",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Listen address (host:port)"},
			&cli.StringFlag{Name: "db", Usage: "Job history database path"},
		}, commonFlags()...),
		Action: runServe,
	}
}

// loadConfig merges the config file (if any) with flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if c.IsSet("width") {
		cfg.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Height = c.Int("height")
	}
	if c.IsSet("fps") {
		cfg.FPS = c.Float64("fps")
	}
	if c.IsSet("quality") {
		cfg.Quality = c.Int("quality")
	}
	if c.IsSet("bitrate") {
		cfg.Bitrate = c.Int("bitrate")
	}
	if c.IsSet("outro-ms") {
		cfg.OutroMs = c.Int("outro-ms")
	}
	if c.IsSet("codec") {
		cfg.Codecs = c.StringSlice("codec")
	}
	if c.IsSet("ffmpeg-path") {
		cfg.FFmpegPath = c.String("ffmpeg-path")
	}
	if c.IsSet("listen") {
		cfg.ListenAddr = c.String("listen")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}

	return cfg, cfg.Validate()
}

func newLogger(c *cli.Context) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	return logger.NewConsole(ports.ParseLogLevel(c.String("log-level")))
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn(l10n.T("Interrupted, shutting down..."))
		cancel()
	}()
	return ctx, cancel
}

func runExport(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log := newLogger(c)
	ctx, cancel := signalContext(log)
	defer cancel()

	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs, renderer)
	} else {
		sink = nullsink.New()
	}

	edit := pipeline.EditDescriptor{Crop: pipeline.FullCrop()}
	if path := c.String("edit"); path != "" {
		edit, err = config.LoadEditFile(path)
		if err != nil {
			return err
		}
	}

	inputPath := c.String("input")
	source, srcInfo, err := smartsource.Open(ctx, inputPath, smartsource.Options{
		FFmpegPath:   cfg.FFmpegPath,
		TrimStartSec: edit.TrimStartSec,
		TrimEndSec:   edit.TrimEndSec,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	if edit.TrimEndSec == 0 {
		edit.TrimEndSec = source.DurationSec()
	}
	log.Debug("source backend: %s (%s)", srcInfo.Backend, srcInfo.Codec)

	encoder, encInfo, err := selectEncoder(cfg.Codecs, cfg.FFmpegPath, log)
	if err != nil {
		source.Close()
		return err
	}

	log.Info(l10n.F("Exporting %s...", inputPath))

	exp := exporter.New(renderer, log, sink)
	result, err := exp.Execute(ctx, exporter.Input{
		Source:       source,
		Edit:         edit,
		Encoder:      encoder,
		MimeType:     encInfo.MimeType,
		OutputWidth:  cfg.Width,
		OutputHeight: cfg.Height,
		FPS:          cfg.FPS,
		Bitrate:      cfg.Bitrate,
		Quality:      cfg.Quality,
		OutroMs:      cfg.OutroMs,
		OnProgress:   progressLogger(log),
	})
	if err != nil {
		return err
	}

	outputPath := c.String("output")
	if err := fs.WriteFile(outputPath, result.Data); err != nil {
		return fmt.Errorf("%s: %w", l10n.F("Failed to write output: %s", outputPath), err)
	}

	log.Info(l10n.F("Output saved to %s", outputPath))
	return nil
}

// selectEncoder resolves the codec preference list, mapping a selection
// failure into the encoder-unavailable error class.
func selectEncoder(codecs []string, ffmpegPath string, log ports.Logger) (ports.VideoEncoder, codecselect.Info, error) {
	encoder, info, err := codecselect.Select(codecs, codecselect.Options{
		FFmpegPath: ffmpegPath,
		Logger:     log,
	})
	if err != nil {
		return nil, codecselect.Info{}, fmt.Errorf("%w: %v", exporter.ErrEncoderUnavailable, err)
	}
	return encoder, info, nil
}

// progressLogger logs phase transitions and per-frame progress.
func progressLogger(log ports.Logger) func(pipeline.Progress) {
	var lastPhase pipeline.Phase
	return func(p pipeline.Progress) {
		if p.Phase != lastPhase {
			lastPhase = p.Phase
			log.Info("%s (%.0f%%)", p.Phase, p.Percent)
			return
		}
		log.Debug("%s %.1f%% (%.2fs / %.2fs)", p.Phase, p.Percent, p.CurrentSec, p.TotalSec)
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log := newLogger(c)
	ctx, cancel := signalContext(log)
	defer cancel()

	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	store, err := jobstore.Open(cfg.DBPath, log)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs, renderer)
	} else {
		sink = nullsink.New()
	}

	exp := exporter.New(renderer, log, sink)
	manager := jobs.NewManager(exp, log, store)

	server := api.NewServer(api.ServerConfig{
		Addr:       cfg.ListenAddr,
		Manager:    manager,
		BuildInput: inputBuilder(cfg, log),
		Logger:     log,
		StartTime:  time.Now(),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	manager.Wait()
	return <-errCh
}

// inputBuilder resolves an export request against the server configuration.
func inputBuilder(cfg config.Config, log ports.Logger) api.InputBuilder {
	return func(r *http.Request, req api.ExportRequest) (exporter.Input, error) {
		edit := req.Edit
		if edit.Crop == (pipeline.CropSpec{}) {
			edit.Crop = pipeline.FullCrop()
		}

		source, srcInfo, err := smartsource.Open(r.Context(), req.Input, smartsource.Options{
			FFmpegPath:   cfg.FFmpegPath,
			TrimStartSec: edit.TrimStartSec,
			TrimEndSec:   edit.TrimEndSec,
			Logger:       log,
		})
		if err != nil {
			return exporter.Input{}, err
		}
		if edit.TrimEndSec == 0 {
			edit.TrimEndSec = source.DurationSec()
		}
		log.Debug("source backend: %s (%s)", srcInfo.Backend, srcInfo.Codec)

		codecs := req.Codecs
		if len(codecs) == 0 {
			codecs = cfg.Codecs
		}
		encoder, encInfo, err := selectEncoder(codecs, cfg.FFmpegPath, log)
		if err != nil {
			source.Close()
			return exporter.Input{}, err
		}

		input := exporter.Input{
			Source:       source,
			Edit:         edit,
			Encoder:      encoder,
			MimeType:     encInfo.MimeType,
			OutputWidth:  cfg.Width,
			OutputHeight: cfg.Height,
			FPS:          cfg.FPS,
			Bitrate:      cfg.Bitrate,
			Quality:      cfg.Quality,
			OutroMs:      cfg.OutroMs,
		}
		if req.Width > 0 {
			input.OutputWidth = req.Width
		}
		if req.Height > 0 {
			input.OutputHeight = req.Height
		}
		if req.FPS > 0 {
			input.FPS = req.FPS
		}
		if req.Quality > 0 {
			input.Quality = req.Quality
		}
		if req.Bitrate > 0 {
			input.Bitrate = req.Bitrate
		}
		if req.OutroMs > 0 {
			input.OutroMs = req.OutroMs
		}
		return input, nil
	}
}
