// Package config provides configuration loading and management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
)

// Config represents the full configuration for snapexport.
type Config struct {
	// Input/Output
	InputPath  string `yaml:"input"`
	OutputPath string `yaml:"output"`

	// Output frame
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"fps"`

	// Encoding
	Quality int      `yaml:"quality"`
	Bitrate int      `yaml:"bitrate"`
	OutroMs int      `yaml:"outro_ms"`
	Codecs  []string `yaml:"codecs"`

	// External tools
	FFmpegPath string `yaml:"ffmpeg_path"`

	// Server
	ListenAddr string `yaml:"listen"`
	DBPath     string `yaml:"db_path"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		// Output frame
		Width:  1920,
		Height: 1080,
		FPS:    30.0,

		// Encoding
		Quality: 30,
		OutroMs: 0,
		Codecs:  []string{"h264", "av1"},

		// Server
		ListenAddr: "127.0.0.1:8750",
		DBPath:     "./snapexport.db",

		// Debug
		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file, merged over defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks configuration values that the export driver cannot
// recover from.
func (c Config) Validate() error {
	if c.Width < 2 || c.Height < 2 {
		return fmt.Errorf("output dimensions %dx%d too small", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps %.2f must be positive", c.FPS)
	}
	if c.Quality < 0 || c.Quality > 63 {
		return fmt.Errorf("quality %d outside [0, 63]", c.Quality)
	}
	if c.Bitrate < 0 {
		return fmt.Errorf("bitrate %d is negative", c.Bitrate)
	}
	if c.OutroMs < 0 {
		return fmt.Errorf("outro %dms is negative", c.OutroMs)
	}
	return nil
}

// editFile is the on-disk shape of an edit descriptor. The background image
// is referenced by path and loaded into the descriptor's ImageData.
type editFile struct {
	pipeline.EditDescriptor `yaml:",inline"`

	BackgroundImagePath string `yaml:"background_image" json:"background_image"`
}

// LoadEditFile parses an edit descriptor from a YAML or JSON file.
// A background image referenced by relative path resolves against the
// current working directory.
func LoadEditFile(path string) (pipeline.EditDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.EditDescriptor{}, err
	}
	return ParseEdit(data, strings.HasSuffix(strings.ToLower(path), ".json"))
}

// ParseEdit parses an edit descriptor from YAML or JSON bytes.
func ParseEdit(data []byte, asJSON bool) (pipeline.EditDescriptor, error) {
	var ef editFile
	if asJSON {
		if err := json.Unmarshal(data, &ef); err != nil {
			return pipeline.EditDescriptor{}, fmt.Errorf("parse edit descriptor: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &ef); err != nil {
			return pipeline.EditDescriptor{}, fmt.Errorf("parse edit descriptor: %w", err)
		}
	}

	edit := ef.EditDescriptor
	if edit.Crop == (pipeline.CropSpec{}) {
		edit.Crop = pipeline.FullCrop()
	}
	if ef.BackgroundImagePath != "" {
		img, err := os.ReadFile(ef.BackgroundImagePath)
		if err != nil {
			return pipeline.EditDescriptor{}, fmt.Errorf("read background image: %w", err)
		}
		edit.Background.Kind = pipeline.BackgroundImage
		edit.Background.ImageData = img
		if edit.Background.Fit == "" {
			edit.Background.Fit = pipeline.FitCover
		}
	}
	return edit, nil
}
