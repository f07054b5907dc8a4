package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Errorf("default dimensions: got %dx%d, want 1920x1080", cfg.Width, cfg.Height)
	}
	if cfg.FPS != 30.0 {
		t.Errorf("default fps: got %.1f, want 30.0", cfg.FPS)
	}
	if len(cfg.Codecs) != 2 || cfg.Codecs[0] != "h264" || cfg.Codecs[1] != "av1" {
		t.Errorf("default codecs: got %v", cfg.Codecs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
width: 1280
height: 720
fps: 24
quality: 40
codecs:
  - av1
listen: "127.0.0.1:9000"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("dimensions: got %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}
	if cfg.FPS != 24 {
		t.Errorf("fps: got %.1f, want 24", cfg.FPS)
	}
	if cfg.Quality != 40 {
		t.Errorf("quality: got %d, want 40", cfg.Quality)
	}
	if len(cfg.Codecs) != 1 || cfg.Codecs[0] != "av1" {
		t.Errorf("codecs: got %v, want [av1]", cfg.Codecs)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("listen: got %s", cfg.ListenAddr)
	}
	// Unset keys keep defaults
	if cfg.DBPath != "./snapexport.db" {
		t.Errorf("db_path should keep default, got %s", cfg.DBPath)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("width: [not a number"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults ok", func(c *Config) {}, false},
		{"zero width", func(c *Config) { c.Width = 0 }, true},
		{"zero fps", func(c *Config) { c.FPS = 0 }, true},
		{"quality too high", func(c *Config) { c.Quality = 99 }, true},
		{"negative bitrate", func(c *Config) { c.Bitrate = -1 }, true},
		{"negative outro", func(c *Config) { c.OutroMs = -100 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseEditYAML(t *testing.T) {
	data := []byte(`
trim_start: 1.5
trim_end: 6.0
padding: 10
corner_radius: 24
background:
  kind: color
  color: "#1a1a2e"
zoom_effects:
  - start: 2.0
    end: 4.0
    zoom: 2.0
    target_x: 3
    target_y: 4
`)
	edit, err := ParseEdit(data, false)
	if err != nil {
		t.Fatalf("ParseEdit failed: %v", err)
	}

	if edit.TrimStartSec != 1.5 || edit.TrimEndSec != 6.0 {
		t.Errorf("trim: got [%.1f, %.1f]", edit.TrimStartSec, edit.TrimEndSec)
	}
	if edit.PaddingPercent != 10 {
		t.Errorf("padding: got %.1f", edit.PaddingPercent)
	}
	if edit.Background.Kind != pipeline.BackgroundColor || edit.Background.Color != "#1a1a2e" {
		t.Errorf("background: got %+v", edit.Background)
	}
	if len(edit.ZoomEffects) != 1 {
		t.Fatalf("zoom effects: got %d, want 1", len(edit.ZoomEffects))
	}
	z := edit.ZoomEffects[0]
	if z.StartSec != 2.0 || z.EndSec != 4.0 || z.Zoom != 2.0 || z.TargetX != 3 || z.TargetY != 4 {
		t.Errorf("zoom effect: got %+v", z)
	}
	// Omitted crop defaults to full frame
	if edit.Crop != pipeline.FullCrop() {
		t.Errorf("crop should default to full frame, got %+v", edit.Crop)
	}
}

func TestParseEditJSON(t *testing.T) {
	data := []byte(`{
		"trim_start": 0,
		"trim_end": 3,
		"crop": {"x": 25, "y": 0, "width": 50, "height": 100},
		"background": {"kind": "color", "color": "#000000"}
	}`)
	edit, err := ParseEdit(data, true)
	if err != nil {
		t.Fatalf("ParseEdit failed: %v", err)
	}
	if edit.TrimEndSec != 3 {
		t.Errorf("trim end: got %.1f", edit.TrimEndSec)
	}
	if edit.Crop.X != 25 || edit.Crop.Width != 50 {
		t.Errorf("crop: got %+v", edit.Crop)
	}
}

func TestLoadEditFileWithBackgroundImage(t *testing.T) {
	dir := t.TempDir()

	imgPath := filepath.Join(dir, "bg.png")
	imgData := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	if err := os.WriteFile(imgPath, imgData, 0644); err != nil {
		t.Fatal(err)
	}

	editPath := filepath.Join(dir, "edit.yaml")
	content := "trim_start: 0\ntrim_end: 2\nbackground_image: " + imgPath + "\n"
	if err := os.WriteFile(editPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	edit, err := LoadEditFile(editPath)
	if err != nil {
		t.Fatalf("LoadEditFile failed: %v", err)
	}
	if edit.Background.Kind != pipeline.BackgroundImage {
		t.Errorf("background kind: got %s", edit.Background.Kind)
	}
	if string(edit.Background.ImageData) != string(imgData) {
		t.Error("background image data mismatch")
	}
	if edit.Background.Fit != pipeline.FitCover {
		t.Errorf("fit should default to cover, got %s", edit.Background.Fit)
	}
}

func TestLoadEditFileMissingBackgroundImage(t *testing.T) {
	dir := t.TempDir()
	editPath := filepath.Join(dir, "edit.yaml")
	content := "trim_start: 0\ntrim_end: 2\nbackground_image: /nonexistent/bg.png\n"
	if err := os.WriteFile(editPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadEditFile(editPath); err == nil {
		t.Error("expected error for missing background image")
	}
}
