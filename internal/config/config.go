// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/Faultbox/meshview/internal/material"
)

// Config holds all viewer settings. It only carries startup defaults; the
// interactive state of a session is never written back.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics" toml:"graphics"`
	Viewer   ViewerConfig   `yaml:"viewer" toml:"viewer"`
	Camera   CameraConfig   `yaml:"camera" toml:"camera"`
	Decode   DecodeConfig   `yaml:"decode" toml:"decode"`
	Watch    WatchConfig    `yaml:"watch" toml:"watch"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int    `yaml:"width" toml:"width"`
	Height     int    `yaml:"height" toml:"height"`
	Fullscreen bool   `yaml:"fullscreen" toml:"fullscreen"`
	VSync      bool   `yaml:"vsync" toml:"vsync"`
	FPSLimit   int    `yaml:"fps_limit" toml:"fps_limit"`
	Background string `yaml:"background" toml:"background"`
}

// ViewerConfig holds the initial material and motion settings.
type ViewerConfig struct {
	Wireframe     bool    `yaml:"wireframe" toml:"wireframe"`
	Color         string  `yaml:"color" toml:"color"`
	Opacity       float32 `yaml:"opacity" toml:"opacity"`
	AutoRotate    bool    `yaml:"auto_rotate" toml:"auto_rotate"`
	RotationSpeed float32 `yaml:"rotation_speed" toml:"rotation_speed"` // radians per second
	ClipLimit     float32 `yaml:"clip_limit" toml:"clip_limit"`
	ClipStep      float32 `yaml:"clip_step" toml:"clip_step"`
	ShowBounds    bool    `yaml:"show_bounds" toml:"show_bounds"`
}

// CameraConfig holds projection and framing settings.
type CameraConfig struct {
	FOV             float32 `yaml:"fov" toml:"fov"` // degrees
	FitMargin       float32 `yaml:"fit_margin" toml:"fit_margin"`
	DragSensitivity float32 `yaml:"drag_sensitivity" toml:"drag_sensitivity"`
	ZoomSensitivity float32 `yaml:"zoom_sensitivity" toml:"zoom_sensitivity"`
}

// DecodeConfig holds decoder limits.
type DecodeConfig struct {
	MaxFileSizeMB   int      `yaml:"max_file_size_mb" toml:"max_file_size_mb"`
	Sniff           bool     `yaml:"sniff" toml:"sniff"`
	InjectedLatency Duration `yaml:"injected_latency" toml:"injected_latency"`
}

// WatchConfig holds file watching settings.
type WatchConfig struct {
	Enabled  bool     `yaml:"enabled" toml:"enabled"`
	Debounce Duration `yaml:"debounce" toml:"debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
			Background: "#1e1f24",
		},
		Viewer: ViewerConfig{
			Wireframe:     false,
			Color:         material.Palette[0].Hex(),
			Opacity:       1,
			AutoRotate:    true,
			RotationSpeed: 0.5,
			ClipLimit:     10,
			ClipStep:      0.25,
		},
		Camera: CameraConfig{
			FOV:             45,
			FitMargin:       1.25,
			DragSensitivity: 0.005,
			ZoomSensitivity: 0.1,
		},
		Decode: DecodeConfig{
			MaxFileSizeMB: 256,
			Sniff:         true,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: Duration(250 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// MaxBytes returns the decode size limit in bytes; zero means unlimited.
func (d DecodeConfig) MaxBytes() int64 {
	if d.MaxFileSizeMB <= 0 {
		return 0
	}
	return int64(d.MaxFileSizeMB) << 20
}

// Parameters converts the viewer section into material parameters. An
// unparsable color falls back to the first palette entry.
func (v ViewerConfig) Parameters() material.Parameters {
	p := material.DefaultParameters()
	p.Wireframe = v.Wireframe
	p.Opacity = v.Opacity
	if c, err := material.ParseHex(v.Color); err == nil {
		p.BaseColor = c
	}
	return p.Sanitize()
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs error
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("graphics: invalid size %dx%d", c.Graphics.Width, c.Graphics.Height))
	}
	if _, err := material.ParseHex(c.Graphics.Background); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("graphics.background: %w", err))
	}
	if _, err := material.ParseHex(c.Viewer.Color); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("viewer.color: %w", err))
	}
	if c.Viewer.Opacity < 0 || c.Viewer.Opacity > 1 {
		errs = multierr.Append(errs, fmt.Errorf("viewer.opacity: %v outside [0, 1]", c.Viewer.Opacity))
	}
	if c.Viewer.ClipLimit <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("viewer.clip_limit: must be positive, got %v", c.Viewer.ClipLimit))
	}
	if c.Camera.FOV <= 1 || c.Camera.FOV >= 179 {
		errs = multierr.Append(errs, fmt.Errorf("camera.fov: %v outside (1, 179)", c.Camera.FOV))
	}
	if c.Camera.FitMargin < 1 {
		errs = multierr.Append(errs, fmt.Errorf("camera.fit_margin: must be at least 1, got %v", c.Camera.FitMargin))
	}
	if c.Decode.InjectedLatency < 0 {
		errs = multierr.Append(errs, fmt.Errorf("decode.injected_latency: negative"))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = multierr.Append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	return errs
}

// Duration is a time.Duration written as a string ("250ms") in both YAML
// and TOML files.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
