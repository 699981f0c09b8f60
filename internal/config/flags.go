package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags holds command-line overrides. Only flags the user actually set
// override file values.
type Flags struct {
	fs *pflag.FlagSet

	configPath string
	debug      bool
	logFile    string
	windowed   bool
	fullscreen bool
	width      int
	height     int
	wireframe  bool
	color      string
	opacity    float32
	noRotate   bool
	watch      bool
	latency    time.Duration
}

// AddFlags registers the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to config file (.yaml or .toml)")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logFile, "log-file", "", "Write logs to a rotating file")
	fs.BoolVar(&f.windowed, "windowed", false, "Run in windowed mode")
	fs.BoolVar(&f.fullscreen, "fullscreen", false, "Run in fullscreen mode")
	fs.IntVar(&f.width, "width", 0, "Window width")
	fs.IntVar(&f.height, "height", 0, "Window height")
	fs.BoolVar(&f.wireframe, "wireframe", false, "Start in wireframe mode")
	fs.StringVar(&f.color, "color", "", "Base color as #rrggbb")
	fs.Float32Var(&f.opacity, "opacity", 1, "Initial opacity in [0, 1]")
	fs.BoolVar(&f.noRotate, "no-rotate", false, "Disable auto-rotation")
	fs.BoolVarP(&f.watch, "watch", "w", false, "Reload the file when it changes on disk")
	fs.DurationVar(&f.latency, "latency", 0, "Delay every decode (for testing)")
	return f
}

// ConfigPath returns the explicit config path if provided via --config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.configPath
}

func (f *Flags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.debug {
		cfg.Logging.Level = "debug"
	}
	if f.logFile != "" {
		cfg.Logging.LogFile = f.logFile
	}
	if f.windowed {
		cfg.Graphics.Fullscreen = false
	}
	if f.fullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if f.width > 0 {
		cfg.Graphics.Width = f.width
	}
	if f.height > 0 {
		cfg.Graphics.Height = f.height
	}
	if f.changed("wireframe") {
		cfg.Viewer.Wireframe = f.wireframe
	}
	if f.color != "" {
		cfg.Viewer.Color = f.color
	}
	if f.changed("opacity") {
		cfg.Viewer.Opacity = f.opacity
	}
	if f.noRotate {
		cfg.Viewer.AutoRotate = false
	}
	if f.watch {
		cfg.Watch.Enabled = true
	}
	if f.changed("latency") {
		cfg.Decode.InjectedLatency = Duration(f.latency)
	}
}
