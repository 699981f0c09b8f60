// Package app runs the interactive viewer window.
package app

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/controls"
	"github.com/Faultbox/meshview/internal/engine/input"
	"github.com/Faultbox/meshview/internal/engine/renderer"
	"github.com/Faultbox/meshview/internal/engine/window"
	"github.com/Faultbox/meshview/internal/loader"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/material"
	"github.com/Faultbox/meshview/internal/viewer"
	"github.com/Faultbox/meshview/internal/watch"
)

// clickSlop is how far the pointer may move, in pixels, before a press
// counts as a drag rather than a click.
const clickSlop = 3

// SDL mouse buttons.
const (
	buttonLeft  = 1
	buttonRight = 3
)

type pointer struct {
	button   uint8
	startX   int
	startY   int
	dragging bool
}

// App is the viewer window and its frame loop.
type App struct {
	cfg *config.Config
	log *zap.Logger

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	viewer   *viewer.Viewer
	controls *controls.Controller
	watcher  *watch.Watcher
	loader   *loader.Loader

	pointer pointer
	title   string
	running bool
}

// New creates the window, the GL renderer and a mounted viewer.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		cfg:    cfg,
		log:    logger.Named("app"),
		loader: loader.New(nil),
	}
	a.log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
	)

	bg, err := material.ParseHex(cfg.Graphics.Background)
	if err != nil {
		return nil, fmt.Errorf("background color: %w", err)
	}

	// Create window (this also creates OpenGL context)
	a.window, err = window.New(window.Config{
		Title:      "meshview",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
		Samples:    4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	w, h := a.window.DrawableSize()
	a.renderer, err = renderer.New(renderer.Config{
		Width:      w,
		Height:     h,
		Background: bg,
	})
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	a.input = input.New()
	a.viewer = viewer.New(cfg, nil)
	a.viewer.Resize(w, h)
	a.controls = controls.New(a.viewer, cfg.Viewer.ClipStep)

	a.log.Info("viewer initialized")
	return a, nil
}

// Open reads path in the background and uploads it on the frame thread.
// When several opens overlap, only the last one is uploaded.
func (a *App) Open(path string) {
	seq := a.loader.Open(path)
	a.log.Debug("reading", zap.String("file", path), zap.Uint64("seq", seq))
}

// Watch re-opens path whenever it changes on disk.
func (a *App) Watch(path string) error {
	w, err := watch.New(path, a.cfg.Watch.Debounce.Std())
	if err != nil {
		return err
	}
	a.watcher = w
	return nil
}

// Run starts the frame loop. It returns when the window is closed or Esc is
// pressed.
func (a *App) Run() error {
	a.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	var minFrame time.Duration
	if a.cfg.Graphics.FPSLimit > 0 && !a.cfg.Graphics.VSync {
		minFrame = time.Second / time.Duration(a.cfg.Graphics.FPSLimit)
	}

	a.log.Info("starting frame loop")

	for a.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		// 1. Input
		if a.input.Update() {
			a.running = false
			break
		}
		a.handleEvents(a.input.Events())

		// 2. Uploads and decode results
		a.drainFiles()
		a.viewer.Pump()

		// 3. Draw; render faults are contained by the viewer
		if err := a.viewer.Frame(float32(dt), a.renderer.Draw); err != nil {
			if errors.Is(err, viewer.ErrClosed) {
				return err
			}
			a.log.Error("frame failed", zap.Error(err))
		}
		a.updateTitle()

		// 4. Present
		a.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", frameCount), zap.Float64("dt_ms", dt*1000))
			frameCount = 0
			fpsTimer = time.Now()
		}

		if minFrame > 0 {
			if rest := minFrame - time.Since(now); rest > 0 {
				time.Sleep(rest)
			}
		}
	}

	return nil
}

func (a *App) handleEvents(events []input.Event) {
	for _, ev := range events {
		switch ev.Type {
		case input.EventWindowResize:
			w, h := a.window.DrawableSize()
			a.renderer.Resize(w, h)
			a.viewer.Resize(w, h)

		case input.EventKeyDown:
			act := controls.ForKey(ev.KeyName)
			if ev.Repeat && !act.Repeatable() {
				continue
			}
			if a.controls.Apply(act) {
				a.running = false
			}

		case input.EventMouseDown:
			if a.pointer.button == 0 {
				a.pointer = pointer{button: ev.Button, startX: ev.MouseX, startY: ev.MouseY}
			}

		case input.EventMouseMove:
			a.drag(ev)

		case input.EventMouseUp:
			if ev.Button != a.pointer.button {
				continue
			}
			if ev.Button == buttonLeft && !a.pointer.dragging {
				a.viewer.Refit()
			}
			a.pointer = pointer{}

		case input.EventMouseWheel:
			a.viewer.Zoom(ev.WheelY)

		case input.EventDrop:
			a.log.Info("file dropped", zap.String("file", ev.Path))
			a.Open(ev.Path)
		}
	}
}

func (a *App) drag(ev input.Event) {
	p := &a.pointer
	if p.button == 0 {
		return
	}
	if !p.dragging {
		dx, dy := ev.MouseX-p.startX, ev.MouseY-p.startY
		if dx*dx+dy*dy <= clickSlop*clickSlop {
			return
		}
		p.dragging = true
	}
	switch p.button {
	case buttonLeft:
		a.viewer.Orbit(float32(ev.XRel), float32(ev.YRel))
	case buttonRight:
		a.viewer.Pan(float32(ev.XRel), float32(ev.YRel))
	}
}

func (a *App) drainFiles() {
	var changes <-chan string
	if a.watcher != nil {
		changes = a.watcher.Changes()
	}
	for done := false; !done; {
		select {
		case path := <-changes:
			a.log.Info("file changed", zap.String("file", path))
			a.Open(path)
		default:
			done = true
		}
	}

	a.loader.Drain(func(f loader.File) {
		if f.Err != nil {
			a.log.Error("read failed", zap.String("file", f.Path), zap.Error(f.Err))
			return
		}
		a.viewer.Upload(f.Name, f.Data)
	})
}

func (a *App) updateTitle() {
	title := a.viewer.Display().Caption()
	if title != a.title {
		a.window.SetTitle(title)
		a.title = title
	}
}

// Close unmounts the viewer and releases GL and SDL resources.
func (a *App) Close() {
	a.log.Info("closing viewer")

	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.log.Warn("watcher close", zap.Error(err))
		}
	}
	a.loader.Close()
	if a.viewer != nil {
		if err := a.viewer.Close(); err != nil {
			a.log.Warn("viewer close", zap.Error(err))
		}
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
