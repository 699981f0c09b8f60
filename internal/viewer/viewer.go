// Package viewer owns the live model and drives the Empty, Loading, Ready and
// Error states. It is meant to be used from one goroutine (the frame
// thread); decoding runs in the background and its results are applied by
// Pump on the frame thread, in upload order, with stale generations dropped.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/asset"
	"github.com/Faultbox/meshview/internal/bounds"
	"github.com/Faultbox/meshview/internal/clip"
	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/decode"
	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/material"
	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/pkg/math"
)

// ErrClosed is returned by operations on an unmounted viewer.
var ErrClosed = errors.New("viewer closed")

// Display is everything the renderer needs for one frame.
type Display struct {
	State       State
	Generation  uint64
	Name        string
	Scene       *material.RenderableScene
	Placeholder bool
	Fault       *Fault
	Bounds      bounds.Box
	ShowBounds  bool
	View        math.Mat4
	Projection  math.Mat4
	Eye         math.Vec3
}

// Caption is a one-line status for a window title.
func (d Display) Caption() string {
	switch d.State {
	case Empty:
		return "meshview - drop a model file"
	case Loading:
		return fmt.Sprintf("meshview - loading %s", d.Name)
	case Error:
		if d.Fault != nil {
			return "meshview - " + d.Fault.Title()
		}
		return fmt.Sprintf("meshview - error: %s", d.Name)
	default:
		return fmt.Sprintf("meshview - %s", d.Name)
	}
}

// DrawFunc renders one frame. A panic or error from it is a render fault.
type DrawFunc func(d Display) error

// Viewer is the mounted viewer.
type Viewer struct {
	cfg *config.Config
	log *zap.Logger

	registry *asset.Registry
	decoder  decode.Decoder
	results  chan decode.Result
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	pending  int
	dropped  int

	state      State
	generation uint64
	current    *asset.Handle
	name       string
	fault      *Fault

	norm        *material.Normalizer
	clip        *clip.Engine
	placeholder *material.RenderableScene
	cam         *camera.OrbitCamera
	box         bounds.Box

	autoRotate bool
	speed      float32
	showBounds bool
	colorIndex int
	closed     bool
}

// New mounts a viewer in the Empty state. A nil cfg uses config.Default and
// a nil decoder uses the default table configured from cfg.Decode.
func New(cfg *config.Config, dec decode.Decoder) *Viewer {
	if cfg == nil {
		cfg = config.Default()
	}
	if dec == nil {
		dec = decode.DefaultTable().WithOptions(decode.Options{
			MaxBytes: cfg.Decode.MaxBytes(),
			Sniff:    cfg.Decode.Sniff,
			Latency:  cfg.Decode.InjectedLatency.Std(),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	params := cfg.Viewer.Parameters()
	v := &Viewer{
		cfg:        cfg,
		log:        logger.Named("viewer"),
		registry:   asset.NewRegistry(),
		decoder:    dec,
		results:    make(chan decode.Result, 8),
		ctx:        ctx,
		cancel:     cancel,
		state:      Empty,
		norm:       material.NewNormalizer(params),
		clip:       clip.NewEngine(cfg.Viewer.ClipLimit),
		cam:        camera.NewOrbitCamera(cfg.Camera.FOV),
		autoRotate: cfg.Viewer.AutoRotate,
		speed:      cfg.Viewer.RotationSpeed,
		showBounds: cfg.Viewer.ShowBounds,
	}
	if cfg.Camera.DragSensitivity > 0 {
		v.cam.DragSensitivity = cfg.Camera.DragSensitivity
	}
	if cfg.Camera.ZoomSensitivity > 0 {
		v.cam.ZoomSensitivity = cfg.Camera.ZoomSensitivity
	}
	v.cam.SetViewport(cfg.Graphics.Width, cfg.Graphics.Height)

	ph, err := material.Normalize(scene.Placeholder(), params)
	if err != nil {
		panic(fmt.Sprintf("viewer: placeholder: %v", err))
	}
	v.placeholder = ph
	v.clip.OnChange(v.setPlanes)
	v.Refit()

	v.log.Debug("mounted", zap.Stringer("state", v.state))
	return v
}

// Upload ingests a file and starts decoding it in the background. It returns
// the generation of the upload, or zero after Close. The previous handle is
// released immediately; the previous scene stays visible until a result for
// this generation arrives.
func (v *Viewer) Upload(name string, data []byte) uint64 {
	h, err := v.registry.Ingest(name, data)
	if err != nil {
		v.log.Warn("upload rejected", zap.String("file", name), zap.Error(err))
		return 0
	}
	if v.current != nil {
		v.log.Debug("superseded",
			zap.Uint64("generation", v.current.Generation()),
			zap.String("file", v.current.Name()))
		v.current.Release()
	}
	v.current = h
	v.generation = h.Generation()
	v.name = name
	v.fault = nil
	v.transition(Loading, zap.String("format", h.Format().String()), zap.Int("bytes", h.Size()))

	v.pending++
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		res := v.decoder.Decode(v.ctx, h)
		select {
		case v.results <- res:
		case <-v.ctx.Done():
		}
	}()
	return h.Generation()
}

// Pump applies every decode result that has already arrived, without
// blocking. It returns how many results were received.
func (v *Viewer) Pump() int {
	n := 0
	for {
		select {
		case res := <-v.results:
			v.receive(res)
			n++
		default:
			return n
		}
	}
}

// PumpWait blocks until the current upload has settled into Ready or Error,
// applying results as they arrive.
func (v *Viewer) PumpWait(ctx context.Context) error {
	for v.state == Loading {
		select {
		case res := <-v.results:
			v.receive(res)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Pending returns the number of decodes whose result has not been received.
func (v *Viewer) Pending() int {
	return v.pending
}

// Dropped returns the number of stale results discarded so far.
func (v *Viewer) Dropped() int {
	return v.dropped
}

func (v *Viewer) receive(res decode.Result) {
	v.pending--
	if res.Generation != v.generation || v.state != Loading {
		v.dropped++
		v.log.Debug("dropped stale decode result",
			zap.Uint64("generation", res.Generation),
			zap.Uint64("current", v.generation),
			zap.String("file", res.Name))
		return
	}

	fields := []zap.Field{
		zap.String("format", res.Format.String()),
		zap.Duration("elapsed", res.Elapsed),
	}
	if res.Err != nil {
		v.fail(res.Err, fields...)
		return
	}
	if res.Graph == nil {
		v.fail(fmt.Errorf("%w: %s: no graph", ErrDecodeFailure, res.Name), fields...)
		return
	}

	if _, err := v.norm.Install(res.Graph); err != nil {
		v.fail(fmt.Errorf("%w: %w", ErrRuntimeRender, err), fields...)
		return
	}
	st := res.Graph.Stats()
	v.cam.Reset()
	v.Refit()
	v.transition(Ready, append(fields,
		zap.Int("nodes", st.Nodes),
		zap.Int("primitives", st.Primitives),
		zap.Int("triangles", st.Triangles))...)
}

// fail enters Error, releases the current handle and drops the scene.
func (v *Viewer) fail(err error, fields ...zap.Field) {
	kind := Classify(err)
	if kind == DecodeFailure && !errors.Is(err, ErrDecodeFailure) {
		err = fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	v.fault = &Fault{Kind: kind, File: v.name, Generation: v.generation, Err: err}
	if v.current != nil {
		v.current.Release()
		v.current = nil
	}
	v.norm.Clear()
	v.Refit()
	v.transition(Error, append(fields, zap.Stringer("kind", kind), zap.Error(err))...)
}

func (v *Viewer) transition(to State, fields ...zap.Field) {
	from := v.state
	v.state = to
	fields = append([]zap.Field{
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Uint64("generation", v.generation),
		zap.String("file", v.name),
	}, fields...)
	if to == Error {
		v.log.Warn("state change", fields...)
		return
	}
	v.log.Info("state change", fields...)
}

// Frame advances the camera by dt seconds and draws. A panic or error
// raised while drawing a loaded model moves the viewer to Error with a
// RuntimeRenderError; the next frame shows the error panel.
func (v *Viewer) Frame(dt float32, draw DrawFunc) (err error) {
	if v.closed {
		return ErrClosed
	}
	v.cam.Tick(dt, v.autoRotate, v.speed)
	if draw == nil {
		return nil
	}

	d := v.Display()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrRuntimeRender, r)
			v.log.Debug("render panic", zap.ByteString("stack", debug.Stack()))
		}
		if err != nil {
			if !errors.Is(err, ErrRuntimeRender) {
				err = fmt.Errorf("%w: %w", ErrRuntimeRender, err)
			}
			v.fail(err)
			err = v.fault
		}
	}()
	return draw(d)
}

// Display returns the frame description for the current state.
func (v *Viewer) Display() Display {
	d := Display{
		State:      v.state,
		Generation: v.generation,
		Name:       v.name,
		Fault:      v.fault,
		Bounds:     v.box,
		ShowBounds: v.showBounds,
		View:       v.cam.ViewMatrix(),
		Projection: v.cam.ProjectionMatrix(),
		Eye:        v.cam.Position(),
	}
	if rs := v.norm.Scene(); rs != nil {
		d.Scene = rs
	} else {
		d.Scene = v.placeholder
		d.Placeholder = true
	}
	return d
}

// State returns the lifecycle state.
func (v *Viewer) State() State {
	return v.state
}

// Fault returns the cause of the Error state, or nil.
func (v *Viewer) Fault() *Fault {
	return v.fault
}

// Generation returns the generation of the latest upload.
func (v *Viewer) Generation() uint64 {
	return v.generation
}

// LiveHandles returns the number of unreleased asset handles.
func (v *Viewer) LiveHandles() int {
	return v.registry.Live()
}

// Camera exposes the camera for pointer input.
func (v *Viewer) Camera() *camera.OrbitCamera {
	return v.cam
}

// Refit recomputes the bounds of the visible geometry and frames the camera
// on them. Clipped away geometry is excluded.
func (v *Viewer) Refit() {
	rs := v.norm.Scene()
	if rs == nil {
		rs = v.placeholder
	}
	box, ok := bounds.Compute(rs, v.clip.Active())
	if !ok {
		// Everything is clipped away; frame the unclipped model.
		box, _ = bounds.Compute(rs, nil)
	}
	v.box = box
	v.cam.Fit(box, v.cfg.Camera.FitMargin)
}

// Clear drops the loaded model and returns to Empty.
func (v *Viewer) Clear() {
	if v.current != nil {
		v.current.Release()
		v.current = nil
	}
	// Results still in flight are dropped because the state is no longer Loading.
	v.name = ""
	v.fault = nil
	v.norm.Clear()
	v.Refit()
	v.transition(Empty)
}

// Close unmounts the viewer: in-flight decodes are cancelled and every
// handle is released. Close waits for decoders to return, so decoders must
// honor their context.
func (v *Viewer) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	v.cancel()
	v.wg.Wait()

	var errs error
	if v.current != nil {
		v.current.Release()
		v.current = nil
	}
	errs = multierr.Append(errs, v.registry.ReleaseAll())
	v.norm.Clear()
	v.log.Info("unmounted",
		zap.Uint64("generation", v.generation),
		zap.Int("dropped", v.dropped))
	return errs
}
