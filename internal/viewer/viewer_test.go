package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshview/internal/asset"
	"github.com/Faultbox/meshview/internal/bounds"
	"github.com/Faultbox/meshview/internal/clip"
	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/decode"
	"github.com/Faultbox/meshview/internal/fixtures"
	"github.com/Faultbox/meshview/internal/material"
	"github.com/Faultbox/meshview/pkg/math"
)

// holdDecoder decodes with the default table after an optional hold. The
// bytes are read before holding, so a superseded upload still decodes.
type holdDecoder struct {
	table *decode.Table
	hold  func(ctx context.Context, name string) error

	mu      sync.Mutex
	decoded []string
}

func (d *holdDecoder) Decode(ctx context.Context, h *asset.Handle) decode.Result {
	res := decode.Result{Generation: h.Generation(), Name: h.Name(), Format: h.Format()}
	data, err := h.Bytes()
	if err != nil {
		res.Err = err
		return res
	}
	if d.hold != nil {
		if err := d.hold(ctx, h.Name()); err != nil {
			res.Err = err
			return res
		}
	}
	res.Graph, res.Err = d.table.Lookup(h.Format())(ctx, h.Name(), data)
	if res.Err == nil {
		d.mu.Lock()
		d.decoded = append(d.decoded, h.Name())
		d.mu.Unlock()
	}
	return res
}

func (d *holdDecoder) names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.decoded...)
}

func newViewer(t *testing.T, dec decode.Decoder) *Viewer {
	t.Helper()
	v := New(config.Default(), dec)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func wait(t *testing.T, v *Viewer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, v.PumpWait(ctx))
}

// settle pumps until every started decode has reported back.
func settle(t *testing.T, v *Viewer, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for v.Pending() > 0 {
		v.Pump()
		if time.Now().After(deadline) {
			t.Fatalf("%d decodes still pending after %v", v.Pending(), timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

func loadCube(t *testing.T, v *Viewer) uint64 {
	t.Helper()
	gen := v.Upload("cube.stl", fixtures.CubeSTL())
	require.NotZero(t, gen)
	wait(t, v)
	require.Equal(t, Ready, v.State())
	return gen
}

func TestNew_Empty(t *testing.T) {
	v := newViewer(t, nil)

	assert.Equal(t, Empty, v.State())
	assert.Nil(t, v.Fault())
	assert.Zero(t, v.LiveHandles())

	d := v.Display()
	assert.True(t, d.Placeholder)
	require.NotNil(t, d.Scene)
	assert.Equal(t, 8, d.Scene.Triangles())
	assert.False(t, d.Bounds.IsEmpty())
}

func TestUpload_CubeSTL(t *testing.T) {
	v := newViewer(t, nil)
	gen := loadCube(t, v)

	d := v.Display()
	assert.Equal(t, gen, d.Generation)
	assert.Equal(t, "cube.stl", d.Name)
	assert.False(t, d.Placeholder)
	require.Len(t, d.Scene.Items, 1, "one mesh")
	assert.Equal(t, fixtures.CubeTriangles, d.Scene.Triangles())
	assert.Equal(t, bounds.Box{Min: r3.Vec{X: -1, Y: -1, Z: -1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}, d.Bounds)
	assert.Equal(t, 1, v.LiveHandles())
}

func TestUpload_FramesCubeCentrally(t *testing.T) {
	v := newViewer(t, nil)
	loadCube(t, v)

	d := v.Display()
	vp := d.Projection.Mul(d.View)
	ndc := func(p math.Vec3) (float32, float32) {
		c := vp.MulVec4(math.Vec4{p.X, p.Y, p.Z, 1})
		return c[0] / c[3], c[1] / c[3]
	}

	x, y := ndc(math.Vec3{})
	assert.InDelta(t, 0, x, 1e-3)
	assert.InDelta(t, 0, y, 1e-3)

	for _, corner := range fixtures.CubeVertices {
		x, y := ndc(math.V3(corner))
		assert.Less(t, math32.Abs(x), float32(1), "corner %v off screen", corner)
		assert.Less(t, math32.Abs(y), float32(1), "corner %v off screen", corner)
	}
}

func TestEveryFormatReachesReady(t *testing.T) {
	for key, name := range fixtures.Names {
		t.Run(key, func(t *testing.T) {
			data, err := fixtures.ByName(key)
			require.NoError(t, err)

			v := newViewer(t, nil)
			v.Upload(name, data)
			wait(t, v)

			require.Equal(t, Ready, v.State(), "fault: %v", v.Fault())
			assert.GreaterOrEqual(t, len(v.Display().Scene.Items), 1)
		})
	}
}

func TestWireframeChangesOnlyTheFlag(t *testing.T) {
	v := newViewer(t, nil)
	loadCube(t, v)

	before := v.Display().Scene
	states := append([]material.State(nil), before.States...)
	geom := before.Items[0].Geometry
	positions := len(geom.Positions)

	assert.True(t, v.ToggleWireframe())

	after := v.Display().Scene
	assert.Same(t, before, after, "scene must not be rebuilt")
	assert.Same(t, geom, after.Items[0].Geometry)
	assert.Len(t, geom.Positions, positions)
	assert.Equal(t, fixtures.CubeTriangles, after.Triangles())
	for i, st := range after.States {
		want := states[i]
		want.Wireframe = true
		assert.Equal(t, want, st)
	}
	assert.Equal(t, Ready, v.State())
}

func TestApplyIdempotent(t *testing.T) {
	v := newViewer(t, nil)
	loadCube(t, v)

	v.SetOpacity(0.4)
	rs := v.Display().Scene
	rev := rs.Revision
	states := append([]material.State(nil), rs.States...)

	v.SetOpacity(0.4)
	assert.Equal(t, rev, rs.Revision)
	assert.Equal(t, states, rs.States)
	assert.True(t, rs.States[0].Transparent)
}

func TestControlsReachPlaceholder(t *testing.T) {
	v := newViewer(t, nil)
	v.SetWireframe(true)
	c := v.CycleColor()

	d := v.Display()
	require.True(t, d.Placeholder)
	for _, st := range d.Scene.States {
		assert.True(t, st.Wireframe)
		assert.Equal(t, [4]float32{c.R, c.G, c.B, 1}, st.Color)
	}
}

func TestZeroClipOffsetsShowEverything(t *testing.T) {
	v := newViewer(t, nil)
	loadCube(t, v)
	full := v.Display().Bounds

	for _, a := range clip.Axes {
		assert.Zero(t, v.SetClipOffset(a, 0))
	}
	v.Refit()

	d := v.Display()
	assert.Equal(t, full, d.Bounds)
	for _, st := range d.Scene.States {
		assert.Zero(t, st.NumPlanes)
	}
}

func TestClipOffsetClampedAndRefit(t *testing.T) {
	v := newViewer(t, nil)
	loadCube(t, v)

	assert.Equal(t, float32(10), v.SetClipOffset(clip.X, 50))
	assert.Equal(t, float32(-10), v.SetClipOffset(clip.X, -50))

	v.SetClipOffset(clip.X, 0)
	v.SetClipEnabled(clip.X, true)
	assert.Equal(t, 1, v.Display().Scene.States[0].NumPlanes)

	// Bounds only follow the planes on an explicit refit.
	assert.Equal(t, 1.0, v.Display().Bounds.Max.X)
	v.Refit()
	assert.InDelta(t, 0, v.Display().Bounds.Max.X, 1e-9)

	v.ResetClip()
	assert.Zero(t, v.Display().Scene.States[0].NumPlanes)
}

func TestCorruptInputFallsBackToPlaceholder(t *testing.T) {
	badFBX := append([]byte("Kaydara FBX Binarz  \x00\x1a\x00"), make([]byte, 64)...)
	glb, err := fixtures.CubeGLB()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated.stl", fixtures.Truncate(fixtures.CubeSTL())},
		{"truncated.glb", fixtures.Truncate(glb)},
		{"truncated.fbx", fixtures.Truncate(fixtures.CubeFBX())},
		{"truncated.rsm", fixtures.Truncate(fixtures.CubeRSM())},
		{"bad-header.fbx", badFBX},
		{"garbage.obj", []byte("v 1 2\nf 1 2 3\n")},
		{"empty.stl", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViewer(t, nil)
			gen := v.Upload(tt.name, tt.data)
			wait(t, v)

			require.Equal(t, Error, v.State())
			f := v.Fault()
			require.NotNil(t, f)
			assert.Equal(t, DecodeFailure, f.Kind)
			assert.Equal(t, tt.name, f.File)
			assert.Equal(t, gen, f.Generation)
			assert.ErrorIs(t, f, ErrDecodeFailure)
			assert.NotEmpty(t, f.Title())

			d := v.Display()
			assert.True(t, d.Placeholder)
			assert.NotEmpty(t, d.Scene.Items)
			assert.Same(t, f, d.Fault)
			assert.Zero(t, v.LiveHandles(), "handle released on failure")
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	v := newViewer(t, nil)
	v.Upload("notes.txt", []byte("hello"))
	wait(t, v)

	require.Equal(t, Error, v.State())
	assert.Equal(t, UnsupportedFormat, v.Fault().Kind)
	assert.ErrorIs(t, v.Fault(), ErrUnsupportedFormat)
	assert.NotErrorIs(t, v.Fault(), ErrDecodeFailure)
	assert.True(t, v.Display().Placeholder)
}

func TestDisplayCaption(t *testing.T) {
	v := newViewer(t, nil)
	assert.Contains(t, v.Display().Caption(), "drop a model")

	v.Upload("notes.txt", []byte("hello"))
	assert.Equal(t, "meshview - loading notes.txt", v.Display().Caption())
	wait(t, v)
	assert.Equal(t, "meshview - Cannot open notes.txt: unsupported file type", v.Display().Caption())

	loadCube(t, v)
	assert.Equal(t, "meshview - cube.stl", v.Display().Caption())
}

func TestRetryAfterError(t *testing.T) {
	v := newViewer(t, nil)
	v.Upload("bad.stl", []byte("nope"))
	wait(t, v)
	require.Equal(t, Error, v.State())

	loadCube(t, v)
	assert.Nil(t, v.Fault())
	assert.False(t, v.Display().Placeholder)
}

func TestSupersede_GatedDecoder(t *testing.T) {
	gate := make(chan struct{})
	dec := &holdDecoder{
		table: decode.DefaultTable(),
		hold: func(ctx context.Context, name string) error {
			if name != "a.stl" {
				return nil
			}
			select {
			case <-gate:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	v := newViewer(t, dec)

	genA := v.Upload("a.stl", fixtures.CubeSTL())
	genB := v.Upload("b.obj", fixtures.CubeOBJ())
	require.Greater(t, genB, genA)
	assert.Equal(t, Loading, v.State())
	assert.Equal(t, 1, v.LiveHandles(), "A released when superseded")

	wait(t, v)
	require.Equal(t, Ready, v.State())
	shown := v.Display().Scene
	require.Equal(t, genB, v.Display().Generation)

	close(gate)
	settle(t, v, 5*time.Second)

	assert.Contains(t, dec.names(), "a.stl", "A decoded successfully")
	assert.Equal(t, 1, v.Dropped())
	assert.Equal(t, Ready, v.State())
	assert.Same(t, shown, v.Display().Scene)
	assert.Equal(t, "b.obj", v.Display().Name)
	assert.Equal(t, genB, v.Display().Generation)
}

func TestSupersede_SlowDecodeArrivesLast(t *testing.T) {
	if testing.Short() {
		t.Skip("waits two seconds")
	}
	dec := &holdDecoder{
		table: decode.DefaultTable(),
		hold: func(ctx context.Context, name string) error {
			if name != "a.stl" {
				return nil
			}
			timer := time.NewTimer(2 * time.Second)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	v := newViewer(t, dec)

	v.Upload("a.stl", fixtures.CubeSTL())
	genB := v.Upload("b.stl", fixtures.CubeSTL())
	wait(t, v)
	shown := v.Display().Scene

	settle(t, v, 5*time.Second)
	assert.Equal(t, []string{"b.stl", "a.stl"}, dec.names())
	assert.Equal(t, Ready, v.State())
	assert.Same(t, shown, v.Display().Scene)
	assert.Equal(t, genB, v.Display().Generation)
}

func TestSupersede_ResultAfterClearIsDropped(t *testing.T) {
	gate := make(chan struct{})
	dec := &holdDecoder{
		table: decode.DefaultTable(),
		hold: func(ctx context.Context, _ string) error {
			<-gate
			return nil
		},
	}
	v := newViewer(t, dec)

	v.Upload("a.stl", fixtures.CubeSTL())
	v.Clear()
	close(gate)
	settle(t, v, 5*time.Second)

	assert.Equal(t, Empty, v.State())
	assert.True(t, v.Display().Placeholder)
	assert.Equal(t, 1, v.Dropped())
}

func TestHandleRoundTrip(t *testing.T) {
	v := newViewer(t, nil)
	baseline := v.LiveHandles()

	v.Upload("a.stl", fixtures.CubeSTL())
	wait(t, v)
	v.Upload("b.obj", fixtures.CubeOBJ())
	wait(t, v)
	assert.Equal(t, baseline+1, v.LiveHandles())

	v.Clear()
	assert.Equal(t, baseline, v.LiveHandles())
	assert.Equal(t, Empty, v.State())
	assert.True(t, v.Display().Placeholder)

	require.NoError(t, v.Close())
	assert.Equal(t, baseline, v.LiveHandles())
}

func TestRenderFaultContained(t *testing.T) {
	v := newViewer(t, nil)
	gen := loadCube(t, v)

	err := v.Frame(0.016, func(d Display) error {
		panic("degenerate geometry")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuntimeRender)

	require.Equal(t, Error, v.State())
	f := v.Fault()
	assert.Equal(t, RuntimeRenderError, f.Kind)
	assert.Equal(t, gen, f.Generation)
	assert.Equal(t, "cube.stl", f.File)
	assert.True(t, v.Display().Placeholder)
	assert.Zero(t, v.LiveHandles())

	// The panel is drawn on the next frame without another fault.
	require.NoError(t, v.Frame(0.016, func(d Display) error {
		assert.Equal(t, RuntimeRenderError, d.Fault.Kind)
		return nil
	}))

	// Recovery is a fresh upload.
	loadCube(t, v)
	assert.Nil(t, v.Fault())
}

func TestRenderErrorContained(t *testing.T) {
	v := newViewer(t, nil)
	loadCube(t, v)

	boom := errors.New("shader link failed")
	err := v.Frame(0.016, func(Display) error { return boom })
	assert.ErrorIs(t, err, ErrRuntimeRender)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Error, v.State())
}

func TestFrameAutoRotate(t *testing.T) {
	v := newViewer(t, nil)
	require.True(t, v.AutoRotate())

	yaw := v.Camera().RotationY
	require.NoError(t, v.Frame(1, nil))
	assert.InDelta(t, yaw+v.RotationSpeed(), v.Camera().RotationY, 1e-5)

	v.SetAutoRotate(false)
	yaw = v.Camera().RotationY
	require.NoError(t, v.Frame(1, nil))
	assert.Equal(t, yaw, v.Camera().RotationY)
	assert.Equal(t, Empty, v.State(), "frames do not change state")
}

func TestCloseCancelsInFlight(t *testing.T) {
	dec := &holdDecoder{
		table: decode.DefaultTable(),
		hold: func(ctx context.Context, _ string) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	v := New(config.Default(), dec)
	v.Upload("a.stl", fixtures.CubeSTL())

	require.NoError(t, v.Close())
	assert.Zero(t, v.LiveHandles())
	assert.Zero(t, v.Upload("b.stl", fixtures.CubeSTL()))
	assert.ErrorIs(t, v.Frame(0.016, nil), ErrClosed)
	assert.NoError(t, v.Close(), "second Close is a no-op")
}

func TestInjectedLatencyFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Decode.InjectedLatency = config.Duration(50 * time.Millisecond)
	v := New(cfg, nil)
	defer v.Close()

	start := time.Now()
	v.Upload("cube.stl", fixtures.CubeSTL())
	assert.Zero(t, v.Pump(), "no result before the latency elapses")
	wait(t, v)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, Ready, v.State())
}

func TestFaultCauseOnFailureSurface(t *testing.T) {
	v := newViewer(t, nil)
	data := fixtures.CubeSTL()
	v.Upload("cube.stl", data[:len(data)-30])
	wait(t, v)

	f := v.Fault()
	require.NotNil(t, f)
	assert.Equal(t, "truncated STL data: 654 bytes, header declares 684", f.Cause())
	assert.Equal(t, "Cannot read cube.stl: truncated STL data: 654 bytes, header declares 684", f.Title())
	assert.Equal(t, "meshview - "+f.Title(), v.Display().Caption())
}

func TestFaultCause(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"sentinel only", fmt.Errorf("%w: x.obj: %w", ErrDecodeFailure, decode.ErrNoGeometry), "no drawable geometry"},
		{"first line", fmt.Errorf("%w: x.obj: decoder panic: boom\ngoroutine 7", ErrDecodeFailure), "decoder panic: boom"},
		{"render", fmt.Errorf("%w: shader link failed", ErrRuntimeRender), "shader link failed"},
		{"long", fmt.Errorf("%w: x.obj: %s", ErrDecodeFailure, strings.Repeat("a", 200)), strings.Repeat("a", 77) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Fault{Kind: Classify(tt.err), File: "x.obj", Err: tt.err}
			assert.Equal(t, tt.want, f.Cause())
		})
	}

	f := &Fault{Kind: DecodeFailure, File: "x.obj"}
	assert.Equal(t, "Cannot read x.obj: the file is damaged or not a valid model", f.Title())
}
