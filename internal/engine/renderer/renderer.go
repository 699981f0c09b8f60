// Package renderer draws the viewer's display state with OpenGL 4.1.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/shader"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/material"
	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/internal/viewer"
	"github.com/Faultbox/meshview/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	Background material.RGB
}

// Renderer handles all OpenGL rendering.
type Renderer struct {
	config Config
	log    *zap.Logger

	program *shader.Program

	// Uniform locations
	locViewProj     int32
	locModel        int32
	locNormalMatrix int32
	locClipPlanes   int32
	locNumPlanes    int32
	locColor        int32
	locEye          int32
	locUnlit        int32

	// GPU meshes for the scene currently shown
	meshes    map[*scene.Geometry]*mesh
	uploadFor *material.RenderableScene

	// Bounding box overlay
	boxVAO uint32
	boxVBO uint32
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
		log:    logger.Named("renderer"),
		meshes: make(map[*scene.Geometry]*mesh),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))

	var err error
	r.program, err = shader.Compile("mesh", meshVertexShader, meshFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}
	if err := r.program.Require("uViewProj", "uModel", "uColor"); err != nil {
		r.program.Delete()
		return nil, err
	}
	r.locViewProj = r.program.Uniform("uViewProj")
	r.locModel = r.program.Uniform("uModel")
	r.locNormalMatrix = r.program.Uniform("uNormalMatrix")
	r.locClipPlanes = r.program.Uniform("uClipPlanes")
	r.locNumPlanes = r.program.Uniform("uNumPlanes")
	r.locColor = r.program.Uniform("uColor")
	r.locEye = r.program.Uniform("uEye")
	r.locUnlit = r.program.Uniform("uUnlit")

	r.createBoxOverlay()
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	r.releaseMeshes()
	if r.boxVAO != 0 {
		gl.DeleteVertexArrays(1, &r.boxVAO)
	}
	if r.boxVBO != 0 {
		gl.DeleteBuffers(1, &r.boxVBO)
	}
	if r.program != nil {
		r.program.Delete()
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Draw renders one frame. It matches viewer.DrawFunc.
func (r *Renderer) Draw(d viewer.Display) error {
	bg := ClearColor(d, r.config.Background)
	gl.ClearColor(bg[0], bg[1], bg[2], 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	// A render fault replaces the whole region with the error panel.
	if d.Fault != nil && d.Fault.Kind == viewer.RuntimeRenderError {
		r.releaseMeshes()
		return nil
	}
	if d.Scene == nil {
		return nil
	}
	if d.Scene != r.uploadFor {
		r.sync(d.Scene)
	}

	viewProj := d.Projection.Mul(d.View)
	r.program.Use()
	gl.UniformMatrix4fv(r.locViewProj, 1, false, viewProj.Ptr())
	eye := d.Eye.Array()
	gl.Uniform3fv(r.locEye, 1, &eye[0])
	gl.Uniform1i(r.locUnlit, 0)

	for i, item := range d.Scene.Items {
		r.drawItem(item, d.Scene.States[i])
	}
	r.resetState()

	if d.ShowBounds && !d.Bounds.IsEmpty() {
		r.drawBox(d)
	}

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("OpenGL error 0x%04x", code)
	}
	return nil
}

func (r *Renderer) drawItem(item material.Item, st material.State) {
	m, ok := r.meshes[item.Geometry]
	if !ok {
		return
	}

	world := item.World
	nm := NormalMatrix(world)
	gl.UniformMatrix4fv(r.locModel, 1, false, world.Ptr())
	gl.UniformMatrix3fv(r.locNormalMatrix, 1, false, &nm[0])

	planes, n := ClipUniforms(st)
	gl.Uniform4fv(r.locClipPlanes, MaxClipPlanes, &planes[0])
	gl.Uniform1i(r.locNumPlanes, n)
	for i := 0; i < MaxClipPlanes; i++ {
		if int32(i) < n {
			gl.Enable(gl.CLIP_DISTANCE0 + uint32(i))
		} else {
			gl.Disable(gl.CLIP_DISTANCE0 + uint32(i))
		}
	}

	gl.Uniform4fv(r.locColor, 1, &st.Color[0])
	if st.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
	if st.Transparent {
		gl.Enable(gl.BLEND)
	} else {
		gl.Disable(gl.BLEND)
	}
	gl.DepthMask(st.DepthWrite)

	m.draw()
}

func (r *Renderer) resetState() {
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	gl.Disable(gl.BLEND)
	gl.DepthMask(true)
	for i := 0; i < MaxClipPlanes; i++ {
		gl.Disable(gl.CLIP_DISTANCE0 + uint32(i))
	}
}

// sync uploads the geometry of rs and frees meshes of the previous scene.
func (r *Renderer) sync(rs *material.RenderableScene) {
	keep := make(map[*scene.Geometry]*mesh, len(rs.Items))
	for _, item := range rs.Items {
		if m, ok := r.meshes[item.Geometry]; ok {
			keep[item.Geometry] = m
			continue
		}
		if _, ok := keep[item.Geometry]; ok {
			continue
		}
		keep[item.Geometry] = uploadMesh(item.Geometry)
	}
	for g, m := range r.meshes {
		if _, ok := keep[g]; !ok {
			m.delete()
		}
	}
	r.meshes = keep
	r.uploadFor = rs
	r.log.Debug("scene uploaded", zap.Int("meshes", len(keep)), zap.Int("items", len(rs.Items)))
}

func (r *Renderer) releaseMeshes() {
	for _, m := range r.meshes {
		m.delete()
	}
	r.meshes = make(map[*scene.Geometry]*mesh)
	r.uploadFor = nil
}

func (r *Renderer) createBoxOverlay() {
	gl.GenVertexArrays(1, &r.boxVAO)
	gl.BindVertexArray(r.boxVAO)
	gl.GenBuffers(1, &r.boxVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.boxVBO)
	gl.BufferData(gl.ARRAY_BUFFER, scene.BoxWireframeVertexCount*3*4, nil, gl.DYNAMIC_DRAW)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttrib3f(1, 0, 1, 0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

func (r *Renderer) drawBox(d viewer.Display) {
	min, max := d.Bounds.Float32()
	verts := scene.BoxWireframe(min, max)

	ident := math.Identity()
	nm := NormalMatrix(ident)
	color := [4]float32{1, 0.85, 0.2, 1}

	gl.UniformMatrix4fv(r.locModel, 1, false, ident.Ptr())
	gl.UniformMatrix3fv(r.locNormalMatrix, 1, false, &nm[0])
	gl.Uniform1i(r.locNumPlanes, 0)
	gl.Uniform4fv(r.locColor, 1, &color[0])
	gl.Uniform1i(r.locUnlit, 1)

	gl.BindBuffer(gl.ARRAY_BUFFER, r.boxVBO)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(verts)*4, unsafe.Pointer(&verts[0]))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	gl.BindVertexArray(r.boxVAO)
	gl.DrawArrays(gl.LINES, 0, scene.BoxWireframeVertexCount)
	gl.BindVertexArray(0)
	gl.Uniform1i(r.locUnlit, 0)
}

// ClearColor returns the background for d: the configured color, tinted
// red behind a decode fault and replaced by the panel color on a render
// fault.
func ClearColor(d viewer.Display, bg material.RGB) [3]float32 {
	switch {
	case d.Fault == nil:
		return [3]float32{bg.R, bg.G, bg.B}
	case d.Fault.Kind == viewer.RuntimeRenderError:
		return [3]float32{0.45, 0.08, 0.08}
	default:
		return [3]float32{bg.R*0.6 + 0.4*0.35, bg.G * 0.6, bg.B * 0.6}
	}
}

// ClipUniforms packs the active planes of st for uClipPlanes.
func ClipUniforms(st material.State) ([4 * MaxClipPlanes]float32, int32) {
	var out [4 * MaxClipPlanes]float32
	planes := st.ActivePlanes()
	for i, pl := range planes {
		eq := pl.Equation()
		copy(out[i*4:], eq[:])
	}
	return out, int32(len(planes))
}

// NormalMatrix returns the inverse transpose of the upper 3x3 of m in
// column-major order, or the upper 3x3 itself when m is singular.
func NormalMatrix(m math.Mat4) [9]float32 {
	a := [9]float32{m[0], m[1], m[2], m[4], m[5], m[6], m[8], m[9], m[10]}
	// cofactors of the column-major 3x3 a
	c := [9]float32{
		a[4]*a[8] - a[5]*a[7],
		a[5]*a[6] - a[3]*a[8],
		a[3]*a[7] - a[4]*a[6],
		a[2]*a[7] - a[1]*a[8],
		a[0]*a[8] - a[2]*a[6],
		a[1]*a[6] - a[0]*a[7],
		a[1]*a[5] - a[2]*a[4],
		a[2]*a[3] - a[0]*a[5],
		a[0]*a[4] - a[1]*a[3],
	}
	det := a[0]*c[0] + a[1]*c[1] + a[2]*c[2]
	if det > -1e-12 && det < 1e-12 {
		return a
	}
	for i := range c {
		c[i] /= det
	}
	return c
}
