// Package camera provides the orbit camera used to frame and inspect models.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/meshview/internal/bounds"
	"github.com/Faultbox/meshview/pkg/math"
)

// Default orientation applied on Reset.
const (
	DefaultPitch = 0.45
	DefaultYaw   = 0.6
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Projection
	FOV    float32 // Vertical field of view, radians
	Aspect float32 // Viewport width / height

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
	PanSensitivity  float32

	// radius of the last fitted volume, drives the clip range
	radius float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
// fovDeg is the vertical field of view in degrees.
func NewOrbitCamera(fovDeg float32) *OrbitCamera {
	if fovDeg <= 1 || fovDeg >= 179 {
		fovDeg = 45
	}
	c := &OrbitCamera{
		FOV:             fovDeg * math32.Pi / 180,
		Aspect:          1,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		PanSensitivity:  0.0015,
	}
	c.Reset()
	c.setRadius(1)
	c.Distance = 5
	return c
}

// Reset restores the default orientation. Center and distance are kept.
func (c *OrbitCamera) Reset() {
	c.RotationX = DefaultPitch
	c.RotationY = DefaultYaw
}

// SetViewport updates the aspect ratio from the drawable size.
func (c *OrbitCamera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sp, cp := math32.Sincos(c.RotationX)
	sy, cy := math32.Sincos(c.RotationY)
	return c.Center.Add(math.Vec3{
		X: c.Distance * cp * sy,
		Y: c.Distance * sp,
		Z: c.Distance * cp * cy,
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ProjectionMatrix returns the perspective projection. The depth range
// follows the distance so small and huge models both keep precision.
func (c *OrbitCamera) ProjectionMatrix() math.Mat4 {
	near := math32.Max(c.Distance-c.radius*2, c.Distance*0.01)
	far := c.Distance + c.radius*4
	return math.Perspective(c.FOV, c.Aspect, near, far)
}

// ViewProjection returns Projection * View.
func (c *OrbitCamera) ViewProjection() math.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX += deltaY * c.DragSensitivity
	c.RotationX = clamp(c.RotationX, c.MinPitch, c.MaxPitch)
	c.RotationY = wrapAngle(c.RotationY)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// HandlePan moves the center point in the view plane. Speed scales with
// distance so the model tracks the cursor at any zoom level.
func (c *OrbitCamera) HandlePan(deltaX, deltaY float32) {
	forward := c.Center.Sub(c.Position()).Normalize()
	right := forward.Cross(math.Vec3{Y: 1}).Normalize()
	up := right.Cross(forward)

	speed := c.Distance * c.PanSensitivity
	c.Center = c.Center.
		Add(right.Scale(-deltaX * speed)).
		Add(up.Scale(deltaY * speed))
}

// Tick advances auto-rotation by dt seconds at speed radians per second.
func (c *OrbitCamera) Tick(dt float32, autoRotate bool, speed float32) {
	if !autoRotate || dt <= 0 {
		return
	}
	c.RotationY = wrapAngle(c.RotationY + speed*dt)
}

// Fit centers the camera on box and backs off until its bounding sphere,
// grown by margin, fits the narrower of the two fields of view. An empty box
// frames the unit sphere at the origin. Orientation is kept.
func (c *OrbitCamera) Fit(box bounds.Box, margin float32) {
	if margin < 1 {
		margin = 1
	}
	center := math.Vec3{}
	radius := float32(1)
	if !box.IsEmpty() {
		bc := box.Center()
		center = math.Vec3{X: float32(bc.X), Y: float32(bc.Y), Z: float32(bc.Z)}
		radius = float32(box.Radius())
	}
	if radius < 1e-4 {
		radius = 1e-4
	}

	half := c.FOV / 2
	if c.Aspect < 1 {
		half = math32.Atan(math32.Tan(half) * c.Aspect)
	}

	c.Center = center
	c.setRadius(radius)
	c.Distance = radius * margin / math32.Sin(half)
}

// Radius returns the radius of the last fitted volume.
func (c *OrbitCamera) Radius() float32 {
	return c.radius
}

func (c *OrbitCamera) setRadius(r float32) {
	c.radius = r
	c.MinDistance = r * 0.05
	c.MaxDistance = r * 100
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrapAngle(a float32) float32 {
	a = math32.Mod(a, 2*math32.Pi)
	if a < 0 {
		a += 2 * math32.Pi
	}
	return a
}
