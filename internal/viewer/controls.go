package viewer

import (
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/clip"
	"github.com/Faultbox/meshview/internal/material"
)

// Control surface. None of these change the lifecycle state or re-decode;
// material edits rewrite the side table of the live scene and the
// placeholder.

// Params returns the current material parameters.
func (v *Viewer) Params() material.Parameters {
	return v.norm.Params()
}

func (v *Viewer) apply(p material.Parameters) {
	v.norm.Apply(p)
	v.placeholder.Apply(v.norm.Params())
}

// setPlanes is the clip engine listener.
func (v *Viewer) setPlanes(planes []clip.Plane) {
	v.norm.SetPlanes(planes)
	v.placeholder.Apply(v.norm.Params())
	v.log.Debug("clip planes changed", zap.Int("active", len(planes)))
}

// SetWireframe sets the wireframe flag.
func (v *Viewer) SetWireframe(on bool) {
	p := v.Params()
	p.Wireframe = on
	v.apply(p)
}

// ToggleWireframe flips the wireframe flag and returns the new value.
func (v *Viewer) ToggleWireframe() bool {
	on := !v.Params().Wireframe
	v.SetWireframe(on)
	return on
}

// SetColor sets the base color.
func (v *Viewer) SetColor(c material.RGB) {
	p := v.Params()
	p.BaseColor = c
	v.apply(p)
}

// CycleColor advances to the next palette color and returns it.
func (v *Viewer) CycleColor() material.RGB {
	v.colorIndex = (v.colorIndex + 1) % len(material.Palette)
	c := material.Palette[v.colorIndex]
	v.SetColor(c)
	return c
}

// SetOpacity sets the opacity, clamped to [0, 1], and returns the value used.
func (v *Viewer) SetOpacity(o float32) float32 {
	p := v.Params()
	p.Opacity = o
	v.apply(p)
	return v.Params().Opacity
}

// NudgeOpacity adds delta to the opacity.
func (v *Viewer) NudgeOpacity(delta float32) float32 {
	return v.SetOpacity(v.Params().Opacity + delta)
}

// SetAutoRotate enables or disables continuous rotation.
func (v *Viewer) SetAutoRotate(on bool) {
	v.autoRotate = on
}

// ToggleAutoRotate flips auto-rotation and returns the new value.
func (v *Viewer) ToggleAutoRotate() bool {
	v.autoRotate = !v.autoRotate
	return v.autoRotate
}

// AutoRotate reports whether auto-rotation is on.
func (v *Viewer) AutoRotate() bool {
	return v.autoRotate
}

// SetRotationSpeed sets the auto-rotation speed in radians per second.
// Negative speeds rotate the other way.
func (v *Viewer) SetRotationSpeed(speed float32) {
	v.speed = speed
}

// RotationSpeed returns the auto-rotation speed.
func (v *Viewer) RotationSpeed() float32 {
	return v.speed
}

// SetClipOffset sets the offset of one clip plane, clamped to the configured
// limit, and returns the value used.
func (v *Viewer) SetClipOffset(axis clip.Axis, offset float32) float32 {
	return v.clip.SetOffset(axis, offset)
}

// NudgeClip moves one clip plane by delta.
func (v *Viewer) NudgeClip(axis clip.Axis, delta float32) float32 {
	return v.clip.Nudge(axis, delta)
}

// SetClipEnabled sets the explicit enable flag of one clip plane.
func (v *Viewer) SetClipEnabled(axis clip.Axis, on bool) {
	v.clip.SetEnabled(axis, on)
}

// ToggleClip flips the explicit enable flag of one clip plane.
func (v *Viewer) ToggleClip(axis clip.Axis) bool {
	return v.clip.Toggle(axis)
}

// ResetClip disables every clip plane.
func (v *Viewer) ResetClip() {
	v.clip.Reset()
}

// ClipSlot returns the state of one clip plane.
func (v *Viewer) ClipSlot(axis clip.Axis) clip.Slot {
	return v.clip.Slot(axis)
}

// SetShowBounds shows or hides the bounding box overlay.
func (v *Viewer) SetShowBounds(on bool) {
	v.showBounds = on
}

// ToggleBounds flips the bounding box overlay.
func (v *Viewer) ToggleBounds() bool {
	v.showBounds = !v.showBounds
	return v.showBounds
}

// Orbit rotates the camera by a pointer drag in pixels.
func (v *Viewer) Orbit(dx, dy float32) {
	v.cam.HandleDrag(dx, dy)
}

// Pan moves the camera center by a pointer drag in pixels.
func (v *Viewer) Pan(dx, dy float32) {
	v.cam.HandlePan(dx, dy)
}

// Zoom moves the camera by scroll wheel steps.
func (v *Viewer) Zoom(steps float32) {
	v.cam.HandleZoom(steps)
}

// Resize updates the viewport aspect ratio.
func (v *Viewer) Resize(width, height int) {
	v.cam.SetViewport(width, height)
}
