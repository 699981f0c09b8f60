// Package clip holds the viewer's axis-aligned clipping planes: one slot per
// axis, composed by intersection.
package clip

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

// DefaultLimit bounds plane offsets to [-DefaultLimit, DefaultLimit].
const DefaultLimit = 10

// Axis selects a clipping slot.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// Axes lists every slot in order.
var Axes = [3]Axis{X, Y, Z}

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis parses "x", "y" or "z", case-insensitively.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return X, nil
	case "y":
		return Y, nil
	case "z":
		return Z, nil
	}
	return X, fmt.Errorf("unknown clip axis %q", s)
}

func (a Axis) valid() bool {
	return a >= X && a <= Z
}

// Plane is an active clipping plane. Its normal is the negative axis, so a
// point is kept when its coordinate on Axis is at most Offset.
type Plane struct {
	Axis   Axis
	Offset float32
}

// Distance is the signed distance of p from the plane; negative means
// clipped.
func (pl Plane) Distance(p [3]float32) float32 {
	return pl.Offset - p[pl.Axis]
}

// Visible reports whether p is on the kept side (the plane itself included).
func (pl Plane) Visible(p [3]float32) bool {
	return pl.Distance(p) >= 0
}

// Equation returns (a, b, c, d) with a*x + b*y + c*z + d equal to Distance,
// in the form shaders consume.
func (pl Plane) Equation() [4]float32 {
	var eq [4]float32
	eq[pl.Axis] = -1
	eq[3] = pl.Offset
	return eq
}

// Visible reports whether p is kept by every plane. No planes keep
// everything.
func Visible(planes []Plane, p [3]float32) bool {
	for _, pl := range planes {
		if !pl.Visible(p) {
			return false
		}
	}
	return true
}

// Slot is the state of one axis.
type Slot struct {
	Offset  float32
	Enabled bool
}

// Active reports whether the slot contributes a plane.
func (s Slot) Active() bool {
	return s.Enabled || s.Offset != 0
}

// Engine holds the three slots. Out-of-range offsets are clamped, never
// rejected. Listeners run synchronously after every effective change.
type Engine struct {
	limit     float32
	slots     [3]Slot
	version   uint64
	listeners []func([]Plane)
}

// NewEngine creates an engine with every slot inactive. A non-positive limit
// selects DefaultLimit.
func NewEngine(limit float32) *Engine {
	if !(limit > 0) || math32.IsInf(limit, 0) {
		limit = DefaultLimit
	}
	return &Engine{limit: limit}
}

// Limit returns the offset bound.
func (e *Engine) Limit() float32 {
	return e.limit
}

// Clamp bounds v to the engine's range. NaN becomes zero.
func (e *Engine) Clamp(v float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Max(-e.limit, math32.Min(e.limit, v))
}

// OnChange registers fn to receive the active plane set after each change.
func (e *Engine) OnChange(fn func([]Plane)) {
	e.listeners = append(e.listeners, fn)
}

// Version increments on every effective change.
func (e *Engine) Version() uint64 {
	return e.version
}

// SetOffset sets the axis offset and returns the clamped value stored.
func (e *Engine) SetOffset(axis Axis, v float32) float32 {
	if !axis.valid() {
		return 0
	}
	v = e.Clamp(v)
	if e.slots[axis].Offset != v {
		e.slots[axis].Offset = v
		e.changed()
	}
	return v
}

// Nudge moves the axis offset by delta, clamped.
func (e *Engine) Nudge(axis Axis, delta float32) float32 {
	if !axis.valid() {
		return 0
	}
	return e.SetOffset(axis, e.slots[axis].Offset+delta)
}

// SetEnabled sets the explicit enable flag of an axis.
func (e *Engine) SetEnabled(axis Axis, on bool) {
	if !axis.valid() || e.slots[axis].Enabled == on {
		return
	}
	e.slots[axis].Enabled = on
	e.changed()
}

// Toggle flips the explicit enable flag and returns the new value.
func (e *Engine) Toggle(axis Axis) bool {
	if !axis.valid() {
		return false
	}
	e.SetEnabled(axis, !e.slots[axis].Enabled)
	return e.slots[axis].Enabled
}

// Reset zeroes every offset and clears every enable flag.
func (e *Engine) Reset() {
	if e.slots == [3]Slot{} {
		return
	}
	e.slots = [3]Slot{}
	e.changed()
}

// Slot returns the state of an axis.
func (e *Engine) Slot(axis Axis) Slot {
	if !axis.valid() {
		return Slot{}
	}
	return e.slots[axis]
}

// Active returns the planes of the active slots in axis order.
func (e *Engine) Active() []Plane {
	var planes []Plane
	for _, a := range Axes {
		if s := e.slots[a]; s.Active() {
			planes = append(planes, Plane{Axis: a, Offset: s.Offset})
		}
	}
	return planes
}

func (e *Engine) changed() {
	e.version++
	if len(e.listeners) == 0 {
		return
	}
	planes := e.Active()
	for _, fn := range e.listeners {
		fn(planes)
	}
}
