// Package controls maps key names to viewer actions.
package controls

import (
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/clip"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/viewer"
)

// Action is one keyboard command.
type Action int

const (
	None Action = iota
	ToggleWireframe
	ToggleAutoRotate
	SlowerRotation
	FasterRotation
	CycleColor
	OpacityDown
	OpacityUp
	SelectX
	SelectY
	SelectZ
	ClipUp
	ClipDown
	ResetClip
	Refit
	ToggleBounds
	Quit
)

var actionNames = [...]string{
	None:             "none",
	ToggleWireframe:  "toggle-wireframe",
	ToggleAutoRotate: "toggle-auto-rotate",
	SlowerRotation:   "slower-rotation",
	FasterRotation:   "faster-rotation",
	CycleColor:       "cycle-color",
	OpacityDown:      "opacity-down",
	OpacityUp:        "opacity-up",
	SelectX:          "select-x",
	SelectY:          "select-y",
	SelectZ:          "select-z",
	ClipUp:           "clip-up",
	ClipDown:         "clip-down",
	ResetClip:        "reset-clip",
	Refit:            "refit",
	ToggleBounds:     "toggle-bounds",
	Quit:             "quit",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Step sizes for the incremental actions.
const (
	OpacityStep     float32 = 0.05
	SpeedStep       float32 = 0.25
	DefaultClipStep float32 = 0.25
)

// bindings uses SDL key names, lower-cased.
var bindings = map[string]Action{
	"w":      ToggleWireframe,
	"r":      ToggleAutoRotate,
	"[":      SlowerRotation,
	"]":      FasterRotation,
	"c":      CycleColor,
	"-":      OpacityDown,
	"=":      OpacityUp,
	"x":      SelectX,
	"y":      SelectY,
	"z":      SelectZ,
	"up":     ClipUp,
	"down":   ClipDown,
	"0":      ResetClip,
	"f":      Refit,
	"b":      ToggleBounds,
	"escape": Quit,
}

// ForKey returns the action bound to a key name, or None.
func ForKey(name string) Action {
	return bindings[name]
}

// Controller applies actions to a viewer. It remembers which clip axis the
// arrow keys move.
type Controller struct {
	v        *viewer.Viewer
	log      *zap.Logger
	axis     clip.Axis
	clipStep float32
}

// New creates a controller for v. A non-positive clipStep selects
// DefaultClipStep.
func New(v *viewer.Viewer, clipStep float32) *Controller {
	if clipStep <= 0 {
		clipStep = DefaultClipStep
	}
	return &Controller{
		v:        v,
		log:      logger.Named("controls"),
		axis:     clip.X,
		clipStep: clipStep,
	}
}

// Axis returns the selected clip axis.
func (c *Controller) Axis() clip.Axis {
	return c.axis
}

// Key applies the action bound to a key name. It reports whether the key
// asks to quit.
func (c *Controller) Key(name string) bool {
	return c.Apply(ForKey(name))
}

// Apply performs a and reports whether it asks to quit.
func (c *Controller) Apply(a Action) bool {
	v := c.v
	switch a {
	case ToggleWireframe:
		c.log.Debug("wireframe", zap.Bool("on", v.ToggleWireframe()))
	case ToggleAutoRotate:
		c.log.Debug("auto-rotate", zap.Bool("on", v.ToggleAutoRotate()))
	case SlowerRotation:
		v.SetRotationSpeed(v.RotationSpeed() - SpeedStep)
	case FasterRotation:
		v.SetRotationSpeed(v.RotationSpeed() + SpeedStep)
	case CycleColor:
		c.log.Debug("color", zap.String("hex", v.CycleColor().Hex()))
	case OpacityDown:
		v.NudgeOpacity(-OpacityStep)
	case OpacityUp:
		v.NudgeOpacity(OpacityStep)
	case SelectX, SelectY, SelectZ:
		c.axis = clip.Axes[a-SelectX]
		on := v.ToggleClip(c.axis)
		c.log.Debug("clip axis", zap.Stringer("axis", c.axis), zap.Bool("enabled", on))
	case ClipUp:
		v.NudgeClip(c.axis, c.clipStep)
	case ClipDown:
		v.NudgeClip(c.axis, -c.clipStep)
	case ResetClip:
		v.ResetClip()
	case Refit:
		v.Refit()
	case ToggleBounds:
		v.ToggleBounds()
	case Quit:
		return true
	}
	return false
}

// Repeatable reports whether holding the key down repeats the action.
// Toggles fire once per press.
func (a Action) Repeatable() bool {
	switch a {
	case ClipUp, ClipDown, OpacityUp, OpacityDown, SlowerRotation, FasterRotation:
		return true
	}
	return false
}
