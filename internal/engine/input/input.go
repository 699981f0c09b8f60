// Package input handles SDL2 input events.
package input

import (
	"strings"

	"github.com/veandco/go-sdl2/sdl"
)

// Event types the viewer loop consumes.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventMouseWheel
	EventDrop
)

// Event represents a processed input event.
type Event struct {
	Type    EventType
	Key     sdl.Scancode
	KeyName string // lower-case SDL key name, e.g. "w", "up", "escape"
	Repeat  bool
	Width   int
	Height  int
	MouseX  int
	MouseY  int
	XRel    int
	YRel    int
	WheelY  float32
	Button  uint8
	Path    string
}

// Input handles all input processing.
type Input struct {
	events []Event
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
	}
}

// Update polls SDL events and converts them to viewer events.
// Returns true if the application should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			ev := Event{
				Key:     e.Keysym.Scancode,
				KeyName: KeyName(e.Keysym.Sym),
				Repeat:  e.Repeat != 0,
			}
			if e.Type == sdl.KEYDOWN {
				ev.Type = EventKeyDown
			} else {
				ev.Type = EventKeyUp
			}
			i.events = append(i.events, ev)

		case *sdl.MouseMotionEvent:
			i.events = append(i.events, Event{
				Type:   EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				XRel:   int(e.XRel),
				YRel:   int(e.YRel),
			})

		case *sdl.MouseButtonEvent:
			ev := Event{
				MouseX: int(e.X),
				MouseY: int(e.Y),
				Button: e.Button,
			}
			if e.Type == sdl.MOUSEBUTTONDOWN {
				ev.Type = EventMouseDown
			} else {
				ev.Type = EventMouseUp
			}
			i.events = append(i.events, ev)

		case *sdl.MouseWheelEvent:
			y := float32(e.Y)
			if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
				y = -y
			}
			i.events = append(i.events, Event{Type: EventMouseWheel, WheelY: y})

		case *sdl.DropEvent:
			if e.Type == sdl.DROPFILE && e.File != "" {
				i.events = append(i.events, Event{Type: EventDrop, Path: e.File})
			}
		}
	}

	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// KeyName returns the lower-case SDL name of a keycode.
func KeyName(k sdl.Keycode) string {
	return strings.ToLower(sdl.GetKeyName(k))
}
