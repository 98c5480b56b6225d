// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/meshview/internal/controls"
)

// EventType is the kind of a processed event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventWindowExposed
	EventAction
	EventDrag
	EventWheel
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Action controls.Action
	Width  int
	Height int
	DX     int
	DY     int
	Wheel  int
}

// Input handles all input processing.
type Input struct {
	events   []Event
	dragging bool
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
	}
}

// keymap binds keys to viewer actions.
var keymap = map[sdl.Scancode]controls.Action{
	sdl.SCANCODE_UP:       controls.ActionRotateXNeg,
	sdl.SCANCODE_DOWN:     controls.ActionRotateXPos,
	sdl.SCANCODE_LEFT:     controls.ActionRotateYNeg,
	sdl.SCANCODE_RIGHT:    controls.ActionRotateYPos,
	sdl.SCANCODE_Q:        controls.ActionRotateZPos,
	sdl.SCANCODE_E:        controls.ActionRotateZNeg,
	sdl.SCANCODE_EQUALS:   controls.ActionScaleUp,
	sdl.SCANCODE_KP_PLUS:  controls.ActionScaleUp,
	sdl.SCANCODE_MINUS:    controls.ActionScaleDown,
	sdl.SCANCODE_KP_MINUS: controls.ActionScaleDown,
	sdl.SCANCODE_R:        controls.ActionResetRotation,
	sdl.SCANCODE_0:        controls.ActionResetScale,
	sdl.SCANCODE_F12:      controls.ActionCapture,
	sdl.SCANCODE_P:        controls.ActionCapture,
	sdl.SCANCODE_ESCAPE:   controls.ActionQuit,
}

// Update polls SDL events and converts them to viewer events.
// Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_SIZE_CHANGED:
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			case sdl.WINDOWEVENT_EXPOSED:
				i.events = append(i.events, Event{Type: EventWindowExposed})
			}

		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN {
				continue
			}
			if a, ok := keymap[e.Keysym.Scancode]; ok {
				i.events = append(i.events, Event{Type: EventAction, Action: a})
				if a == controls.ActionQuit {
					return true
				}
			}

		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_LEFT {
				i.dragging = e.Type == sdl.MOUSEBUTTONDOWN
			}

		case *sdl.MouseMotionEvent:
			if i.dragging {
				i.events = append(i.events, Event{
					Type: EventDrag,
					DX:   int(e.XRel),
					DY:   int(e.YRel),
				})
			}

		case *sdl.MouseWheelEvent:
			i.events = append(i.events, Event{Type: EventWheel, Wheel: int(e.Y)})
		}
	}

	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Dispatch forwards rotation, scale and drag events to c. Events it does not consume
// (quit, resize, capture) are returned for the caller.
func Dispatch(events []Event, c *controls.Controls) []Event {
	var rest []Event
	for _, e := range events {
		switch e.Type {
		case EventAction:
			if !c.Apply(e.Action) {
				rest = append(rest, e)
			}
		case EventDrag:
			c.Drag(e.DX, e.DY)
		case EventWheel:
			c.SetScalePercent(c.ScalePercent() + e.Wheel*controls.ScaleStep)
		default:
			rest = append(rest, e)
		}
	}
	return rest
}
