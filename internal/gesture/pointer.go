// Package gesture turns raw pointer, wheel and slider input into committed
// element transforms. Movement is buffered per element and written to the
// document exactly once per gesture.
package gesture

import "github.com/dohnagen/sheetgen/internal/geometry"

// DefaultDragDeadZone is the screen distance in pixels a press may travel
// and still count as a click.
const DefaultDragDeadZone = 4.0

// PointerKind distinguishes mouse from touch input.
type PointerKind int

const (
	Mouse PointerKind = iota
	Touch
)

func (k PointerKind) String() string {
	if k == Touch {
		return "touch"
	}
	return "mouse"
}

// PrimaryButton is the mouse button that starts a drag.
const PrimaryButton = 0

// PointerEvent is one mouse or touch event in screen space. A mouse event
// carries a single point. A touch event carries every active touch in
// order; only the first is tracked.
type PointerEvent struct {
	Kind   PointerKind
	Button int
	Points []geometry.Point
}

// MouseEvent builds a single-point mouse event.
func MouseEvent(button int, x, y float64) PointerEvent {
	return PointerEvent{Kind: Mouse, Button: button, Points: []geometry.Point{{X: x, Y: y}}}
}

// TouchEvent builds a touch event from the active touch points.
func TouchEvent(points ...geometry.Point) PointerEvent {
	return PointerEvent{Kind: Touch, Points: points}
}

// Position returns the tracked pointer position, which is touches[0] for
// touch input.
func (e PointerEvent) Position() (geometry.Point, bool) {
	if len(e.Points) == 0 {
		return geometry.Point{}, false
	}
	return e.Points[0], true
}

// Disposition tells the event source what to do with the DOM event after
// it has been handled.
type Disposition struct {
	StopPropagation bool `json:"stopPropagation"`
	PreventDefault  bool `json:"preventDefault"`
}
