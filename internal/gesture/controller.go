package gesture

import (
	"log/slog"
	"math"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/geometry"
	"github.com/dohnagen/sheetgen/internal/store"
)

// State is the phase of a controller's gesture cycle.
type State int

const (
	Idle State = iota
	Dragging
	Committing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	}
	return "idle"
}

// Outcome describes how a drag ended.
type Outcome struct {
	Transform document.Transform2D
	// Click is true when the pointer never left the dead zone.
	Click bool
}

// Controller owns the transient transform of one element while it is being
// manipulated. It is not safe for concurrent use; a Surface serialises
// access.
type Controller struct {
	target   Target
	scale    func() float64
	deadZone float64
	log      *slog.Logger

	state     State
	start     geometry.Point
	hasStart  bool
	initial   document.Transform2D
	transient document.Transform2D
	buffered  bool
	sliding   bool
	travel    float64
}

// NewController returns an idle controller for target. scale reports the
// current preview scale factor and must stay positive.
func NewController(target Target, scale func() float64, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		target:   target,
		scale:    scale,
		deadZone: DefaultDragDeadZone,
		log:      log,
	}
}

func (c *Controller) State() State { return c.state }

// SetDeadZone sets how far in screen pixels a press may move and still be
// reported as a click.
func (c *Controller) SetDeadZone(px float64) { c.deadZone = px }

// Display returns the transform the element should be drawn with: the
// transient copy while a gesture is buffering, the committed one otherwise.
func (c *Controller) Display() document.Transform2D {
	if c.buffered {
		return c.transient
	}
	t, err := c.target.Committed()
	if err != nil {
		return document.IdentityTransform()
	}
	return t
}

// PointerDown starts a drag. Only the primary mouse button and the first
// touch start one; a press while already dragging is ignored.
func (c *Controller) PointerDown(ev PointerEvent) Disposition {
	if ev.Kind == Mouse && ev.Button != PrimaryButton {
		return Disposition{}
	}
	pos, ok := ev.Position()
	if !ok {
		return Disposition{}
	}
	if c.state == Dragging {
		return Disposition{StopPropagation: true}
	}

	base := c.transient
	if !c.buffered {
		committed, err := c.target.Committed()
		if err != nil {
			c.log.Warn("drag start on missing element", "error", err)
			return Disposition{StopPropagation: true}
		}
		base = committed
	}

	c.state = Dragging
	c.start = pos
	c.hasStart = true
	c.initial = base
	c.transient = base
	c.buffered = true
	c.travel = 0
	return Disposition{StopPropagation: true}
}

// PointerMove updates the transient position. It never touches the
// document. Moves without a recorded start are ignored.
func (c *Controller) PointerMove(ev PointerEvent) Disposition {
	if c.state != Dragging || !c.hasStart {
		return Disposition{}
	}
	pos, ok := ev.Position()
	if !ok {
		return Disposition{}
	}

	d := pos.Sub(c.start)
	c.travel = math.Max(c.travel, math.Hypot(d.X, d.Y))

	next := c.initial
	next.Scale = c.transient.Scale
	// A zero delta leaves the start position untouched bit for bit.
	if d.X != 0 || d.Y != 0 {
		mx, my := geometry.ScreenDeltaToModelDelta(d.X, d.Y, c.scale())
		next.X += mx
		next.Y += my
	}
	c.transient = next

	return Disposition{PreventDefault: ev.Kind == Touch}
}

// PointerUp ends the drag with exactly one commit of the transient
// position. Pointer cancel and touch end go through here too. It is a
// no-op when no drag is active.
func (c *Controller) PointerUp() (Outcome, bool, error) {
	if c.state != Dragging {
		return Outcome{}, false, nil
	}
	final := c.transient
	out := Outcome{Transform: final, Click: c.travel <= c.deadZone}

	c.state = Committing
	err := c.target.Commit(store.TransformPatch{X: &final.X, Y: &final.Y})
	c.state = Idle
	c.hasStart = false
	c.buffered = c.sliding
	if err != nil {
		c.log.Warn("drag commit rejected", "error", err)
		return out, true, err
	}
	return out, true, nil
}

// Abort drops an active drag or slider adjustment without committing.
func (c *Controller) Abort() bool {
	if c.state != Dragging && !c.sliding {
		return false
	}
	c.state = Idle
	c.hasStart = false
	c.sliding = false
	c.buffered = false
	return true
}

// Wheel steps the scale by one increment in direction (+1 grows, -1
// shrinks) and commits immediately.
func (c *Controller) Wheel(direction int) (float64, error) {
	if direction == 0 {
		return c.Display().Scale, nil
	}
	bounds := c.target.Bounds()
	next := bounds.Stepped(c.Display().Scale, sign(direction))
	if c.buffered {
		c.transient.Scale = next
	}
	if err := c.target.Commit(store.TransformPatch{Scale: &next}); err != nil {
		c.log.Warn("wheel commit rejected", "error", err)
		return next, err
	}
	return next, nil
}

// SliderInput buffers a continuous scale adjustment. The value is clamped
// to the target's bounds.
func (c *Controller) SliderInput(v float64) float64 {
	v = c.target.Bounds().Clamp(v)
	if !c.buffered {
		c.transient = c.Display()
		c.buffered = true
	}
	c.sliding = true
	c.transient.Scale = v
	return v
}

// SliderRelease commits the buffered slider value once.
func (c *Controller) SliderRelease() (bool, error) {
	if !c.sliding {
		return false, nil
	}
	v := c.transient.Scale
	c.sliding = false
	c.buffered = c.state == Dragging
	if err := c.target.Commit(store.TransformPatch{Scale: &v}); err != nil {
		c.log.Warn("slider commit rejected", "error", err)
		return true, err
	}
	return true, nil
}

func sign(n int) int {
	if n > 0 {
		return 1
	}
	return -1
}
