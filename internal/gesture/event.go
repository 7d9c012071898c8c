package gesture

import (
	"errors"
	"fmt"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/geometry"
)

var ErrUnknownEvent = errors.New("unknown gesture event")

// Event kinds accepted by Surface.Handle.
const (
	EventDown          = "down"
	EventMove          = "move"
	EventUp            = "up"
	EventCancel        = "cancel"
	EventAbort         = "abort"
	EventWheel         = "wheel"
	EventSlider        = "slider"
	EventSliderRelease = "sliderRelease"
	EventViewport      = "viewport"
)

// Event is a serialised pointer, wheel, slider or viewport event, as sent
// by a browser bridge.
type Event struct {
	Kind          string           `json:"kind"`
	Key           Key              `json:"key"`
	Pointer       string           `json:"pointer,omitempty"`
	Button        int              `json:"button,omitempty"`
	Points        []geometry.Point `json:"points,omitempty"`
	DeltaY        float64          `json:"deltaY,omitempty"`
	Value         float64          `json:"value,omitempty"`
	ViewportWidth float64          `json:"viewportWidth,omitempty"`
}

func (ev Event) pointer() PointerEvent {
	kind := Mouse
	if ev.Pointer == Touch.String() {
		kind = Touch
	}
	return PointerEvent{Kind: kind, Button: ev.Button, Points: ev.Points}
}

// Result tells the caller how to draw the element and what to do with the
// originating DOM event.
type Result struct {
	Disposition Disposition           `json:"disposition"`
	Display     *document.Transform2D `json:"display,omitempty"`
	Committed   bool                  `json:"committed"`
	Click       bool                  `json:"click,omitempty"`
	Scale       float64               `json:"scale,omitempty"`
}

// Handle dispatches ev to the matching Surface method.
func (s *Surface) Handle(ev Event) (Result, error) {
	var res Result
	switch ev.Kind {
	case EventDown:
		d, err := s.PointerDown(ev.Key, ev.pointer())
		if err != nil {
			return res, err
		}
		res.Disposition = d
		return res, s.fillDisplay(ev.Key, &res)
	case EventMove:
		res.Disposition = s.PointerMove(ev.pointer())
		if k, ok := s.Active(); ok {
			return res, s.fillDisplay(k, &res)
		}
		return res, nil
	case EventUp, EventCancel:
		_, out, ok, err := s.PointerUp()
		if err != nil {
			return res, err
		}
		if ok {
			t := out.Transform
			res.Committed, res.Click, res.Display = true, out.Click, &t
		}
		return res, nil
	case EventAbort:
		k, active := s.Active()
		s.Abort()
		if active {
			return res, s.fillDisplay(k, &res)
		}
		return res, nil
	case EventWheel:
		v, d, err := s.Wheel(ev.Key, ev.DeltaY)
		if err != nil {
			return res, err
		}
		res.Disposition, res.Scale, res.Committed = d, v, true
		return res, s.fillDisplay(ev.Key, &res)
	case EventSlider:
		v, d, err := s.SliderInput(ev.Key, ev.Value)
		if err != nil {
			return res, err
		}
		res.Disposition, res.Scale = d, v
		return res, s.fillDisplay(ev.Key, &res)
	case EventSliderRelease:
		ok, err := s.SliderRelease(ev.Key)
		if err != nil {
			return res, err
		}
		res.Committed = ok
		return res, s.fillDisplay(ev.Key, &res)
	case EventViewport:
		res.Scale = s.SetViewportWidth(ev.ViewportWidth)
		return res, nil
	}
	return res, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
}

func (s *Surface) fillDisplay(k Key, res *Result) error {
	t, err := s.Display(k)
	if err != nil {
		return err
	}
	res.Display = &t
	return nil
}
