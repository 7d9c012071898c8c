package gesture

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/geometry"
	"github.com/dohnagen/sheetgen/internal/store"
)

var (
	ErrNotZoomable  = errors.New("element does not take scale input")
	ErrInvalidScale = errors.New("scale factor must be positive")
)

// Key identifies one manipulable element: a header element by id, or a
// portfolio image by list and position.
type Key struct {
	Element document.ElementID `json:"element,omitempty"`
	List    document.ListID    `json:"list,omitempty"`
	Index   int                `json:"index,omitempty"`
}

func ElementKey(id document.ElementID) Key { return Key{Element: id} }

func ImageKey(list document.ListID, index int) Key { return Key{List: list, Index: index} }

func (k Key) IsImage() bool { return k.List != "" }

func (k Key) String() string {
	if k.IsImage() {
		return fmt.Sprintf("%s[%d]", k.List, k.Index)
	}
	return string(k.Element)
}

// TargetFactory resolves a key to the target its controller commits to.
type TargetFactory func(Key) (Target, error)

// StoreTargets resolves keys against a document store.
func StoreTargets(s *store.Store) TargetFactory {
	return func(k Key) (Target, error) {
		if k.IsImage() {
			if !k.List.Valid() {
				return nil, fmt.Errorf("target %s: %w", k, store.ErrUnknownList)
			}
			return ImageTarget{Store: s, List: k.List, Index: k.Index}, nil
		}
		if !k.Element.Valid() {
			return nil, fmt.Errorf("target %s: %w", k, store.ErrUnknownElement)
		}
		return ElementTarget{Store: s, ID: k.Element}, nil
	}
}

// Surface is the preview as a whole: it holds the preview scale factor,
// one controller per element, and captures the pointer for whichever
// controller started the current drag so that moves and releases anywhere
// on the page reach it.
type Surface struct {
	mu          sync.Mutex
	newTarget   TargetFactory
	scaleFactor float64
	deadZone    float64
	controllers map[Key]*Controller
	active      *Controller
	activeKey   Key
	log         *slog.Logger
}

func NewSurface(newTarget TargetFactory, log *slog.Logger) *Surface {
	if log == nil {
		log = slog.Default()
	}
	return &Surface{
		newTarget:   newTarget,
		scaleFactor: 1,
		deadZone:    DefaultDragDeadZone,
		controllers: make(map[Key]*Controller),
		log:         log,
	}
}

// SetViewportWidth recomputes the scale factor from the viewport width and
// returns it.
func (s *Surface) SetViewportWidth(width float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scaleFactor = geometry.PreviewScale(width)
	return s.scaleFactor
}

func (s *Surface) SetScaleFactor(f float64) error {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidScale, f)
	}
	s.mu.Lock()
	s.scaleFactor = f
	s.mu.Unlock()
	return nil
}

func (s *Surface) ScaleFactor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scaleFactor
}

// currentScale is handed to controllers; it runs with s.mu already held.
func (s *Surface) currentScale() float64 { return s.scaleFactor }

func (s *Surface) controller(k Key) (*Controller, error) {
	if c, ok := s.controllers[k]; ok {
		return c, nil
	}
	t, err := s.newTarget(k)
	if err != nil {
		return nil, err
	}
	c := NewController(t, s.currentScale, s.log.With("element", k.String()))
	c.SetDeadZone(s.deadZone)
	s.controllers[k] = c
	return c, nil
}

// Active returns the key of the element being dragged, if any.
func (s *Surface) Active() (Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeKey, s.active != nil
}

// PointerDown routes a press on element k. While another element is being
// dragged, presses elsewhere are ignored so an ancestor never starts a
// second gesture.
func (s *Surface) PointerDown(k Key, ev PointerEvent) (Disposition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && s.activeKey != k {
		return Disposition{}, nil
	}
	c, err := s.controller(k)
	if err != nil {
		s.log.Warn("press on unknown element", "element", k.String(), "error", err)
		return Disposition{}, err
	}
	d := c.PointerDown(ev)
	if c.State() == Dragging {
		s.active = c
		s.activeKey = k
	}
	return d, nil
}

// PointerMove forwards a page-level move to the captured controller.
func (s *Surface) PointerMove(ev PointerEvent) Disposition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Disposition{}
	}
	return s.active.PointerMove(ev)
}

// PointerUp ends the captured drag. Pointer cancel is handled the same way.
func (s *Surface) PointerUp() (Key, Outcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Key{}, Outcome{}, false, nil
	}
	c, k := s.active, s.activeKey
	s.active, s.activeKey = nil, Key{}
	out, ok, err := c.PointerUp()
	return k, out, ok, err
}

// Abort cancels the captured drag without committing.
func (s *Surface) Abort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return false
	}
	c := s.active
	s.active, s.activeKey = nil, Key{}
	return c.Abort()
}

// Wheel applies one wheel notch to a zoomable header element. Scrolling
// down (deltaY > 0) shrinks.
func (s *Surface) Wheel(k Key, deltaY float64) (float64, Disposition, error) {
	if k.IsImage() || !k.Element.Zoomable() {
		return 0, Disposition{}, fmt.Errorf("wheel on %s: %w", k, ErrNotZoomable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.controller(k)
	if err != nil {
		return 0, Disposition{}, err
	}
	handled := Disposition{StopPropagation: true, PreventDefault: true}
	switch {
	case deltaY > 0:
		v, err := c.Wheel(-1)
		return v, handled, err
	case deltaY < 0:
		v, err := c.Wheel(1)
		return v, handled, err
	}
	return c.Display().Scale, handled, nil
}

func sliderAllowed(k Key) bool {
	return k.IsImage() || k.Element.Zoomable()
}

// SliderInput buffers a slider value for k and returns the clamped value.
func (s *Surface) SliderInput(k Key, v float64) (float64, Disposition, error) {
	if !sliderAllowed(k) {
		return 0, Disposition{}, fmt.Errorf("slider on %s: %w", k, ErrNotZoomable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.controller(k)
	if err != nil {
		return 0, Disposition{}, err
	}
	return c.SliderInput(v), Disposition{StopPropagation: true}, nil
}

// SliderRelease commits the buffered slider value for k.
func (s *Surface) SliderRelease(k Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[k]
	if !ok {
		return false, nil
	}
	return c.SliderRelease()
}

// Display returns the transform k should currently be drawn with.
func (s *Surface) Display(k Key) (document.Transform2D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.controller(k)
	if err != nil {
		return document.Transform2D{}, err
	}
	return c.Display(), nil
}

// ImageRemoved drops the controllers of list positions at or after index,
// which now refer to different images. A drag on one of them is aborted.
func (s *Surface) ImageRemoved(list document.ListID, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, c := range s.controllers {
		if k.List != list || k.Index < index {
			continue
		}
		if c == s.active {
			c.Abort()
			s.active, s.activeKey = nil, Key{}
		}
		delete(s.controllers, k)
	}
}

// Reset drops every controller, as when the whole document is replaced.
func (s *Surface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Abort()
	}
	s.active, s.activeKey = nil, Key{}
	clear(s.controllers)
}
