package session

import "github.com/dohnagen/sheetgen/internal/gesture"

// GestureResult is gesture.Result plus the document revision after the
// event.
type GestureResult struct {
	gesture.Result
	Revision int64 `json:"revision"`
}

// HandleGesture feeds ev into the session's gesture surface. Clients that
// do not run the gesture engine themselves post their raw events here.
func (s *Session) HandleGesture(ev gesture.Event) (GestureResult, error) {
	res, err := s.Surface.Handle(ev)
	return GestureResult{Result: res, Revision: s.Store.Revision()}, err
}
