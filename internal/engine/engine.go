// Package engine is the browser side of the editor. It keeps a mirror of
// the session document, runs the gesture surface against it and hands every
// commit to a callback that posts it to the server as an operation.
package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/geometry"
	"github.com/dohnagen/sheetgen/internal/gesture"
	"github.com/dohnagen/sheetgen/internal/store"
)

// Engine owns the local document mirror and the gesture surface.
// Commands take and return JSON strings so the wasm bridge stays thin.
type Engine struct {
	mirror  *store.Store
	surface *gesture.Surface
	commits CommitFunc
	log     *slog.Logger
}

// NewEngine creates an engine on the default document. commit may be nil.
func NewEngine(commit CommitFunc, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{mirror: store.New(nil), commits: commit, log: log}
	e.surface = gesture.NewSurface(e.targets, log)
	return e
}

// SetCommitHandler replaces the commit callback.
func (e *Engine) SetCommitHandler(fn CommitFunc) { e.commits = fn }

// --- Commands (frontend → engine) ---

// LoadDocument replaces the mirror with a document from JSON and drops all
// gesture state, as when a session is opened or a preset is loaded.
func (e *Engine) LoadDocument(jsonData string) error {
	doc, err := document.DecodeStored([]byte(jsonData))
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	e.surface.Reset()
	e.mirror.Replace(doc)
	return nil
}

// UpdateDocument applies a document pushed by the change feed. A gesture in
// progress keeps its transient state; controllers for images that no longer
// exist are dropped.
func (e *Engine) UpdateDocument(jsonData string) error {
	doc, err := document.DecodeStored([]byte(jsonData))
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	before := e.mirror.Snapshot()
	e.mirror.Replace(doc)
	for _, list := range []document.ListID{document.ListExhibition, document.ListMain} {
		if n := len(*doc.List(list)); n < len(*before.List(list)) {
			e.surface.ImageRemoved(list, n)
		}
	}
	return nil
}

// HandleEvent runs one serialised gesture event and returns the JSON
// result. Errors come back as {"error": "..."}.
func (e *Engine) HandleEvent(jsonData string) string {
	var ev gesture.Event
	if err := json.Unmarshal([]byte(jsonData), &ev); err != nil {
		return errorJSON(fmt.Errorf("decode event: %w", err))
	}
	res, err := e.surface.Handle(ev)
	if err != nil {
		return errorJSON(err)
	}
	return toJSON(res)
}

// SetViewportWidth recomputes the preview scale and returns it.
func (e *Engine) SetViewportWidth(width float64) float64 {
	return e.surface.SetViewportWidth(width)
}

// Reset drops every controller without touching the mirror.
func (e *Engine) Reset() { e.surface.Reset() }

// --- Queries (frontend ← engine) ---

// Display returns the transform to draw the element named by keyJSON with.
func (e *Engine) Display(keyJSON string) string {
	var k gesture.Key
	if err := json.Unmarshal([]byte(keyJSON), &k); err != nil {
		return errorJSON(fmt.Errorf("decode key: %w", err))
	}
	t, err := e.surface.Display(k)
	if err != nil {
		return errorJSON(err)
	}
	return toJSON(t)
}

// Dragging reports the key being dragged as JSON, or "null".
func (e *Engine) Dragging() string {
	k, ok := e.surface.Active()
	if !ok {
		return "null"
	}
	return toJSON(k)
}

func (e *Engine) GetDocument() string {
	return toJSON(e.mirror.Snapshot())
}

func (e *Engine) GetScaleFactor() float64 {
	return e.surface.ScaleFactor()
}

// PreviewScale is geometry.PreviewScale for callers that only need the
// number.
func PreviewScale(viewportWidth float64) float64 {
	return geometry.PreviewScale(viewportWidth)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return errorJSON(err)
	}
	return string(b)
}

func errorJSON(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}
