package engine

import (
	"encoding/json"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/gesture"
	"github.com/dohnagen/sheetgen/internal/store"
)

// CommitFunc receives one operation envelope, ready to POST to
// /api/sessions/{id}/ops.
type CommitFunc func(op []byte)

// TransformOp is the wire form of a transform commit. It matches the
// server's element.transform and image.transform operations.
type TransformOp struct {
	Type      string               `json:"type"`
	Element   document.ElementID   `json:"element,omitempty"`
	List      document.ListID      `json:"list,omitempty"`
	Index     *int                 `json:"index,omitempty"`
	Transform store.TransformPatch `json:"transform"`
}

const (
	opElementTransform = "element.transform"
	opImageTransform   = "image.transform"
)

// NewTransformOp builds the operation for a commit of patch on k.
func NewTransformOp(k gesture.Key, patch store.TransformPatch) TransformOp {
	if k.IsImage() {
		idx := k.Index
		return TransformOp{Type: opImageTransform, List: k.List, Index: &idx, Transform: patch}
	}
	return TransformOp{Type: opElementTransform, Element: k.Element, Transform: patch}
}

// forwardingTarget commits to the local mirror and then reports the commit
// so the server store sees the same single write.
type forwardingTarget struct {
	gesture.Target
	key    gesture.Key
	engine *Engine
}

func (t forwardingTarget) Commit(patch store.TransformPatch) error {
	if err := t.Target.Commit(patch); err != nil {
		return err
	}
	t.engine.forward(t.key, patch)
	return nil
}

func (e *Engine) targets(k gesture.Key) (gesture.Target, error) {
	inner, err := gesture.StoreTargets(e.mirror)(k)
	if err != nil {
		return nil, err
	}
	return forwardingTarget{Target: inner, key: k, engine: e}, nil
}

func (e *Engine) forward(k gesture.Key, patch store.TransformPatch) {
	if e.commits == nil {
		return
	}
	b, err := json.Marshal(NewTransformOp(k, patch))
	if err != nil {
		e.log.Warn("encode commit", "element", k.String(), "error", err)
		return
	}
	e.commits(b)
}
