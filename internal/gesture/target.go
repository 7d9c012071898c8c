package gesture

import (
	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/geometry"
	"github.com/dohnagen/sheetgen/internal/store"
)

// Target is where a controller reads its committed transform from and
// writes its final transform to.
type Target interface {
	Committed() (document.Transform2D, error)
	Commit(patch store.TransformPatch) error
	Bounds() geometry.ScaleBounds
}

// ElementStore is the part of the document store that header element
// targets need.
type ElementStore interface {
	ElementTransform(id document.ElementID) (document.Transform2D, error)
	SetElementTransform(id document.ElementID, t document.Transform2D) error
}

// ImageStore is the part of the document store that portfolio image
// targets need.
type ImageStore interface {
	ImageTransform(list document.ListID, index int) (document.Transform2D, error)
	SetImageTransform(list document.ListID, index int, patch store.TransformPatch) error
}

// ElementTarget binds a controller to a header element.
type ElementTarget struct {
	Store ElementStore
	ID    document.ElementID
}

func (t ElementTarget) Committed() (document.Transform2D, error) {
	return t.Store.ElementTransform(t.ID)
}

func (t ElementTarget) Commit(patch store.TransformPatch) error {
	cur, err := t.Store.ElementTransform(t.ID)
	if err != nil {
		return err
	}
	return t.Store.SetElementTransform(t.ID, patch.Apply(cur))
}

func (t ElementTarget) Bounds() geometry.ScaleBounds { return t.ID.ScaleBounds() }

// ImageTarget binds a controller to one portfolio image by position.
type ImageTarget struct {
	Store ImageStore
	List  document.ListID
	Index int
}

func (t ImageTarget) Committed() (document.Transform2D, error) {
	return t.Store.ImageTransform(t.List, t.Index)
}

func (t ImageTarget) Commit(patch store.TransformPatch) error {
	return t.Store.SetImageTransform(t.List, t.Index, patch)
}

func (t ImageTarget) Bounds() geometry.ScaleBounds { return t.List.ScaleBounds() }
