package store

import (
	"fmt"

	"github.com/dohnagen/sheetgen/internal/document"
)

// ElementTransform returns the committed transform of a header element.
func (s *Store) ElementTransform(id document.ElementID) (document.Transform2D, error) {
	if !id.Valid() {
		return document.Transform2D{}, fmt.Errorf("read transform %q: %w", id, ErrUnknownElement)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ElementTransform(id), nil
}

// SetElementTransform replaces the transform of one header element. Scale
// bounds are the caller's responsibility.
func (s *Store) SetElementTransform(id document.ElementID, t document.Transform2D) error {
	if !id.Valid() {
		return fmt.Errorf("set transform %q: %w", id, ErrUnknownElement)
	}
	return s.mutate(Change{Kind: ChangeTransform, Element: id}, func(d *document.CommissionDocument) (bool, error) {
		if d.ElementTransform(id) == t {
			return false, nil
		}
		d.PutElementTransform(id, t)
		return true, nil
	})
}

// TransformPatch is a partial Transform2D. Nil fields are left alone.
type TransformPatch struct {
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Scale *float64 `json:"scale,omitempty"`
}

// Full returns a patch that sets every field of t.
func Full(t document.Transform2D) TransformPatch {
	return TransformPatch{X: &t.X, Y: &t.Y, Scale: &t.Scale}
}

// Apply returns t with the patch's fields written over it.
func (p TransformPatch) Apply(t document.Transform2D) document.Transform2D {
	if p.X != nil {
		t.X = *p.X
	}
	if p.Y != nil {
		t.Y = *p.Y
	}
	if p.Scale != nil {
		t.Scale = *p.Scale
	}
	return t
}

func listAt(d *document.CommissionDocument, list document.ListID, index int) (*document.ImageItem, error) {
	l := d.List(list)
	if l == nil {
		return nil, fmt.Errorf("image list %q: %w", list, ErrUnknownList)
	}
	if index < 0 || index >= len(*l) {
		return nil, fmt.Errorf("image %s[%d] of %d: %w", list, index, len(*l), ErrIndexOutOfRange)
	}
	return &(*l)[index], nil
}

// ImageTransform returns the committed crop transform of one portfolio image.
func (s *Store) ImageTransform(list document.ListID, index int) (document.Transform2D, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, err := listAt(s.doc, list, index)
	if err != nil {
		return document.Transform2D{}, err
	}
	return item.Transform, nil
}

// SetImageTransform patches the crop transform of the image at index.
func (s *Store) SetImageTransform(list document.ListID, index int, patch TransformPatch) error {
	return s.mutate(Change{Kind: ChangePortfolio, List: list, Index: index}, func(d *document.CommissionDocument) (bool, error) {
		item, err := listAt(d, list, index)
		if err != nil {
			return false, err
		}
		next := patch.Apply(item.Transform)
		if next == item.Transform {
			return false, nil
		}
		item.Transform = next
		return true, nil
	})
}

// AppendImage adds item to the end of list. Item ids stay unique within
// a list.
func (s *Store) AppendImage(list document.ListID, item document.ImageItem) error {
	return s.mutate(Change{Kind: ChangePortfolio, List: list, ItemID: item.ID}, func(d *document.CommissionDocument) (bool, error) {
		l := d.List(list)
		if l == nil {
			return false, fmt.Errorf("append to %q: %w", list, ErrUnknownList)
		}
		for _, existing := range *l {
			if existing.ID == item.ID {
				return false, fmt.Errorf("append %q to %s: %w", item.ID, list, ErrDuplicateID)
			}
		}
		*l = append(*l, item)
		return true, nil
	})
}

// RemoveImage deletes the image at index. Later images shift down by one.
func (s *Store) RemoveImage(list document.ListID, index int) (document.ImageItem, error) {
	var removed document.ImageItem
	err := s.mutate(Change{Kind: ChangePortfolio, List: list, Index: index}, func(d *document.CommissionDocument) (bool, error) {
		item, err := listAt(d, list, index)
		if err != nil {
			return false, err
		}
		removed = *item
		l := d.List(list)
		*l = append((*l)[:index:index], (*l)[index+1:]...)
		return true, nil
	})
	return removed, err
}
