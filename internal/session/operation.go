package session

import (
	"errors"
	"fmt"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/store"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrMissingField     = errors.New("operation field missing")
)

// Operation types accepted by Apply.
const (
	OpSetText          = "text.set"
	OpSetTags          = "tags.set"
	OpSetTheme         = "theme.set"
	OpSetSpacing       = "spacing.set"
	OpSetOpacity       = "contact.opacity"
	OpToggleVisibility = "visibility.toggle"
	OpClearImage       = "image.clear"
	OpRemoveImage      = "image.remove"
	OpElementTransform = "element.transform"
	OpImageTransform   = "image.transform"
	OpAddPricing       = "pricing.add"
	OpUpdatePricing    = "pricing.update"
	OpRemovePricing    = "pricing.remove"
)

// Operation is one typed edit of a session document. Which fields are read
// depends on Type.
type Operation struct {
	Type      string                `json:"type"`
	Field     string                `json:"field,omitempty"`
	Value     *string               `json:"value,omitempty"`
	Tags      []string              `json:"tags,omitempty"`
	Theme     document.Theme        `json:"theme,omitempty"`
	Px        *int                  `json:"px,omitempty"`
	Opacity   *float64              `json:"opacity,omitempty"`
	Slot      document.ImageSlot    `json:"slot,omitempty"`
	Element   document.ElementID    `json:"element,omitempty"`
	List      document.ListID       `json:"list,omitempty"`
	Index     *int                  `json:"index,omitempty"`
	ItemID    string                `json:"itemId,omitempty"`
	Transform *store.TransformPatch `json:"transform,omitempty"`
}

// OpResult reports the document revision after an operation plus anything
// the operation produced.
type OpResult struct {
	Revision int64                 `json:"revision"`
	Visible  *bool                 `json:"visible,omitempty"`
	Item     *document.PricingItem `json:"item,omitempty"`
	Removed  *document.ImageItem   `json:"removed,omitempty"`
}

// Apply runs op against the session. On error the document is unchanged.
func (s *Session) Apply(op Operation) (OpResult, error) {
	var res OpResult
	err := s.apply(op, &res)
	res.Revision = s.Store.Revision()
	return res, err
}

func (s *Session) apply(op Operation, res *OpResult) error {
	st := s.Store
	switch op.Type {
	case OpSetText:
		if op.Value == nil {
			return missing(op, "value")
		}
		return st.SetText(store.TextField(op.Field), *op.Value)
	case OpSetTags:
		return st.SetTags(op.Tags)
	case OpSetTheme:
		return st.SetTheme(op.Theme)
	case OpSetSpacing:
		if op.Px == nil {
			return missing(op, "px")
		}
		return st.SetSpacing(store.SpacingField(op.Field), *op.Px)
	case OpSetOpacity:
		if op.Opacity == nil {
			return missing(op, "opacity")
		}
		return st.SetBackgroundOpacity(*op.Opacity)
	case OpToggleVisibility:
		v, err := st.ToggleVisibility(store.VisibilityField(op.Field))
		if err != nil {
			return err
		}
		res.Visible = &v
		return nil
	case OpClearImage:
		return st.ClearImage(op.Slot)
	case OpRemoveImage:
		if op.Index == nil {
			return missing(op, "index")
		}
		item, err := st.RemoveImage(op.List, *op.Index)
		if err != nil {
			return err
		}
		s.Surface.ImageRemoved(op.List, *op.Index)
		res.Removed = &item
		return nil
	case OpElementTransform:
		if op.Transform == nil {
			return missing(op, "transform")
		}
		current, err := st.ElementTransform(op.Element)
		if err != nil {
			return err
		}
		next := op.Transform.Apply(current)
		next.Scale = op.Element.ScaleBounds().Clamp(next.Scale)
		return st.SetElementTransform(op.Element, next)
	case OpImageTransform:
		if op.Transform == nil {
			return missing(op, "transform")
		}
		if op.Index == nil {
			return missing(op, "index")
		}
		patch := *op.Transform
		if patch.Scale != nil {
			v := op.List.ScaleBounds().Clamp(*patch.Scale)
			patch.Scale = &v
		}
		return st.SetImageTransform(op.List, *op.Index, patch)
	case OpAddPricing:
		item := st.AddPricingItem()
		res.Item = &item
		return nil
	case OpUpdatePricing:
		if op.Value == nil {
			return missing(op, "value")
		}
		return st.UpdatePricingField(op.ItemID, store.PricingField(op.Field), *op.Value)
	case OpRemovePricing:
		return st.RemovePricingItem(op.ItemID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
	}
}

func missing(op Operation, field string) error {
	return fmt.Errorf("%s: %w: %s", op.Type, ErrMissingField, field)
}
