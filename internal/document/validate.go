package document

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/dohnagen/sheetgen/internal/typeid"
)

var ErrInvalid = errors.New("invalid document")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag name or nil func.
	_ = v.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
		return Theme(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("element", func(fl validator.FieldLevel) bool {
		return ElementID(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks the structural invariants of a document that came from
// outside the process: known theme and element ids, unique item ids,
// positive scales and an opacity in [0,1].
func (d *CommissionDocument) Validate() error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalid, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Normalize repairs the soft constraints the editor UI normally enforces:
// spacing ranges, scale bounds, missing item ids and nil collections. It is
// applied to imported documents before Validate.
func (d *CommissionDocument) Normalize() {
	d.Layout.HeaderSpacing = clampSpacing(d.Layout.HeaderSpacing)
	d.Layout.PortfolioSpacing = clampSpacing(d.Layout.PortfolioSpacing)
	d.Layout.PricingSpacing = clampSpacing(d.Layout.PricingSpacing)
	d.Layout.NoticeSpacing = clampSpacing(d.Layout.NoticeSpacing)

	if math.IsNaN(d.Contact.BackgroundOpacity) {
		d.Contact.BackgroundOpacity = 0.5
	}
	d.Contact.BackgroundOpacity = math.Max(0, math.Min(1, d.Contact.BackgroundOpacity))

	if d.Identity.Tags == nil {
		d.Identity.Tags = []string{}
	}
	if d.Pricing == nil {
		d.Pricing = []PricingItem{}
	}
	for i := range d.Pricing {
		if d.Pricing[i].ID == "" {
			d.Pricing[i].ID = typeid.NewPricingID()
		}
	}
	for _, l := range []ListID{ListExhibition, ListMain} {
		list := d.List(l)
		if *list == nil {
			*list = []ImageItem{}
		}
		bounds := l.ScaleBounds()
		for i := range *list {
			item := &(*list)[i]
			if item.ID == "" {
				item.ID = typeid.NewImageID()
			}
			item.Transform.Scale = normalizeScale(item.Transform.Scale, bounds.Min, bounds.Max)
		}
	}

	if d.ElementTransforms == nil {
		d.ElementTransforms = make(map[ElementID]Transform2D, len(Elements))
	}
	for _, e := range Elements {
		t, ok := d.ElementTransforms[e]
		if e == ElementContactBg {
			t, ok = d.Contact.BackgroundTransform, true
		}
		if !ok {
			t = IdentityTransform()
		}
		b := e.ScaleBounds()
		t.Scale = normalizeScale(t.Scale, b.Min, b.Max)
		d.PutElementTransform(e, t)
	}
}

func clampSpacing(v int) int {
	return max(SpacingMin, min(SpacingMax, v))
}

func normalizeScale(s, lo, hi float64) float64 {
	if s <= 0 || math.IsNaN(s) {
		return 1
	}
	return math.Max(lo, math.Min(hi, s))
}
