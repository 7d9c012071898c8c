package store

import (
	"fmt"
	"math"
	"slices"

	"github.com/dohnagen/sheetgen/internal/document"
)

// TextField names a free-text field of the document.
type TextField string

const (
	FieldName                TextField = "name"
	FieldSlogan              TextField = "slogan"
	FieldNotice              TextField = "notice"
	FieldContactInfo         TextField = "contactInfo"
	FieldFont                TextField = "font"
	FieldTitleColor          TextField = "titleColor"
	FieldTitleSecondaryColor TextField = "titleSecondaryColor"
	FieldTitleShadowColor    TextField = "titleShadowColor"
)

var textKinds = map[TextField]ChangeKind{
	FieldName:                ChangeIdentity,
	FieldSlogan:              ChangeIdentity,
	FieldNotice:              ChangeNotice,
	FieldContactInfo:         ChangeContact,
	FieldFont:                ChangeTypography,
	FieldTitleColor:          ChangeTypography,
	FieldTitleSecondaryColor: ChangeTypography,
	FieldTitleShadowColor:    ChangeTypography,
}

func textTarget(d *document.CommissionDocument, f TextField) *string {
	switch f {
	case FieldName:
		return &d.Identity.Name
	case FieldSlogan:
		return &d.Identity.Slogan
	case FieldNotice:
		return &d.Notice
	case FieldContactInfo:
		return &d.Contact.InfoText
	case FieldFont:
		return &d.Typography.Font
	case FieldTitleColor:
		return &d.Typography.Color
	case FieldTitleSecondaryColor:
		return &d.Typography.SecondaryColor
	case FieldTitleShadowColor:
		return &d.Typography.ShadowColor
	}
	return nil
}

// SetText replaces one free-text field.
func (s *Store) SetText(f TextField, value string) error {
	kind, ok := textKinds[f]
	if !ok {
		return fmt.Errorf("set text %q: %w", f, ErrUnknownField)
	}
	return s.mutate(Change{Kind: kind}, func(d *document.CommissionDocument) (bool, error) {
		p := textTarget(d, f)
		if *p == value {
			return false, nil
		}
		*p = value
		return true, nil
	})
}

func (s *Store) SetTags(tags []string) error {
	tags = slices.Clone(tags)
	if tags == nil {
		tags = []string{}
	}
	return s.mutate(Change{Kind: ChangeIdentity}, func(d *document.CommissionDocument) (bool, error) {
		if slices.Equal(d.Identity.Tags, tags) {
			return false, nil
		}
		d.Identity.Tags = tags
		return true, nil
	})
}

func (s *Store) SetTheme(t document.Theme) error {
	if !t.Valid() {
		return fmt.Errorf("set theme %q: %w", t, ErrInvalidValue)
	}
	return s.mutate(Change{Kind: ChangeTheme}, func(d *document.CommissionDocument) (bool, error) {
		if d.Theme == t {
			return false, nil
		}
		d.Theme = t
		return true, nil
	})
}

// SpacingField names one of the section spacing values.
type SpacingField string

const (
	SpacingHeader    SpacingField = "header"
	SpacingPortfolio SpacingField = "portfolio"
	SpacingPricing   SpacingField = "pricing"
	SpacingNotice    SpacingField = "notice"
)

// SetSpacing sets one section spacing, clamped to the layout range.
func (s *Store) SetSpacing(f SpacingField, px int) error {
	px = max(document.SpacingMin, min(document.SpacingMax, px))
	return s.mutate(Change{Kind: ChangeLayout}, func(d *document.CommissionDocument) (bool, error) {
		var p *int
		switch f {
		case SpacingHeader:
			p = &d.Layout.HeaderSpacing
		case SpacingPortfolio:
			p = &d.Layout.PortfolioSpacing
		case SpacingPricing:
			p = &d.Layout.PricingSpacing
		case SpacingNotice:
			p = &d.Layout.NoticeSpacing
		default:
			return false, fmt.Errorf("set spacing %q: %w", f, ErrUnknownField)
		}
		if *p == px {
			return false, nil
		}
		*p = px
		return true, nil
	})
}

func (s *Store) SetBackgroundOpacity(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("set background opacity: %w", ErrInvalidValue)
	}
	v = math.Max(0, math.Min(1, v))
	return s.mutate(Change{Kind: ChangeContact}, func(d *document.CommissionDocument) (bool, error) {
		if d.Contact.BackgroundOpacity == v {
			return false, nil
		}
		d.Contact.BackgroundOpacity = v
		return true, nil
	})
}

// SetImageRef stores ref in a single-image slot. An empty ref clears it.
func (s *Store) SetImageRef(slot document.ImageSlot, ref string) error {
	if !slot.Valid() {
		return fmt.Errorf("set image %q: %w", slot, ErrUnknownSlot)
	}
	kind := ChangeContact
	if slot == document.SlotAvatar {
		kind = ChangeIdentity
	}
	return s.mutate(Change{Kind: kind}, func(d *document.CommissionDocument) (bool, error) {
		p := d.ImageRef(slot)
		if *p == ref {
			return false, nil
		}
		*p = ref
		return true, nil
	})
}

// ClearImage empties a single-image slot.
func (s *Store) ClearImage(slot document.ImageSlot) error {
	return s.SetImageRef(slot, "")
}

// VisibilityField names one of the section toggles.
type VisibilityField string

const (
	ShowPortfolio   VisibilityField = "showPortfolio"
	ShowPricing     VisibilityField = "showPricing"
	ShowNotice      VisibilityField = "showNotice"
	ShowContact     VisibilityField = "showContact"
	ShowContactInfo VisibilityField = "showContactInfo"
)

func visibilityTarget(d *document.CommissionDocument, f VisibilityField) *bool {
	switch f {
	case ShowPortfolio:
		return &d.Visibility.ShowPortfolio
	case ShowPricing:
		return &d.Visibility.ShowPricing
	case ShowNotice:
		return &d.Visibility.ShowNotice
	case ShowContact:
		return &d.Visibility.ShowContact
	case ShowContactInfo:
		return &d.Visibility.ShowContactInfo
	}
	return nil
}

// ToggleVisibility flips one visibility flag and returns its new value.
func (s *Store) ToggleVisibility(f VisibilityField) (bool, error) {
	var now bool
	err := s.mutate(Change{Kind: ChangeVisibility}, func(d *document.CommissionDocument) (bool, error) {
		p := visibilityTarget(d, f)
		if p == nil {
			return false, fmt.Errorf("toggle %q: %w", f, ErrUnknownField)
		}
		*p = !*p
		now = *p
		return true, nil
	})
	return now, err
}
