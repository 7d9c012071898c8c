package store

import (
	"fmt"

	"github.com/dohnagen/sheetgen/internal/document"
)

// PricingField names an editable field of a PricingItem.
type PricingField string

const (
	PricingTitle       PricingField = "title"
	PricingPrice       PricingField = "price"
	PricingDescription PricingField = "description"
)

// AddPricingItem appends an item with placeholder content and returns it.
func (s *Store) AddPricingItem() document.PricingItem {
	item := document.NewPricingItem()
	_ = s.mutate(Change{Kind: ChangePricing, ItemID: item.ID}, func(d *document.CommissionDocument) (bool, error) {
		d.Pricing = append(d.Pricing, item)
		return true, nil
	})
	return item
}

func pricingIndex(d *document.CommissionDocument, id string) int {
	for i := range d.Pricing {
		if d.Pricing[i].ID == id {
			return i
		}
	}
	return -1
}

// UpdatePricingField sets one field of the item with the given id.
func (s *Store) UpdatePricingField(id string, f PricingField, value string) error {
	return s.mutate(Change{Kind: ChangePricing, ItemID: id}, func(d *document.CommissionDocument) (bool, error) {
		i := pricingIndex(d, id)
		if i < 0 {
			return false, fmt.Errorf("update pricing %q: %w", id, ErrPricingNotFound)
		}
		var p *string
		switch f {
		case PricingTitle:
			p = &d.Pricing[i].Title
		case PricingPrice:
			p = &d.Pricing[i].Price
		case PricingDescription:
			p = &d.Pricing[i].Description
		default:
			return false, fmt.Errorf("update pricing %q field %q: %w", id, f, ErrUnknownField)
		}
		if *p == value {
			return false, nil
		}
		*p = value
		return true, nil
	})
}

// RemovePricingItem deletes the item with the given id. The other items
// keep their ids, values and order.
func (s *Store) RemovePricingItem(id string) error {
	return s.mutate(Change{Kind: ChangePricing, ItemID: id}, func(d *document.CommissionDocument) (bool, error) {
		i := pricingIndex(d, id)
		if i < 0 {
			return false, fmt.Errorf("remove pricing %q: %w", id, ErrPricingNotFound)
		}
		d.Pricing = append(d.Pricing[:i:i], d.Pricing[i+1:]...)
		return true, nil
	})
}
