package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixOwner   = "owner"
	PrefixSession = "sess"
	PrefixImage   = "img"
	PrefixPricing = "price"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewOwnerID() string   { return New(PrefixOwner) }
func NewSessionID() string { return New(PrefixSession) }
func NewImageID() string   { return New(PrefixImage) }
func NewPricingID() string { return New(PrefixPricing) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
