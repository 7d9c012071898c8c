package document

import "github.com/dohnagen/sheetgen/internal/geometry"

// CommissionDocument is the whole commission sheet. One live instance
// belongs to each editing session's store.
type CommissionDocument struct {
	Identity          Identity                  `json:"identity"`
	Portfolio         Portfolio                 `json:"portfolio"`
	Pricing           []PricingItem             `json:"pricing" validate:"unique=ID,dive"`
	Notice            string                    `json:"notice"`
	Contact           Contact                   `json:"contact"`
	Theme             Theme                     `json:"theme" validate:"theme"`
	Typography        Typography                `json:"typography"`
	Layout            Layout                    `json:"layout"`
	Visibility        Visibility                `json:"visibility"`
	ElementTransforms map[ElementID]Transform2D `json:"elementTransforms" validate:"dive,keys,element,endkeys"`
}

type Identity struct {
	Name      string   `json:"name"`
	Slogan    string   `json:"slogan"`
	Tags      []string `json:"tags"`
	AvatarRef string   `json:"avatarRef,omitempty"`
}

type Portfolio struct {
	ExhibitionImages []ImageItem `json:"exhibitionImages" validate:"unique=ID,dive"`
	MainImages       []ImageItem `json:"mainImages" validate:"unique=ID,dive"`
}

type Contact struct {
	InfoText            string      `json:"infoText"`
	QRQQRef             string      `json:"qrQQRef,omitempty"`
	QRWeChatRef         string      `json:"qrWeChatRef,omitempty"`
	BackgroundRef       string      `json:"backgroundRef,omitempty"`
	BackgroundTransform Transform2D `json:"backgroundTransform"`
	BackgroundOpacity   float64     `json:"backgroundOpacity" validate:"gte=0,lte=1"`
}

// Typography controls the title lettering. ShadowColor "auto" follows the
// theme's main colour; an empty SecondaryColor disables alternating fill.
type Typography struct {
	Font           string `json:"font"`
	Color          string `json:"color"`
	SecondaryColor string `json:"secondaryColor"`
	ShadowColor    string `json:"shadowColor"`
}

const ShadowAuto = "auto"

const (
	SpacingMin = -100
	SpacingMax = 150
)

type Layout struct {
	HeaderSpacing    int `json:"headerSpacing"`
	PortfolioSpacing int `json:"portfolioSpacing"`
	PricingSpacing   int `json:"pricingSpacing"`
	NoticeSpacing    int `json:"noticeSpacing"`
}

type Visibility struct {
	ShowPortfolio   bool `json:"showPortfolio"`
	ShowPricing     bool `json:"showPricing"`
	ShowNotice      bool `json:"showNotice"`
	ShowContact     bool `json:"showContact"`
	ShowContactInfo bool `json:"showContactInfo"`
}

// Transform2D is a translation plus uniform scale relative to an element's
// default layout position.
type Transform2D struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale" validate:"gt=0"`
}

// IdentityTransform is the transform every element starts with.
func IdentityTransform() Transform2D {
	return Transform2D{Scale: 1}
}

type ImageItem struct {
	ID          string      `json:"id" validate:"required"`
	ImageRef    string      `json:"imageRef"`
	Transform   Transform2D `json:"transform"`
	IsLandscape bool        `json:"isLandscape"`
}

type PricingItem struct {
	ID          string `json:"id" validate:"required"`
	Title       string `json:"title"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

// ElementID names a draggable header element.
type ElementID string

const (
	ElementAvatar    ElementID = "avatar"
	ElementStatus    ElementID = "status"
	ElementTitle     ElementID = "title"
	ElementSlogan    ElementID = "slogan"
	ElementTags      ElementID = "tags"
	ElementContactBg ElementID = "contactBg"
)

var Elements = []ElementID{
	ElementAvatar, ElementStatus, ElementTitle, ElementSlogan, ElementTags, ElementContactBg,
}

func (e ElementID) Valid() bool {
	switch e {
	case ElementAvatar, ElementStatus, ElementTitle, ElementSlogan, ElementTags, ElementContactBg:
		return true
	}
	return false
}

// Zoomable reports whether the element takes wheel/slider scale input.
// The text elements are position-only.
func (e ElementID) Zoomable() bool {
	return e == ElementAvatar || e == ElementStatus || e == ElementContactBg
}

func (e ElementID) ScaleBounds() geometry.ScaleBounds {
	return geometry.HeaderBounds
}

// ListID names one of the two portfolio image lists.
type ListID string

const (
	ListExhibition ListID = "exhibitionImages"
	ListMain       ListID = "mainImages"
)

func (l ListID) Valid() bool {
	return l == ListExhibition || l == ListMain
}

func (l ListID) ScaleBounds() geometry.ScaleBounds {
	if l == ListMain {
		return geometry.MainCropBounds
	}
	return geometry.ExhibitionCropBounds
}

// ImageSlot names a single-image field of the document.
type ImageSlot string

const (
	SlotAvatar            ImageSlot = "avatar"
	SlotQRQQ              ImageSlot = "qrQQ"
	SlotQRWeChat          ImageSlot = "qrWeChat"
	SlotContactBackground ImageSlot = "contactBackground"
)

func (s ImageSlot) Valid() bool {
	switch s {
	case SlotAvatar, SlotQRQQ, SlotQRWeChat, SlotContactBackground:
		return true
	}
	return false
}

// IsQR reports whether images for this slot go through QR cropping.
func (s ImageSlot) IsQR() bool {
	return s == SlotQRQQ || s == SlotQRWeChat
}

// List returns the image list for id, or nil for an unknown id.
func (d *CommissionDocument) List(id ListID) *[]ImageItem {
	switch id {
	case ListExhibition:
		return &d.Portfolio.ExhibitionImages
	case ListMain:
		return &d.Portfolio.MainImages
	}
	return nil
}

// ImageRef returns a pointer to the reference field behind slot.
func (d *CommissionDocument) ImageRef(slot ImageSlot) *string {
	switch slot {
	case SlotAvatar:
		return &d.Identity.AvatarRef
	case SlotQRQQ:
		return &d.Contact.QRQQRef
	case SlotQRWeChat:
		return &d.Contact.QRWeChatRef
	case SlotContactBackground:
		return &d.Contact.BackgroundRef
	}
	return nil
}

// ElementTransform returns the committed transform for e. Elements without
// an entry sit at their default position.
func (d *CommissionDocument) ElementTransform(e ElementID) Transform2D {
	if e == ElementContactBg {
		return d.Contact.BackgroundTransform
	}
	if t, ok := d.ElementTransforms[e]; ok {
		return t
	}
	return IdentityTransform()
}

// PutElementTransform writes t for e. The contact background transform is
// mirrored into Contact.BackgroundTransform so both views stay equal.
func (d *CommissionDocument) PutElementTransform(e ElementID, t Transform2D) {
	if d.ElementTransforms == nil {
		d.ElementTransforms = make(map[ElementID]Transform2D, len(Elements))
	}
	d.ElementTransforms[e] = t
	if e == ElementContactBg {
		d.Contact.BackgroundTransform = t
	}
}

// Clone returns a deep copy. Saved presets hold clones so later edits of
// the live document never reach them.
func (d *CommissionDocument) Clone() *CommissionDocument {
	if d == nil {
		return nil
	}
	c := *d
	c.Identity.Tags = append([]string(nil), d.Identity.Tags...)
	c.Portfolio.ExhibitionImages = append([]ImageItem(nil), d.Portfolio.ExhibitionImages...)
	c.Portfolio.MainImages = append([]ImageItem(nil), d.Portfolio.MainImages...)
	c.Pricing = append([]PricingItem(nil), d.Pricing...)
	if d.ElementTransforms != nil {
		c.ElementTransforms = make(map[ElementID]Transform2D, len(d.ElementTransforms))
		for k, v := range d.ElementTransforms {
			c.ElementTransforms[k] = v
		}
	}
	return &c
}
