package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

type legacyPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type legacyPricing struct {
	ID    json.RawMessage `json:"id"`
	Title string          `json:"title"`
	Price string          `json:"price"`
	Desc  string          `json:"desc"`
}

type legacyImage struct {
	ID          json.RawMessage `json:"id"`
	URL         string          `json:"url"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Scale       float64         `json:"scale"`
	IsLandscape bool            `json:"isLandscape"`
}

// legacyDocument is the flat layout written by earlier releases.
type legacyDocument struct {
	PhotographerName string          `json:"photographerName"`
	Slogan           string          `json:"slogan"`
	Tags             []string        `json:"tags"`
	ContactInfo      string          `json:"contactInfo"`
	Pricing          []legacyPricing `json:"pricing"`
	ExhibitionImages []legacyImage   `json:"exhibitionImages"`
	MainImages       []legacyImage   `json:"mainImages"`
	Avatar           string          `json:"avatar"`

	AvatarPosition legacyPoint `json:"avatarPosition"`
	StatusPosition legacyPoint `json:"statusPosition"`
	TitlePosition  legacyPoint `json:"titlePosition"`
	SloganPosition legacyPoint `json:"sloganPosition"`
	TagsPosition   legacyPoint `json:"tagsPosition"`
	AvatarScale    float64     `json:"avatarScale"`
	StatusScale    float64     `json:"statusScale"`

	QRCodeQQ     string `json:"qrCodeQQ"`
	QRCodeWeChat string `json:"qrCodeWeChat"`

	ContactBackgroundImage    string      `json:"contactBackgroundImage"`
	ContactBackgroundOpacity  float64     `json:"contactBackgroundOpacity"`
	ContactBackgroundPosition legacyPoint `json:"contactBackgroundPosition"`
	ContactBackgroundScale    float64     `json:"contactBackgroundScale"`

	Notice              string `json:"notice"`
	ThemeColor          Theme  `json:"themeColor"`
	TitleFont           string `json:"titleFont"`
	TitleColor          string `json:"titleColor"`
	TitleColorSecondary string `json:"titleColorSecondary"`
	TitleShadowColor    string `json:"titleShadowColor"`

	ShowPortfolio bool `json:"showPortfolio"`
	ShowPricing   bool `json:"showPricing"`
	ShowNotice    bool `json:"showNotice"`
	ShowContact   bool `json:"showContact"`

	SpacingHeader    int `json:"spacingHeader"`
	SpacingPortfolio int `json:"spacingPortfolio"`
	SpacingPricing   int `json:"spacingPricing"`
	SpacingNotice    int `json:"spacingNotice"`
}

func decodeLegacy(data []byte) (*CommissionDocument, error) {
	l := toLegacy(Default())
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return l.document(), nil
}

func (l *legacyDocument) document() *CommissionDocument {
	d := Default()
	d.Identity = Identity{
		Name:      l.PhotographerName,
		Slogan:    l.Slogan,
		Tags:      l.Tags,
		AvatarRef: l.Avatar,
	}
	d.Pricing = make([]PricingItem, 0, len(l.Pricing))
	for _, p := range l.Pricing {
		d.Pricing = append(d.Pricing, PricingItem{
			ID:          legacyID(p.ID),
			Title:       p.Title,
			Price:       p.Price,
			Description: p.Desc,
		})
	}
	d.Portfolio.ExhibitionImages = legacyImages(l.ExhibitionImages)
	d.Portfolio.MainImages = legacyImages(l.MainImages)
	d.Notice = l.Notice
	d.Contact = Contact{
		InfoText:      l.ContactInfo,
		QRQQRef:       l.QRCodeQQ,
		QRWeChatRef:   l.QRCodeWeChat,
		BackgroundRef: l.ContactBackgroundImage,
		BackgroundTransform: Transform2D{
			X:     l.ContactBackgroundPosition.X,
			Y:     l.ContactBackgroundPosition.Y,
			Scale: l.ContactBackgroundScale,
		},
		BackgroundOpacity: l.ContactBackgroundOpacity,
	}
	d.Theme = l.ThemeColor
	d.Typography = Typography{
		Font:           l.TitleFont,
		Color:          l.TitleColor,
		SecondaryColor: l.TitleColorSecondary,
		ShadowColor:    l.TitleShadowColor,
	}
	d.Layout = Layout{
		HeaderSpacing:    l.SpacingHeader,
		PortfolioSpacing: l.SpacingPortfolio,
		PricingSpacing:   l.SpacingPricing,
		NoticeSpacing:    l.SpacingNotice,
	}
	// The flat layout had no separate contact-info toggle.
	d.Visibility = Visibility{
		ShowPortfolio:   l.ShowPortfolio,
		ShowPricing:     l.ShowPricing,
		ShowNotice:      l.ShowNotice,
		ShowContact:     l.ShowContact,
		ShowContactInfo: true,
	}
	d.PutElementTransform(ElementAvatar, Transform2D{X: l.AvatarPosition.X, Y: l.AvatarPosition.Y, Scale: l.AvatarScale})
	d.PutElementTransform(ElementStatus, Transform2D{X: l.StatusPosition.X, Y: l.StatusPosition.Y, Scale: l.StatusScale})
	d.PutElementTransform(ElementTitle, Transform2D{X: l.TitlePosition.X, Y: l.TitlePosition.Y, Scale: 1})
	d.PutElementTransform(ElementSlogan, Transform2D{X: l.SloganPosition.X, Y: l.SloganPosition.Y, Scale: 1})
	d.PutElementTransform(ElementTags, Transform2D{X: l.TagsPosition.X, Y: l.TagsPosition.Y, Scale: 1})
	d.PutElementTransform(ElementContactBg, d.Contact.BackgroundTransform)
	return d
}

func toLegacy(d *CommissionDocument) *legacyDocument {
	pos := func(e ElementID) legacyPoint {
		t := d.ElementTransform(e)
		return legacyPoint{X: t.X, Y: t.Y}
	}
	l := &legacyDocument{
		PhotographerName: d.Identity.Name,
		Slogan:           d.Identity.Slogan,
		Tags:             d.Identity.Tags,
		ContactInfo:      d.Contact.InfoText,
		Avatar:           d.Identity.AvatarRef,

		AvatarPosition: pos(ElementAvatar),
		StatusPosition: pos(ElementStatus),
		TitlePosition:  pos(ElementTitle),
		SloganPosition: pos(ElementSlogan),
		TagsPosition:   pos(ElementTags),
		AvatarScale:    d.ElementTransform(ElementAvatar).Scale,
		StatusScale:    d.ElementTransform(ElementStatus).Scale,

		QRCodeQQ:     d.Contact.QRQQRef,
		QRCodeWeChat: d.Contact.QRWeChatRef,

		ContactBackgroundImage:    d.Contact.BackgroundRef,
		ContactBackgroundOpacity:  d.Contact.BackgroundOpacity,
		ContactBackgroundPosition: legacyPoint{X: d.Contact.BackgroundTransform.X, Y: d.Contact.BackgroundTransform.Y},
		ContactBackgroundScale:    d.Contact.BackgroundTransform.Scale,

		Notice:              d.Notice,
		ThemeColor:          d.Theme,
		TitleFont:           d.Typography.Font,
		TitleColor:          d.Typography.Color,
		TitleColorSecondary: d.Typography.SecondaryColor,
		TitleShadowColor:    d.Typography.ShadowColor,

		ShowPortfolio: d.Visibility.ShowPortfolio,
		ShowPricing:   d.Visibility.ShowPricing,
		ShowNotice:    d.Visibility.ShowNotice,
		ShowContact:   d.Visibility.ShowContact,

		SpacingHeader:    d.Layout.HeaderSpacing,
		SpacingPortfolio: d.Layout.PortfolioSpacing,
		SpacingPricing:   d.Layout.PricingSpacing,
		SpacingNotice:    d.Layout.NoticeSpacing,
	}
	for _, p := range d.Pricing {
		id, _ := json.Marshal(p.ID)
		l.Pricing = append(l.Pricing, legacyPricing{ID: id, Title: p.Title, Price: p.Price, Desc: p.Description})
	}
	return l
}

func legacyImages(in []legacyImage) []ImageItem {
	out := make([]ImageItem, 0, len(in))
	for _, img := range in {
		out = append(out, ImageItem{
			ID:          legacyID(img.ID),
			ImageRef:    img.URL,
			Transform:   Transform2D{X: img.X, Y: img.Y, Scale: img.Scale},
			IsLandscape: img.IsLandscape,
		})
	}
	return out
}

// legacyID accepts both the numeric and the string ids older files used.
// An empty result is filled in later by Normalize.
func legacyID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}
