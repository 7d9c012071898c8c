package document

import "github.com/dohnagen/sheetgen/internal/typeid"

const (
	DefaultPricingTitle       = "NEW ITEM"
	DefaultPricingPrice       = "0000"
	DefaultPricingDescription = "Description..."
)

// Default returns a fresh document with the stock sample content.
func Default() *CommissionDocument {
	return &CommissionDocument{
		Identity: Identity{
			Name:   "摄氏零度",
			Slogan: "次元壁突破 // SHUTTER BREAK",
			Tags:   []string{"日系", "赛博朋克", "情绪", "暗黑"},
		},
		Portfolio: Portfolio{
			ExhibitionImages: []ImageItem{},
			MainImages:       []ImageItem{},
		},
		Pricing: []PricingItem{
			{ID: typeid.NewPricingID(), Title: "漫展场照 // EXHIBITION", Price: "500r", Description: "9张精修 / 动作指导 / 底片全送"},
			{ID: typeid.NewPricingID(), Title: "外景正片 // LOCATION", Price: "1200r", Description: "20张精修 / 包含排版 / 1-2h拍摄"},
			{ID: typeid.NewPricingID(), Title: "棚拍企划 // STUDIO", Price: "1500r", Description: "布光设计 / 后期合成 / 提供道具"},
		},
		Notice: "1. 跑单不退定金，改期请提前3天。\n2. 包往返路费/门票。\n3. 工期2-3周，加急x1.5。\n4. 默认可展示，买断x2。",
		Contact: Contact{
			InfoText:            "QQ: 123456789",
			BackgroundTransform: IdentityTransform(),
			BackgroundOpacity:   0.5,
		},
		Theme: ThemePink,
		Typography: Typography{
			Font:        "russo",
			Color:       "#ffffff",
			ShadowColor: ShadowAuto,
		},
		Layout: Layout{
			HeaderSpacing:    0,
			PortfolioSpacing: 32,
			PricingSpacing:   32,
			NoticeSpacing:    32,
		},
		Visibility: Visibility{
			ShowPortfolio:   true,
			ShowPricing:     true,
			ShowNotice:      true,
			ShowContact:     true,
			ShowContactInfo: true,
		},
		ElementTransforms: defaultTransforms(),
	}
}

func defaultTransforms() map[ElementID]Transform2D {
	m := make(map[ElementID]Transform2D, len(Elements))
	for _, e := range Elements {
		m[e] = IdentityTransform()
	}
	return m
}

// NewPricingItem returns an item with the placeholder content used by
// the "add" action.
func NewPricingItem() PricingItem {
	return PricingItem{
		ID:          typeid.NewPricingID(),
		Title:       DefaultPricingTitle,
		Price:       DefaultPricingPrice,
		Description: DefaultPricingDescription,
	}
}

// NewImageItem returns a portfolio item with the identity crop transform.
func NewImageItem(ref string, isLandscape bool) ImageItem {
	return ImageItem{
		ID:          typeid.NewImageID(),
		ImageRef:    ref,
		Transform:   IdentityTransform(),
		IsLandscape: isLandscape,
	}
}
