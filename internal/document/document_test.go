package document

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDefault(t *testing.T) {
	d := Default()
	if d.Theme != ThemePink {
		t.Errorf("Theme = %q, want pink", d.Theme)
	}
	if len(d.Portfolio.ExhibitionImages) != 0 || len(d.Portfolio.MainImages) != 0 {
		t.Error("portfolio lists should start empty")
	}
	if len(d.Pricing) != 3 {
		t.Errorf("len(Pricing) = %d, want 3", len(d.Pricing))
	}
	for _, e := range Elements {
		if got := d.ElementTransform(e); got != IdentityTransform() {
			t.Errorf("ElementTransform(%s) = %+v", e, got)
		}
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("default document fails validation: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := Default()
	d.Portfolio.MainImages = append(d.Portfolio.MainImages, NewImageItem("data:a", false))
	c := d.Clone()

	d.Identity.Tags[0] = "changed"
	d.Pricing[0].Price = "1r"
	d.Portfolio.MainImages[0].Transform.X = 99
	d.PutElementTransform(ElementAvatar, Transform2D{X: 5, Scale: 2})

	if c.Identity.Tags[0] == "changed" {
		t.Error("tags shared with clone")
	}
	if c.Pricing[0].Price == "1r" {
		t.Error("pricing shared with clone")
	}
	if c.Portfolio.MainImages[0].Transform.X == 99 {
		t.Error("images shared with clone")
	}
	if c.ElementTransform(ElementAvatar).X == 5 {
		t.Error("element transforms shared with clone")
	}
}

func TestContactBackgroundMirrored(t *testing.T) {
	d := Default()
	tr := Transform2D{X: 3, Y: -4, Scale: 1.5}
	d.PutElementTransform(ElementContactBg, tr)
	if d.Contact.BackgroundTransform != tr {
		t.Fatalf("Contact.BackgroundTransform = %+v", d.Contact.BackgroundTransform)
	}
	if d.ElementTransforms[ElementContactBg] != tr {
		t.Fatalf("map entry = %+v", d.ElementTransforms[ElementContactBg])
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *CommissionDocument)
	}{
		{"unknown theme", func(d *CommissionDocument) { d.Theme = "orange" }},
		{"duplicate pricing id", func(d *CommissionDocument) { d.Pricing[1].ID = d.Pricing[0].ID }},
		{"duplicate image id", func(d *CommissionDocument) {
			item := NewImageItem("x", true)
			d.Portfolio.ExhibitionImages = []ImageItem{item, item}
		}},
		{"opacity above one", func(d *CommissionDocument) { d.Contact.BackgroundOpacity = 1.5 }},
		{"zero scale", func(d *CommissionDocument) {
			d.ElementTransforms[ElementTitle] = Transform2D{}
		}},
		{"unknown element", func(d *CommissionDocument) {
			d.ElementTransforms["banner"] = IdentityTransform()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Default()
			tt.mutate(d)
			err := d.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestNormalizeClamps(t *testing.T) {
	d := Default()
	d.Layout.HeaderSpacing = -500
	d.Layout.NoticeSpacing = 900
	d.Contact.BackgroundOpacity = 7
	d.Pricing = append(d.Pricing, PricingItem{Title: "no id"})
	d.Portfolio.ExhibitionImages = []ImageItem{{ImageRef: "x", Transform: Transform2D{Scale: 40}}}
	d.ElementTransforms[ElementAvatar] = Transform2D{Scale: 0.01}
	d.Normalize()

	if d.Layout.HeaderSpacing != SpacingMin || d.Layout.NoticeSpacing != SpacingMax {
		t.Errorf("spacing not clamped: %+v", d.Layout)
	}
	if d.Contact.BackgroundOpacity != 1 {
		t.Errorf("opacity = %v", d.Contact.BackgroundOpacity)
	}
	if d.Pricing[3].ID == "" || d.Portfolio.ExhibitionImages[0].ID == "" {
		t.Error("missing ids not filled in")
	}
	if s := d.Portfolio.ExhibitionImages[0].Transform.Scale; s != ListExhibition.ScaleBounds().Max {
		t.Errorf("image scale = %v", s)
	}
	if s := d.ElementTransform(ElementAvatar).Scale; s != ElementAvatar.ScaleBounds().Min {
		t.Errorf("avatar scale = %v", s)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("normalized document invalid: %v", err)
	}
}

func TestDecodeBare(t *testing.T) {
	d := Default()
	d.Identity.Name = "Test"
	d.PutElementTransform(ElementAvatar, Transform2D{X: 80, Scale: 1.2})
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	got, format, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != FormatBare {
		t.Errorf("format = %q", format)
	}
	if got.Identity.Name != "Test" || got.ElementTransform(ElementAvatar).X != 80 {
		t.Errorf("decoded = %+v", got.Identity)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	d := Default()
	d.Notice = "wrapped"
	raw, _ := json.Marshal(Wrap(d))
	got, format, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != FormatEnvelope || got.Notice != "wrapped" {
		t.Fatalf("format = %q notice = %q", format, got.Notice)
	}

	raw, _ = json.Marshal(Envelope{SchemaVersion: SchemaVersion + 1, Document: d})
	if _, _, err := Decode(raw); !errors.Is(err, ErrNewerSchema) {
		t.Fatalf("newer schema: err = %v", err)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not json", `{"identity":`, ErrMalformed},
		{"array", `[1,2]`, ErrMalformed},
		{"no identity", `{"notice":"x"}`, ErrMissingName},
		{"no name", `{"identity":{"slogan":"x"}}`, ErrMissingName},
		{"null name", `{"identity":{"name":null}}`, ErrMissingName},
		{"envelope without name", `{"schemaVersion":1,"document":{"notice":"x"}}`, ErrMissingName},
		{"bad theme", `{"identity":{"name":"a"},"theme":"orange"}`, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode(%s) = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestDecodeEmptyNameAccepted(t *testing.T) {
	got, _, err := Decode([]byte(`{"identity":{"name":""}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Identity.Name != "" {
		t.Errorf("name = %q", got.Identity.Name)
	}
	// Everything else comes from the defaults.
	if len(got.Pricing) != 3 || got.Theme != ThemePink {
		t.Errorf("defaults not applied: %d pricing, theme %q", len(got.Pricing), got.Theme)
	}
}

func TestDecodeLegacy(t *testing.T) {
	in := `{
		"photographerName": "Old Name",
		"tags": ["a"],
		"pricing": [{"id": 1700000000000, "title": "T", "price": "9r", "desc": "D"}],
		"mainImages": [{"id": "m1", "url": "data:x", "x": 4, "y": 5, "scale": 2.5, "isLandscape": true}],
		"avatarPosition": {"x": 12, "y": -3},
		"avatarScale": 1.4,
		"contactBackgroundPosition": {"x": 1, "y": 2},
		"contactBackgroundScale": 2,
		"themeColor": "blue",
		"titleShadowColor": "#000000",
		"spacingPricing": 400
	}`
	got, format, err := Decode([]byte(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != FormatLegacy {
		t.Errorf("format = %q", format)
	}
	if got.Identity.Name != "Old Name" || got.Theme != ThemeBlue {
		t.Errorf("identity/theme = %q/%q", got.Identity.Name, got.Theme)
	}
	if len(got.Pricing) != 1 || got.Pricing[0].ID != "1700000000000" || got.Pricing[0].Description != "D" {
		t.Errorf("pricing = %+v", got.Pricing)
	}
	if img := got.Portfolio.MainImages[0]; img.ID != "m1" || img.Transform != (Transform2D{X: 4, Y: 5, Scale: 2.5}) || !img.IsLandscape {
		t.Errorf("main image = %+v", img)
	}
	if tr := got.ElementTransform(ElementAvatar); tr != (Transform2D{X: 12, Y: -3, Scale: 1.4}) {
		t.Errorf("avatar = %+v", tr)
	}
	if tr := got.ElementTransform(ElementContactBg); tr != (Transform2D{X: 1, Y: 2, Scale: 2}) {
		t.Errorf("contactBg = %+v", tr)
	}
	if got.Layout.PricingSpacing != SpacingMax {
		t.Errorf("spacing = %d", got.Layout.PricingSpacing)
	}
	// Fields absent from the file keep their defaults.
	if got.Contact.BackgroundOpacity != 0.5 || got.Typography.Font != "russo" {
		t.Errorf("defaults lost: %+v %+v", got.Contact, got.Typography)
	}
}

func TestDecodeStoredKeepsNewFieldsDefaulted(t *testing.T) {
	got, err := DecodeStored([]byte(`{"identity":{"name":"x"},"visibility":{"showPricing":false}}`))
	if err != nil {
		t.Fatalf("DecodeStored: %v", err)
	}
	if got.Visibility.ShowPricing {
		t.Error("stored field not applied")
	}
	if got.Typography.ShadowColor != ShadowAuto {
		t.Errorf("typography default missing: %+v", got.Typography)
	}
}

func TestResolvedShadow(t *testing.T) {
	ty := Typography{ShadowColor: ShadowAuto}
	if got := ty.ResolvedShadow(ThemeGreen); got != "#39ff14" {
		t.Errorf("auto shadow = %q", got)
	}
	ty.ShadowColor = "#123456"
	if got := ty.ResolvedShadow(ThemeGreen); got != "#123456" {
		t.Errorf("explicit shadow = %q", got)
	}
}
