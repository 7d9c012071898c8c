package document

type Theme string

const (
	ThemePink   Theme = "pink"
	ThemeYellow Theme = "yellow"
	ThemeBlue   Theme = "blue"
	ThemeGreen  Theme = "green"
	ThemeRed    Theme = "red"
	ThemePurple Theme = "purple"
)

// Palette holds the colours the exporter needs from a theme.
type Palette struct {
	Main       string
	Sub        string
	Accent     string
	Background string
}

var palettes = map[Theme]Palette{
	ThemePink:   {Main: "#e6007a", Sub: "#0099dd", Accent: "#ffe600", Background: "#000000"},
	ThemeYellow: {Main: "#ffe600", Sub: "#e6007a", Accent: "#0099dd", Background: "#1a1a00"},
	ThemeBlue:   {Main: "#0099dd", Sub: "#ffe600", Accent: "#e6007a", Background: "#000a1a"},
	ThemeGreen:  {Main: "#39ff14", Sub: "#bf00ff", Accent: "#ff0055", Background: "#051a05"},
	ThemeRed:    {Main: "#ff2a2a", Sub: "#00ffff", Accent: "#ffffff", Background: "#1a0505"},
	ThemePurple: {Main: "#bf00ff", Sub: "#39ff14", Accent: "#00ffff", Background: "#1a002e"},
}

func (t Theme) Valid() bool {
	_, ok := palettes[t]
	return ok
}

// Palette returns the theme's colours, falling back to pink.
func (t Theme) Palette() Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[ThemePink]
}

// ResolvedShadow resolves the "auto" shadow colour against the theme.
func (ty Typography) ResolvedShadow(t Theme) string {
	if ty.ShadowColor == "" || ty.ShadowColor == ShadowAuto {
		return t.Palette().Main
	}
	return ty.ShadowColor
}
