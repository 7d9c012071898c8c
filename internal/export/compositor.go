package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/geometry"
)

// ImageOpener loads the image behind a document reference.
type ImageOpener interface {
	Open(ctx context.Context, ref string) (image.Image, error)
}

// Compositor is the server-side Rasterizer. It lays the poster out in
// model units (750 wide) and paints it at pixelRatio device pixels per
// unit. Text uses a fixed bitmap face, so glyphs outside Latin-1 render as
// replacement boxes; the browser rasterizer is the full-fidelity path.
type Compositor struct {
	Images ImageOpener
}

func NewCompositor(images ImageOpener) *Compositor {
	return &Compositor{Images: images}
}

// Layout in model units.
const (
	pad          = 32.0
	contentWidth = geometry.PosterWidth - 2*pad
	sectionGap   = 16.0

	titleHeight  = 104.0
	avatarSize   = 192.0
	statusWidth  = 240.0
	statusHeight = 64.0
	sloganHeight = 64.0
	tagsHeight   = 48.0

	headingHeight = 48.0
	exhibitionCol = (contentWidth - 2*sectionGap) / 3
	pricingCard   = 120.0
	noticeLine    = 30.0
	contactHeight = 320.0
	qrSize        = 200.0
)

var (
	black  = color.NRGBA{A: 255}
	white  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	gray   = color.NRGBA{R: 229, G: 231, B: 235, A: 255}
	yellow = color.NRGBA{R: 255, G: 230, A: 255}
)

func (c *Compositor) Rasterize(ctx context.Context, doc *document.CommissionDocument, pixelRatio float64) (image.Image, error) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	measure := &painter{ctx: ctx, ratio: pixelRatio}
	height := measure.poster(doc)

	pal := doc.Theme.Palette()
	w := int(math.Ceil(geometry.PosterWidth * pixelRatio))
	h := int(math.Ceil(height * pixelRatio))
	p := &painter{
		ctx:    ctx,
		images: c.Images,
		ratio:  pixelRatio,
		dst:    imaging.New(w, h, parseHex(pal.Background, black)),
		cache:  map[string]image.Image{},
	}
	p.poster(doc)
	if p.err != nil {
		return nil, p.err
	}
	return p.dst, nil
}

// painter walks the layout once. With a nil dst it only measures.
type painter struct {
	ctx    context.Context
	images ImageOpener
	ratio  float64
	dst    *image.NRGBA
	cache  map[string]image.Image
	err    error
}

func (p *painter) px(v float64) int {
	return int(math.Round(v * p.ratio))
}

func (p *painter) pxRect(r geometry.Rect) image.Rectangle {
	return image.Rect(p.px(r.X), p.px(r.Y), p.px(r.X+r.Width), p.px(r.Y+r.Height))
}

// poster paints the whole document and returns its height.
func (p *painter) poster(doc *document.CommissionDocument) float64 {
	pal := doc.Theme.Palette()
	y := p.header(doc, pal, pad)
	y += float64(doc.Layout.HeaderSpacing)

	if doc.Visibility.ShowPortfolio {
		y = p.portfolio(doc, pal, y)
		y += float64(doc.Layout.PortfolioSpacing)
	}
	if doc.Visibility.ShowPricing {
		y = p.pricing(doc, pal, y)
		y += float64(doc.Layout.PricingSpacing)
	}
	if doc.Visibility.ShowNotice {
		y = p.notice(doc, y)
		y += float64(doc.Layout.NoticeSpacing)
	}
	if doc.Visibility.ShowContact {
		y = p.contact(doc, pal, y)
	}
	return math.Max(y+pad, 1)
}

func (p *painter) header(doc *document.CommissionDocument, pal document.Palette, y float64) float64 {
	ty := doc.Typography

	// Title, centred, with a hard shadow.
	t := doc.ElementTransform(document.ElementTitle)
	size := titleHeight * 0.8
	width := p.measureText(doc.Identity.Name, size)
	x := pad + (contentWidth-width)/2 + t.X
	ty0 := y + t.Y
	shadow := parseHex(ty.ResolvedShadow(doc.Theme), parseHex(pal.Main, black))
	p.text(x+6, ty0+6, doc.Identity.Name, size, shadow)
	p.titleRuns(x, ty0, doc.Identity.Name, size, parseHex(ty.Color, white), ty.SecondaryColor)
	y += titleHeight + pad

	// Status badge and avatar share a row.
	status := p.placed(doc, document.ElementStatus, pad+16, y, statusWidth, statusHeight)
	p.fill(status, parseHex(pal.Accent, yellow))
	p.border(status, 4, black)
	p.textIn(status, "OPEN NOW", statusHeight*0.45, black)

	avatarX := pad + contentWidth - 16 - avatarSize
	avatar := p.placed(doc, document.ElementAvatar, avatarX, y, avatarSize, avatarSize)
	p.fill(avatar.Offset(12, 12), parseHex(pal.Sub, white))
	p.fill(avatar.Offset(-12, -12), parseHex(pal.Main, white))
	if doc.Identity.AvatarRef != "" {
		p.cover(doc.Identity.AvatarRef, avatar)
	} else {
		p.fill(avatar, gray)
	}
	p.border(avatar, 4, black)
	y += avatarSize + pad

	// Slogan bar.
	slogan := doc.Identity.Slogan + " //"
	st := doc.ElementTransform(document.ElementSlogan)
	sw := p.measureText(slogan, sloganHeight*0.5) + 80
	bar := geometry.Rect{X: pad + (contentWidth-sw)/2 + st.X, Y: y + st.Y, Width: sw, Height: sloganHeight}
	p.fill(bar, black)
	p.border(bar, 4, white)
	p.textIn(bar, slogan, sloganHeight*0.5, white)
	y += sloganHeight + pad

	// Tags.
	tt := doc.ElementTransform(document.ElementTags)
	tx := pad + tt.X
	for _, tag := range doc.Identity.Tags {
		tw := p.measureText(tag, tagsHeight*0.5) + 48
		chip := geometry.Rect{X: tx, Y: y + tt.Y, Width: tw, Height: tagsHeight}
		p.fill(chip.Offset(4, 4), black)
		p.fill(chip, white)
		p.border(chip, 4, black)
		p.textIn(chip, tag, tagsHeight*0.5, black)
		tx += tw + 16
	}
	return y + tagsHeight + pad
}

// placed returns the on-poster rectangle of an element whose default frame
// is (x, y, w, h), after its committed transform.
func (p *painter) placed(doc *document.CommissionDocument, e document.ElementID, x, y, w, h float64) geometry.Rect {
	t := doc.ElementTransform(e)
	m := geometry.ElementMatrix(x, y, w, h, t.X, t.Y, t.Scale)
	return m.TransformRect(geometry.Rect{Width: w, Height: h})
}

func (p *painter) heading(title string, col color.Color, y float64) float64 {
	p.text(pad, y, title, headingHeight*0.8, col)
	p.fill(geometry.Rect{X: pad, Y: y + headingHeight, Width: contentWidth, Height: 8}, black)
	return y + headingHeight + 8 + sectionGap
}

func (p *painter) portfolio(doc *document.CommissionDocument, pal document.Palette, y float64) float64 {
	y = p.heading("PORTFOLIO", parseHex(pal.Main, white), y)

	// Exhibition: portrait photos three to a row, landscape photos get a
	// row of their own.
	col := 0
	rowHeight := 0.0
	for _, item := range doc.Portfolio.ExhibitionImages {
		if item.IsLandscape {
			if col > 0 {
				y += rowHeight + sectionGap
				col = 0
			}
			h := contentWidth * 9 / 16
			p.photo(item, geometry.Rect{X: pad, Y: y, Width: contentWidth, Height: h})
			y += h + sectionGap
			continue
		}
		cell := geometry.Rect{X: pad + float64(col)*(exhibitionCol+sectionGap), Y: y, Width: exhibitionCol, Height: exhibitionCol * 4 / 3}
		p.photo(item, cell)
		rowHeight = cell.Height
		col++
		if col == 3 {
			y += rowHeight + sectionGap
			col = 0
		}
	}
	if col > 0 {
		y += rowHeight + sectionGap
	}

	for _, item := range doc.Portfolio.MainImages {
		h := contentWidth * 4 / 3
		if item.IsLandscape {
			h = contentWidth * 2 / 3
		}
		p.photo(item, geometry.Rect{X: pad, Y: y, Width: contentWidth, Height: h})
		y += h + sectionGap
	}

	if len(doc.Portfolio.ExhibitionImages) == 0 && len(doc.Portfolio.MainImages) == 0 {
		box := geometry.Rect{X: pad, Y: y, Width: contentWidth, Height: 96}
		p.fill(box, gray)
		p.textIn(box, "NO SIGNAL // UPLOAD", 20, color.NRGBA{R: 156, G: 163, B: 175, A: 255})
		y += box.Height + sectionGap
	}
	return y
}

// photo draws an image cropped to cell. The crop transform moves and
// scales the covering image about the cell centre.
func (p *painter) photo(item document.ImageItem, cell geometry.Rect) {
	p.fill(cell, white)
	p.border(cell, 4, black)
	if p.dst == nil || item.ImageRef == "" {
		return
	}
	src := p.open(item.ImageRef)
	if src == nil {
		return
	}
	frame := p.pxRect(cell)
	if frame.Empty() {
		return
	}

	t := item.Transform
	m := geometry.ElementMatrix(0, 0, cell.Width, cell.Height, t.X, t.Y, t.Scale)
	r := m.TransformRect(geometry.Rect{Width: cell.Width, Height: cell.Height})
	fw, fh := p.px(r.Width), p.px(r.Height)
	if fw <= 0 || fh <= 0 {
		return
	}
	fitted := imaging.Fill(src, fw, fh, imaging.Center, imaging.Lanczos)
	canvas := imaging.New(frame.Dx(), frame.Dy(), white)
	canvas = imaging.Paste(canvas, fitted, image.Pt(p.px(r.X), p.px(r.Y)))
	xdraw.Draw(p.dst, frame, canvas, image.Point{}, xdraw.Src)
}

func (p *painter) pricing(doc *document.CommissionDocument, pal document.Palette, y float64) float64 {
	y = p.heading("PRICE LIST", parseHex(pal.Main, white), y)
	stripes := []color.NRGBA{parseHex(pal.Main, white), parseHex(pal.Sub, white), parseHex(pal.Accent, white)}

	for i, item := range doc.Pricing {
		card := geometry.Rect{X: pad, Y: y, Width: contentWidth, Height: pricingCard}
		p.fill(card.Offset(6, 6), black)
		p.fill(card, white)
		p.fill(geometry.Rect{X: card.X, Y: card.Y, Width: 24, Height: card.Height}, stripes[i%3])
		p.border(card, 4, black)

		p.text(card.X+48, card.Y+20, strings.ToUpper(item.Title), 32, black)
		p.text(card.X+48, card.Y+70, item.Description, 18, black)

		tag := geometry.Rect{X: card.X + card.Width - 200, Y: card.Y + 30, Width: 176, Height: 60}
		p.fill(tag, black)
		p.border(tag, 4, white)
		p.textIn(tag, item.Price, 30, parseHex(pal.Accent, yellow))

		y += pricingCard + 24
	}
	return y
}

func (p *painter) notice(doc *document.CommissionDocument, y float64) float64 {
	lines := strings.Split(doc.Notice, "\n")
	box := geometry.Rect{X: pad, Y: y, Width: contentWidth, Height: 24 + headingHeight + float64(len(lines))*noticeLine + 24}
	p.fill(box, black)
	p.border(box, 4, yellow)

	p.text(box.X+24, box.Y+24, "NOTICE", 36, yellow)
	ly := box.Y + 24 + headingHeight
	for _, line := range lines {
		p.text(box.X+24, ly, line, 20, white)
		ly += noticeLine
	}
	return box.Y + box.Height + sectionGap
}

func (p *painter) contact(doc *document.CommissionDocument, pal document.Palette, y float64) float64 {
	y = p.heading("CONTACT", parseHex(pal.Main, white), y)
	box := geometry.Rect{X: pad, Y: y, Width: contentWidth, Height: contactHeight}
	p.fill(box, black)

	if ref := doc.Contact.BackgroundRef; ref != "" && p.dst != nil {
		bg := p.placed(doc, document.ElementContactBg, box.X, box.Y, box.Width, box.Height)
		p.coverClipped(ref, bg, box, doc.Contact.BackgroundOpacity)
	}

	x := box.X + 24
	for _, ref := range []string{doc.Contact.QRQQRef, doc.Contact.QRWeChatRef} {
		if ref == "" {
			continue
		}
		slot := geometry.Rect{X: x, Y: box.Y + 60, Width: qrSize, Height: qrSize}
		p.fill(slot, white)
		p.cover(ref, slot)
		p.border(slot, 4, black)
		x += qrSize + 24
	}
	if doc.Visibility.ShowContactInfo {
		ly := box.Y + 60
		for _, line := range strings.Split(doc.Contact.InfoText, "\n") {
			p.text(x, ly, line, 22, white)
			ly += noticeLine
		}
	}
	p.border(box, 4, black)
	return box.Y + box.Height + sectionGap
}

// open loads and caches ref. A failed load aborts the whole export.
func (p *painter) open(ref string) image.Image {
	if p.err != nil {
		return nil
	}
	if img, ok := p.cache[ref]; ok {
		return img
	}
	if p.images == nil {
		p.err = fmt.Errorf("no image loader for %.32q", ref)
		return nil
	}
	img, err := p.images.Open(p.ctx, ref)
	if err != nil {
		p.err = fmt.Errorf("load image: %w", err)
		return nil
	}
	p.cache[ref] = img
	return img
}

func (p *painter) cover(ref string, r geometry.Rect) {
	p.coverClipped(ref, r, r, 1)
}

// coverClipped fills r with the image (object-fit: cover), clipped to clip
// and blended at the given opacity.
func (p *painter) coverClipped(ref string, r, clip geometry.Rect, opacity float64) {
	if p.dst == nil {
		return
	}
	src := p.open(ref)
	if src == nil {
		return
	}
	target := p.pxRect(r)
	if target.Empty() {
		return
	}
	fitted := imaging.Fill(src, target.Dx(), target.Dy(), imaging.Center, imaging.Lanczos)
	visible := target.Intersect(p.pxRect(clip))
	if visible.Empty() {
		return
	}
	sp := visible.Min.Sub(target.Min)
	if opacity >= 1 {
		xdraw.Draw(p.dst, visible, fitted, sp, xdraw.Over)
		return
	}
	alpha := uint8(math.Round(geometry.ClampScale(opacity, 0, 1) * 255))
	xdraw.DrawMask(p.dst, visible, fitted, sp, image.NewUniform(color.Alpha{A: alpha}), image.Point{}, xdraw.Over)
}

func (p *painter) fill(r geometry.Rect, c color.Color) {
	if p.dst == nil || r.IsEmpty() {
		return
	}
	xdraw.Draw(p.dst, p.pxRect(r), image.NewUniform(c), image.Point{}, xdraw.Over)
}

func (p *painter) border(r geometry.Rect, w float64, c color.Color) {
	p.fill(geometry.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: w}, c)
	p.fill(geometry.Rect{X: r.X, Y: r.Y + r.Height - w, Width: r.Width, Height: w}, c)
	p.fill(geometry.Rect{X: r.X, Y: r.Y, Width: w, Height: r.Height}, c)
	p.fill(geometry.Rect{X: r.X + r.Width - w, Y: r.Y, Width: w, Height: r.Height}, c)
}

var face = basicfont.Face7x13

// measureText returns the width in model units of s drawn size units tall.
func (p *painter) measureText(s string, size float64) float64 {
	return float64(font.MeasureString(face, s).Ceil()) * size / float64(face.Height)
}

func (p *painter) textIn(r geometry.Rect, s string, size float64, c color.Color) {
	w := p.measureText(s, size)
	p.text(r.X+(r.Width-w)/2, r.Y+(r.Height-size)/2, s, size, c)
}

// titleRuns draws the title, alternating words between the primary and
// secondary colours when a secondary colour is set.
func (p *painter) titleRuns(x, y float64, s string, size float64, primary color.NRGBA, secondary string) {
	if secondary == "" {
		p.text(x, y, s, size, primary)
		return
	}
	alt := parseHex(secondary, primary)
	space := p.measureText(" ", size)
	for i, word := range strings.Fields(s) {
		c := primary
		if i%2 == 1 {
			c = alt
		}
		p.text(x, y, word, size, c)
		x += p.measureText(word, size) + space
	}
}

// text draws s with its top-left at (x, y), size model units tall. The
// bitmap face is rendered at its native size and scaled up.
func (p *painter) text(x, y float64, s string, size float64, c color.Color) {
	if p.dst == nil || s == "" {
		return
	}
	w := font.MeasureString(face, s).Ceil()
	if w == 0 {
		return
	}
	layer := image.NewNRGBA(image.Rect(0, 0, w, face.Height))
	d := font.Drawer{Dst: layer, Src: image.NewUniform(c), Face: face, Dot: fixed.P(0, face.Ascent)}
	d.DrawString(s)

	scale := size / float64(face.Height)
	tw, th := p.px(float64(w)*scale), p.px(size)
	if tw <= 0 || th <= 0 {
		return
	}
	scaled := imaging.Resize(layer, tw, th, imaging.NearestNeighbor)
	at := image.Pt(p.px(x), p.px(y))
	xdraw.Draw(p.dst, scaled.Bounds().Add(at), scaled, image.Point{}, xdraw.Over)
}

// parseHex reads #rgb or #rrggbb, returning fallback for anything else.
func parseHex(s string, fallback color.NRGBA) color.NRGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
