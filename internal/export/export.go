// Package export renders a commission document to a print-quality PNG.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"

	"github.com/dohnagen/sheetgen/internal/document"
)

var ErrExportFailed = errors.New("export failed")

const DefaultPixelRatio = 2.0

// Rasterizer turns a document into pixels at the given density multiplier.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc *document.CommissionDocument, pixelRatio float64) (image.Image, error)
}

type Pipeline struct {
	raster Rasterizer
	ratio  float64
	log    *slog.Logger
}

func New(raster Rasterizer, pixelRatio float64, log *slog.Logger) *Pipeline {
	if pixelRatio <= 0 {
		pixelRatio = DefaultPixelRatio
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{raster: raster, ratio: pixelRatio, log: log}
}

func (p *Pipeline) PixelRatio() float64 {
	return p.ratio
}

// Result is a finished export. PNG is only ever a complete file.
type Result struct {
	Filename string
	PNG      []byte
	Width    int
	Height   int
}

// Export rasterizes a snapshot of doc. Any failure yields ErrExportFailed
// and no output.
func (p *Pipeline) Export(ctx context.Context, doc *document.CommissionDocument) (Result, error) {
	if doc == nil {
		return Result{}, fmt.Errorf("%w: no document", ErrExportFailed)
	}
	img, err := p.raster.Rasterize(ctx, doc.Clone(), p.ratio)
	if err != nil {
		p.log.Error("rasterize failed", "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		p.log.Error("encode png failed", "error", err)
		return Result{}, fmt.Errorf("%w: encode png: %v", ErrExportFailed, err)
	}

	b := img.Bounds()
	p.log.Info("export complete", "name", doc.Identity.Name, "width", b.Dx(), "height", b.Dy(), "size", buf.Len())
	return Result{
		Filename: Filename(doc.Identity.Name),
		PNG:      buf.Bytes(),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// Filename is "<name>-DOHNA.png" with the name reduced to letters, digits,
// '-' and '_'.
func Filename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "commission"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		}
		return '-'
	}, name)
	return name + "-DOHNA.png"
}

// asciiFilename is the fallback for clients that ignore filename*.
func asciiFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 {
			return r
		}
		return '_'
	}, name)
}
