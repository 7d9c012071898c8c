package ingest

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/dohnagen/sheetgen/internal/geometry"
	"github.com/dohnagen/sheetgen/internal/qrlocate"
)

// QRPadding is the factor the located code's size is grown by so the crop
// keeps a quiet zone around it.
const QRPadding = 1.4

// Crop is a square, white-backed cut-out centred on a located QR code.
type Crop struct {
	Image *image.NRGBA
	Size  int
	// Center is the code's bounding-box centre in source pixels.
	Center geometry.Point
	// Offset is the translation applied to the source, so that Center
	// lands on the middle of the crop.
	Offset geometry.Point
}

// CropQR cuts a square of side round(max(w, h) * QRPadding) around the
// bounding box of quad and fills everything outside the source white.
func CropQR(src image.Image, quad qrlocate.Quad) Crop {
	box := geometry.BoundingBox(quad)
	center := box.Center()
	size := int(math.Round(math.Max(box.Width, box.Height) * QRPadding))
	if size < 1 {
		size = 1
	}

	half := float64(size) / 2
	offset := geometry.Point{X: half - center.X, Y: half - center.Y}

	dst := imaging.New(size, size, color.White)
	source := imaging.Clone(src)
	if offset.X == math.Trunc(offset.X) && offset.Y == math.Trunc(offset.Y) {
		// Whole-pixel shift: copy exactly.
		pt := image.Pt(-int(offset.X), -int(offset.Y))
		xdraw.Draw(dst, dst.Bounds(), source, pt, xdraw.Over)
	} else {
		m := f64.Aff3{1, 0, offset.X, 0, 1, offset.Y}
		xdraw.BiLinear.Transform(dst, m, source, source.Bounds(), xdraw.Over, nil)
	}

	return Crop{Image: dst, Size: size, Center: center, Offset: offset}
}
