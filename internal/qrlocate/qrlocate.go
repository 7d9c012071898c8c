// Package qrlocate finds the corners of a QR code in a bitmap.
package qrlocate

import (
	"context"
	"image"
	"image/draw"

	"github.com/dohnagen/sheetgen/internal/geometry"
)

// Quad is the four corners of a located code in pixel space, in detector
// order.
type Quad [4]geometry.Point

// Locator finds a QR code in img. ok is false when no code was found.
type Locator interface {
	Locate(ctx context.Context, img *image.RGBA) (q Quad, ok bool, err error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, img *image.RGBA) (Quad, bool, error)

func (f LocatorFunc) Locate(ctx context.Context, img *image.RGBA) (Quad, bool, error) {
	return f(ctx, img)
}

// None never finds anything. QR slots then keep the uncropped image.
type None struct{}

func (None) Locate(context.Context, *image.RGBA) (Quad, bool, error) {
	return Quad{}, false, nil
}

// ToRGBA returns img as a tightly packed, zero-origin RGBA buffer.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
