// Package geometry converts pointer movement between screen space and model
// space and keeps element scales inside their configured bounds.
package geometry

import "math"

// Point is a 2D point or delta.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - other.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Add returns p + other.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the centre point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Offset returns r moved by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ScreenDeltaToModelDelta converts a pointer delta measured in the scaled
// preview into the document's unscaled coordinate space.
//
// scaleFactor must be > 0. Callers derive it from PreviewScale, which never
// returns less than MinPreviewScale.
func ScreenDeltaToModelDelta(dxScreen, dyScreen, scaleFactor float64) (float64, float64) {
	return dxScreen / scaleFactor, dyScreen / scaleFactor
}

// ClampScale clamps requested to the closed interval [min, max].
func ClampScale(requested, min, max float64) float64 {
	if requested < min {
		return min
	}
	if requested > max {
		return max
	}
	return requested
}

// ScaleBounds is the allowed scale range of one zoomable element together
// with the increment applied per wheel notch or slider tick.
type ScaleBounds struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

var (
	// HeaderBounds applies to the wheel-zoomed header singletons and the
	// contact background.
	HeaderBounds = ScaleBounds{Min: 0.5, Max: 3.0, Step: 0.1}

	// ExhibitionCropBounds applies to the crop slider of exhibition photos.
	ExhibitionCropBounds = ScaleBounds{Min: 0.1, Max: 3.0, Step: 0.05}

	// MainCropBounds applies to the crop slider of main portfolio photos.
	MainCropBounds = ScaleBounds{Min: 0.1, Max: 5.0, Step: 0.05}
)

const gridTolerance = 1e-9

// Clamp clamps v to the bounds.
func (b ScaleBounds) Clamp(v float64) float64 {
	return ClampScale(v, b.Min, b.Max)
}

// Stepped returns current moved by direction steps, clamped. Overshoot
// saturates at the bounds.
func (b ScaleBounds) Stepped(current float64, direction int) float64 {
	next := current + b.Step*float64(direction)
	// Values within float noise of the step grid land exactly on it
	// (1.0+0.1 gives 1.1, not 1.1000000000000001). Off-grid values, such as
	// a slider setting of 1.03, move by exactly one step.
	perUnit := math.Round(1 / b.Step)
	if snapped := math.Round(next*perUnit) / perUnit; math.Abs(next-snapped) < gridTolerance {
		next = snapped
	}
	return b.Clamp(next)
}

const (
	// MinPreviewScale is the floor PreviewScale never goes below.
	MinPreviewScale = 0.1

	// PosterWidth is the unscaled width of the poster in model units.
	PosterWidth = 750
)

// PreviewScale returns the factor the preview is shrunk by for a viewport
// of the given width in CSS pixels.
func PreviewScale(viewportWidth float64) float64 {
	switch {
	case viewportWidth >= 1024:
		return 0.75
	case viewportWidth >= 768:
		return 0.60
	}
	scale := math.Min(0.5, (viewportWidth-32)/PosterWidth)
	if scale < MinPreviewScale || math.IsNaN(scale) {
		return MinPreviewScale
	}
	return scale
}

// BoundingBox returns the axis-aligned bounding box of four corner points.
func BoundingBox(corners [4]Point) Rect {
	minX, maxX := corners[0].X, corners[0].X
	minY, maxY := corners[0].Y, corners[0].Y
	for _, c := range corners[1:] {
		minX = min(minX, c.X)
		maxX = max(maxX, c.X)
		minY = min(minY, c.Y)
		maxY = max(maxY, c.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
