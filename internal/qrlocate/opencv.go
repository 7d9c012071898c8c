//go:build gocv

package qrlocate

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/dohnagen/sheetgen/internal/geometry"
)

// OpenCV locates codes with OpenCV's QRCodeDetector. The detector is not
// safe for concurrent use, so calls are serialised.
type OpenCV struct {
	mu       sync.Mutex
	detector gocv.QRCodeDetector
}

func NewOpenCV() *OpenCV {
	return &OpenCV{detector: gocv.NewQRCodeDetector()}
}

func (o *OpenCV) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.detector.Close()
}

func (o *OpenCV) Locate(ctx context.Context, img *image.RGBA) (Quad, bool, error) {
	if err := ctx.Err(); err != nil {
		return Quad{}, false, err
	}
	b := img.Bounds()
	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, img.Pix)
	if err != nil {
		return Quad{}, false, fmt.Errorf("wrap pixels: %w", err)
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)

	points := gocv.NewMat()
	defer points.Close()

	o.mu.Lock()
	found := o.detector.Detect(bgr, &points)
	o.mu.Unlock()
	if !found || points.Total() < 4 {
		return Quad{}, false, nil
	}

	var q Quad
	for i := 0; i < 4; i++ {
		v := points.GetVecfAt(0, i)
		q[i] = geometry.Point{X: float64(v[0]), Y: float64(v[1])}
	}
	return q, true, nil
}

func Default() (Locator, func()) {
	o := NewOpenCV()
	return o, func() { o.Close() }
}
