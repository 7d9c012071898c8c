//go:build !gocv

package qrlocate

import "log/slog"

// Default returns the best locator compiled into this binary. Build with
// -tags gocv to get the OpenCV detector.
func Default() (Locator, func()) {
	slog.Debug("qr locator: none (built without gocv)")
	return None{}, func() {}
}
