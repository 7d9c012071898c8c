// Package ingest turns uploaded image files into document image references.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/qrlocate"
)

const DefaultMaxBytes = 20 << 20 // 20MB

// MaxPixels caps the decoded size of an image. The header is checked
// before the bitmap is allocated.
const MaxPixels = 50_000_000

var (
	ErrDecode        = errors.New("image could not be decoded")
	ErrUnknownTarget = errors.New("unknown image target")
	ErrTooLarge      = errors.New("image too large")
)

// Target says where an uploaded image goes.
type Target string

const (
	TargetAvatar            Target = "avatar"
	TargetContactBackground Target = "contactBackground"
	TargetExhibition        Target = "exhibition"
	TargetMain              Target = "main"
	TargetQRQQ              Target = "qrQQ"
	TargetQRWeChat          Target = "qrWeChat"
)

func ParseTarget(s string) (Target, error) {
	t := Target(s)
	switch t {
	case TargetAvatar, TargetContactBackground, TargetExhibition, TargetMain, TargetQRQQ, TargetQRWeChat:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
}

func (t Target) list() (document.ListID, bool) {
	switch t {
	case TargetExhibition:
		return document.ListExhibition, true
	case TargetMain:
		return document.ListMain, true
	}
	return "", false
}

func (t Target) slot() (document.ImageSlot, bool) {
	switch t {
	case TargetAvatar:
		return document.SlotAvatar, true
	case TargetContactBackground:
		return document.SlotContactBackground, true
	case TargetQRQQ:
		return document.SlotQRQQ, true
	case TargetQRWeChat:
		return document.SlotQRWeChat, true
	}
	return "", false
}

// Sink receives the result of an ingest. *store.Store implements it.
type Sink interface {
	SetImageRef(slot document.ImageSlot, ref string) error
	AppendImage(list document.ListID, item document.ImageItem) error
}

// Result describes a stored image.
type Result struct {
	Target      Target `json:"target"`
	Ref         string `json:"ref"`
	ItemID      string `json:"itemId,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	IsLandscape bool   `json:"isLandscape"`
	Cropped     bool   `json:"cropped"`
}

// Pipeline decodes, optionally QR-crops, stores and records images.
type Pipeline struct {
	refs     RefStore
	locator  qrlocate.Locator
	maxBytes int64
	log      *slog.Logger
}

type Option func(*Pipeline)

func WithMaxBytes(n int64) Option { return func(p *Pipeline) { p.maxBytes = n } }

func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.log = l } }

func New(refs RefStore, locator qrlocate.Locator, opts ...Option) *Pipeline {
	if refs == nil {
		refs = DataURLStore{}
	}
	if locator == nil {
		locator = qrlocate.None{}
	}
	p := &Pipeline{refs: refs, locator: locator, maxBytes: DefaultMaxBytes, log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest reads one image from r and writes it to target in sink. On any
// error sink is left untouched.
func (p *Pipeline) Ingest(ctx context.Context, sink Sink, target Target, r io.Reader) (Result, error) {
	list, isList := target.list()
	slot, isSlot := target.slot()
	if !isList && !isSlot {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}

	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return Result{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return Result{}, fmt.Errorf("%w: over %d bytes", ErrTooLarge, p.maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		p.log.Warn("image decode failed", "target", target, "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := checkPixels(cfg); err != nil {
		p.log.Warn("image rejected", "target", target, "width", cfg.Width, "height", cfg.Height)
		return Result{}, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		p.log.Warn("image decode failed", "target", target, "format", format, "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := img.Bounds()
	res := Result{
		Target:      target,
		Width:       b.Dx(),
		Height:      b.Dy(),
		IsLandscape: b.Dx() > b.Dy(),
	}

	contentType := "image/" + format
	if isSlot && slot.IsQR() {
		if cropped, ok := p.cropQR(ctx, img, target); ok {
			data, contentType = cropped, "image/png"
			res.Cropped = true
		}
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	ref, err := p.refs.Put(ctx, data, contentType)
	if err != nil {
		return Result{}, fmt.Errorf("store image: %w", err)
	}
	res.Ref = ref

	if isList {
		item := document.NewImageItem(ref, res.IsLandscape)
		if err := sink.AppendImage(list, item); err != nil {
			return Result{}, fmt.Errorf("append image: %w", err)
		}
		res.ItemID = item.ID
		return res, nil
	}
	if err := sink.SetImageRef(slot, ref); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}
	return res, nil
}

// cropQR is best effort: any failure keeps the original image.
func (p *Pipeline) cropQR(ctx context.Context, img image.Image, target Target) ([]byte, bool) {
	quad, found, err := p.locator.Locate(ctx, qrlocate.ToRGBA(img))
	if err != nil {
		p.log.Warn("qr locate failed, keeping original", "target", target, "error", err)
		return nil, false
	}
	if !found {
		p.log.Info("no qr code found, keeping original", "target", target)
		return nil, false
	}

	crop := CropQR(img, quad)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, crop.Image, imaging.PNG); err != nil {
		p.log.Warn("encode qr crop failed, keeping original", "target", target, "error", err)
		return nil, false
	}
	return buf.Bytes(), true
}

func checkPixels(cfg image.Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return fmt.Errorf("%w: %dx%d is over %d pixels", ErrTooLarge, cfg.Width, cfg.Height, MaxPixels)
	}
	return nil
}
