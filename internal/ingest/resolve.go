package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// ErrRefNotAllowed is returned for remote references outside the allowed
// image hosts.
var ErrRefNotAllowed = errors.New("image host not allowed")

// Resolver loads the image behind a document reference. Remote references
// are only fetched from AllowedHosts; documents come from imported files,
// so any other host is refused.
type Resolver struct {
	Client       *http.Client
	MaxBytes     int64
	AllowedHosts []string
	// CacheBust appends a throwaway query parameter to remote URLs so a
	// stale cached copy is never used.
	CacheBust bool
}

// NewResolver returns a resolver that fetches remote images from hosts
// only. With no hosts, only data URLs resolve.
func NewResolver(client *http.Client, hosts ...string) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	r := &Resolver{MaxBytes: DefaultMaxBytes, AllowedHosts: hosts, CacheBust: true}
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return errors.New("too many redirects")
		}
		if !r.allowed(req.URL) {
			return fmt.Errorf("redirect to %q: %w", req.URL.Hostname(), ErrRefNotAllowed)
		}
		return nil
	}
	r.Client = &c
	return r
}

func (r *Resolver) allowed(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range r.AllowedHosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

// Open decodes the image referenced by ref, which is a data URL or an
// http(s) URL on an allowed host.
func (r *Resolver) Open(ctx context.Context, ref string) (image.Image, error) {
	var data []byte
	var err error
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, err = decodeDataURL(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err = r.fetch(ctx, ref)
	default:
		return nil, fmt.Errorf("unsupported image reference %.32q", ref)
	}
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := checkPixels(cfg); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

func (r *Resolver) fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse image url: %w", err)
	}
	if !r.allowed(u) {
		return nil, fmt.Errorf("fetch %q: %w", u.Hostname(), ErrRefNotAllowed)
	}
	if r.CacheBust {
		q := u.Query()
		q.Set("_cb", strconv.FormatInt(time.Now().UnixNano(), 10))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > r.MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func decodeDataURL(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data url", ErrDecode)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return []byte(s), nil
}
