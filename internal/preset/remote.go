package preset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Remote is the optional sync endpoint.
type Remote interface {
	Save(ctx context.Context, p Preset) error
	List(ctx context.Context, ownerID string) ([]Preset, error)
	Delete(ctx context.Context, id string) error
}

// NormalizeBaseURL trims whitespace and a trailing slash and prepends
// https:// when no scheme is given. An empty result means local-only mode.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	u = strings.TrimRight(u, "/")
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}

// Client talks to a remote preset endpoint. Any non-2xx response or
// transport failure is reported as ErrRemoteUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns nil when baseURL normalises to empty.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	base := NormalizeBaseURL(baseURL)
	if base == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: base, http: httpClient}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Save(ctx context.Context, p Preset) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preset: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/presets", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) List(ctx context.Context, ownerID string) ([]Preset, error) {
	q := url.Values{"userId": {ownerID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/presets?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRemoteUnavailable, err)
	}
	// Only a JSON array counts as a listing.
	if t := bytes.TrimSpace(data); len(t) == 0 || t[0] != '[' {
		return nil, fmt.Errorf("%w: listing is not an array", ErrRemoteUnavailable)
	}
	var presets []Preset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("%w: decode listing: %v", ErrRemoteUnavailable, err)
	}
	return presets, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	q := url.Values{"id": {id}}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/presets?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrRemoteUnavailable, req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrRemoteUnavailable, req.Method, req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}
