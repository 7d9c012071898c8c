// Package preset saves named snapshots of a commission document locally
// and, when a sync endpoint is configured, remotely.
package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dohnagen/sheetgen/internal/auth"
	"github.com/dohnagen/sheetgen/internal/document"
)

var (
	ErrInvalidFile       = errors.New("invalid preset file")
	ErrNotFound          = errors.New("preset not found")
	ErrRemoteUnavailable = errors.New("remote preset store unavailable")
)

// LocalOwnerID owns presets created without a signed-in owner.
const LocalOwnerID = auth.AnonymousOwnerID

// Location reports where a save landed or where a listing came from.
type Location string

const (
	LocationCloud Location = "cloud"
	LocationLocal Location = "local"
)

// Preset is an immutable named snapshot of a document.
type Preset struct {
	ID        string                       `json:"id"`
	OwnerID   string                       `json:"ownerId"`
	Name      string                       `json:"name"`
	CreatedAt int64                        `json:"createdAt"` // unix milliseconds
	Document  *document.CommissionDocument `json:"document"`
}

// NewID derives a preset id from its owner and creation time.
func NewID(ownerID string, createdAt int64) string {
	return fmt.Sprintf("%s_%d", ownerID, createdAt)
}

// OwnedBy reports whether id was derived by NewID from ownerID.
func OwnedBy(id, ownerID string) bool {
	rest, ok := strings.CutPrefix(id, ownerID+"_")
	if !ok || rest == "" {
		return false
	}
	_, err := strconv.ParseInt(rest, 10, 64)
	return err == nil
}

func (p Preset) Created() time.Time {
	return time.UnixMilli(p.CreatedAt)
}

// UnmarshalJSON also accepts the field names of older sync servers
// ("userId", "data") and documents in the legacy flat layout.
func (p *Preset) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		OwnerID   string          `json:"ownerId"`
		UserID    string          `json:"userId"`
		Name      string          `json:"name"`
		CreatedAt int64           `json:"createdAt"`
		Document  json.RawMessage `json:"document"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	docJSON := raw.Document
	if isEmptyJSON(docJSON) {
		docJSON = raw.Data
	}
	doc, err := decodeDocument(docJSON)
	if err != nil {
		return fmt.Errorf("preset %q: %w", raw.ID, err)
	}

	*p = Preset{
		ID:        raw.ID,
		OwnerID:   raw.OwnerID,
		Name:      raw.Name,
		CreatedAt: raw.CreatedAt,
		Document:  doc,
	}
	if p.OwnerID == "" {
		p.OwnerID = raw.UserID
	}
	return nil
}

func isEmptyJSON(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

// decodeDocument reads a stored document in any layout this program has
// written.
func decodeDocument(raw json.RawMessage) (*document.CommissionDocument, error) {
	if isEmptyJSON(raw) {
		return nil, errors.New("preset has no document")
	}
	doc, _, err := document.Decode(raw)
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, document.ErrMissingName) {
		return document.DecodeStored(raw)
	}
	return nil, err
}

// SortNewestFirst orders presets by creation time, newest first.
func SortNewestFirst(ps []Preset) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].CreatedAt != ps[j].CreatedAt {
			return ps[i].CreatedAt > ps[j].CreatedAt
		}
		return ps[i].ID > ps[j].ID
	})
}
