package preset

import (
	"context"
	"encoding/json"
	"fmt"
)

// LocalStore is the embedded, always-available preset table.
type LocalStore interface {
	Put(ctx context.Context, p Preset) error
	// List returns the owner's presets, newest first.
	List(ctx context.Context, ownerID string) ([]Preset, error)
	Get(ctx context.Context, id string) (Preset, error)
	// Delete removes id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// migration is one additive schema step. Steps never rewrite existing
// rows, so records written by any earlier version stay readable.
type migration struct {
	version    int
	statements []string
}

func encodeDocument(p Preset) (string, error) {
	data, err := json.Marshal(p.Document)
	if err != nil {
		return "", fmt.Errorf("marshal preset %q: %w", p.ID, err)
	}
	return string(data), nil
}

func scanned(id, owner, name string, createdAt int64, doc []byte) (Preset, error) {
	d, err := decodeDocument(doc)
	if err != nil {
		return Preset{}, fmt.Errorf("decode preset %q: %w", id, err)
	}
	return Preset{ID: id, OwnerID: owner, Name: name, CreatedAt: createdAt, Document: d}, nil
}
