package preset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dohnagen/sheetgen/internal/document"
)

const DefaultSyncTimeout = 8 * time.Second

// Service is the hybrid preset layer. Writes always land in the local
// store first; the remote copy is opportunistic.
type Service struct {
	local   LocalStore
	remote  Remote
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger

	mu     sync.Mutex
	lastMS int64
}

type Option func(*Service)

// WithRemote enables cloud sync. A nil remote keeps the service local-only.
func WithRemote(r Remote) Option {
	return func(s *Service) { s.remote = r }
}

func WithSyncTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(local LocalStore, opts ...Option) *Service {
	s := &Service{
		local:   local,
		timeout: DefaultSyncTimeout,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasRemote reports whether a sync endpoint is configured.
func (s *Service) HasRemote() bool {
	return s.remote != nil
}

// Save snapshots doc under name. The returned location is "cloud" only when
// the remote write also succeeded.
func (s *Service) Save(ctx context.Context, ownerID, name string, doc *document.CommissionDocument) (Preset, Location, error) {
	if doc == nil {
		return Preset{}, "", errors.New("save preset: nil document")
	}
	if ownerID == "" {
		ownerID = LocalOwnerID
	}
	now, ms := s.stamp()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "SAVE FILE " + now.Format("15:04:05")
	}

	p := Preset{
		ID:        NewID(ownerID, ms),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: ms,
		Document:  doc.Clone(),
	}
	if err := s.local.Put(ctx, p); err != nil {
		return Preset{}, "", fmt.Errorf("save preset locally: %w", err)
	}

	loc := LocationLocal
	if s.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.remote.Save(rctx, p)
		cancel()
		if err != nil {
			s.log.Warn("remote save failed, kept local copy", "preset", p.ID, "error", err)
		} else {
			loc = LocationCloud
		}
	}
	s.log.Info("preset saved", "preset", p.ID, "owner", ownerID, "location", loc)
	return p, loc, nil
}

// List returns the owner's presets, newest first, and where they came from.
// A successful remote listing bypasses local data entirely.
func (s *Service) List(ctx context.Context, ownerID string) ([]Preset, Location, error) {
	if ownerID == "" {
		ownerID = LocalOwnerID
	}
	if s.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		presets, err := s.remote.List(rctx, ownerID)
		cancel()
		if err == nil {
			SortNewestFirst(presets)
			return presets, LocationCloud, nil
		}
		s.log.Warn("remote list failed, using local presets", "owner", ownerID, "error", err)
	}

	presets, err := s.local.List(ctx, ownerID)
	if err != nil {
		return nil, "", fmt.Errorf("list local presets: %w", err)
	}
	SortNewestFirst(presets)
	return presets, LocationLocal, nil
}

// Get finds a preset by id. It checks the local store, then the owner's
// remote listing.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Preset, error) {
	p, err := s.local.Get(ctx, id)
	if err == nil {
		if ownerID != "" && p.OwnerID != ownerID {
			return Preset{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
		}
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Preset{}, err
	}
	if s.remote == nil {
		return Preset{}, err
	}

	presets, _, lerr := s.List(ctx, ownerID)
	if lerr != nil {
		return Preset{}, lerr
	}
	for _, rp := range presets {
		if rp.ID == id {
			return rp, nil
		}
	}
	return Preset{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
}

// Load returns a copy of the preset's document merged onto the defaults,
// ready to replace a live document.
func (s *Service) Load(ctx context.Context, ownerID, id string) (*document.CommissionDocument, error) {
	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if p.Document == nil {
		return nil, fmt.Errorf("load %q: %w", id, ErrNotFound)
	}
	doc := p.Document.Clone()
	doc.Normalize()
	return doc, nil
}

// Delete removes id remotely (best effort) and then locally. An id that
// does not belong to ownerID is reported as not found and never reaches
// the remote.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID != "" {
		if !OwnedBy(id, ownerID) {
			return fmt.Errorf("delete %q: %w", id, ErrNotFound)
		}
		if p, err := s.local.Get(ctx, id); err == nil && p.OwnerID != ownerID {
			return fmt.Errorf("delete %q: %w", id, ErrNotFound)
		}
	}
	if s.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.remote.Delete(rctx, id)
		cancel()
		if err != nil {
			s.log.Warn("remote delete failed", "preset", id, "error", err)
		}
	}
	if err := s.local.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete local preset: %w", err)
	}
	return nil
}

// Import validates a preset file and saves it as a new preset. A rejected
// file leaves every store untouched.
func (s *Service) Import(ctx context.Context, ownerID string, data []byte) (Preset, Location, error) {
	doc, format, err := ParseFile(data)
	if err != nil {
		return Preset{}, "", err
	}
	name := "IMPORT " + s.now().Format("15:04:05")
	p, loc, err := s.Save(ctx, ownerID, name, doc)
	if err != nil {
		return Preset{}, "", err
	}
	s.log.Info("preset imported", "preset", p.ID, "format", format)
	return p, loc, nil
}

// Export returns the preset file and its download name. envelope selects
// the versioned wrapper instead of the bare document.
func (s *Service) Export(ctx context.Context, ownerID, id string, envelope bool) ([]byte, string, error) {
	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, "", err
	}
	data, err := ExportJSON(p, envelope)
	if err != nil {
		return nil, "", err
	}
	return data, ExportFilename(p.Name), nil
}

// Reconcile pushes local presets that the remote does not list. Presets
// are immutable, so a missing id is the only divergence worth repairing.
// It returns the number of presets pushed.
func (s *Service) Reconcile(ctx context.Context, ownerID string) (int, error) {
	if s.remote == nil {
		return 0, nil
	}
	if ownerID == "" {
		ownerID = LocalOwnerID
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	remote, err := s.remote.List(rctx, ownerID)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}
	known := make(map[string]struct{}, len(remote))
	for _, p := range remote {
		known[p.ID] = struct{}{}
	}

	local, err := s.local.List(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("reconcile: list local presets: %w", err)
	}
	pushed := 0
	for _, p := range local {
		if _, ok := known[p.ID]; ok {
			continue
		}
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.remote.Save(rctx, p)
		cancel()
		if err != nil {
			return pushed, fmt.Errorf("reconcile %q: %w", p.ID, err)
		}
		pushed++
	}
	if pushed > 0 {
		s.log.Info("presets reconciled", "owner", ownerID, "pushed", pushed)
	}
	return pushed, nil
}

// stamp returns the current time and a strictly increasing millisecond
// value, so two saves in the same millisecond get distinct ids.
func (s *Service) stamp() (time.Time, int64) {
	now := s.now()
	ms := now.UnixMilli()
	s.mu.Lock()
	defer s.mu.Unlock()
	if ms <= s.lastMS {
		ms = s.lastMS + 1
	}
	s.lastMS = ms
	return now, ms
}
