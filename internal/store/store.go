// Package store holds the live commission document of one editing session
// and serialises every change to it.
package store

import (
	"errors"
	"sync"

	"github.com/dohnagen/sheetgen/internal/document"
)

var (
	ErrUnknownElement  = errors.New("unknown element id")
	ErrUnknownList     = errors.New("unknown image list")
	ErrUnknownSlot     = errors.New("unknown image slot")
	ErrIndexOutOfRange = errors.New("image index out of range")
	ErrPricingNotFound = errors.New("pricing item not found")
	ErrUnknownField    = errors.New("unknown field")
	ErrDuplicateID     = errors.New("duplicate item id")
	ErrInvalidValue    = errors.New("invalid value")
)

// ChangeKind says which part of the document a change touched.
type ChangeKind string

const (
	ChangeIdentity   ChangeKind = "identity"
	ChangePortfolio  ChangeKind = "portfolio"
	ChangePricing    ChangeKind = "pricing"
	ChangeNotice     ChangeKind = "notice"
	ChangeContact    ChangeKind = "contact"
	ChangeTheme      ChangeKind = "theme"
	ChangeTypography ChangeKind = "typography"
	ChangeLayout     ChangeKind = "layout"
	ChangeVisibility ChangeKind = "visibility"
	ChangeTransform  ChangeKind = "transform"
	ChangeReplace    ChangeKind = "replace"
)

// Change is delivered to subscribers after every effective mutation.
type Change struct {
	Revision int64              `json:"revision"`
	Kind     ChangeKind         `json:"kind"`
	Element  document.ElementID `json:"element,omitempty"`
	List     document.ListID    `json:"list,omitempty"`
	Index    int                `json:"index,omitempty"`
	ItemID   string             `json:"itemId,omitempty"`
}

// Store is the single authoritative copy of a CommissionDocument. All
// methods are safe for concurrent use. Writes that leave the document
// unchanged neither bump the revision nor notify subscribers.
type Store struct {
	mu  sync.RWMutex
	doc *document.CommissionDocument
	rev int64

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// New returns a store seeded with doc, or with the default document if doc
// is nil. The store keeps its own copy.
func New(doc *document.CommissionDocument) *Store {
	if doc == nil {
		doc = document.Default()
	} else {
		doc = doc.Clone()
	}
	return &Store{
		doc:  doc,
		subs: make(map[int]func(Change)),
	}
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() *document.CommissionDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Revision returns the number of effective changes applied so far.
func (s *Store) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Subscribe registers fn to be called after each change. Calls happen
// outside the store lock, so fn may read from the store. The returned
// func removes the subscription.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// mutate runs fn under the write lock. fn reports whether it changed the
// document; only then is the revision bumped and subscribers notified.
func (s *Store) mutate(ch Change, fn func(d *document.CommissionDocument) (bool, error)) error {
	s.mu.Lock()
	changed, err := fn(s.doc)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.rev++
	ch.Revision = s.rev
	s.mu.Unlock()

	s.notify(ch)
	return nil
}

func (s *Store) notify(ch Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}

// Replace swaps in a copy of doc wholesale, as when a preset is loaded.
func (s *Store) Replace(doc *document.CommissionDocument) {
	c := doc.Clone()
	_ = s.mutate(Change{Kind: ChangeReplace}, func(d *document.CommissionDocument) (bool, error) {
		*d = *c
		return true, nil
	})
}
