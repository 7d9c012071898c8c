// Package session owns the lifecycle of editing sessions. Each session holds
// one live document store and the gesture surface that writes into it.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/gesture"
	"github.com/dohnagen/sheetgen/internal/preset"
	"github.com/dohnagen/sheetgen/internal/store"
	"github.com/dohnagen/sheetgen/internal/typeid"
)

var ErrNotFound = errors.New("session not found")

// Publisher fans store changes out to connected clients. *live.Hub
// implements it.
type Publisher interface {
	Publish(sessionID string, ch store.Change, doc *document.CommissionDocument)
	CloseSession(sessionID string)
}

// Session is one open editor. The store is the only copy of its document.
type Session struct {
	ID      string
	OwnerID string
	Created time.Time
	Store   *store.Store
	Surface *gesture.Surface

	lastUsed    atomic.Int64
	unsubscribe func()
}

func (s *Session) touch(now time.Time) { s.lastUsed.Store(now.UnixNano()) }

// LastUsed returns the time of the last request that resolved this session.
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// Manager maps session ids to open sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	pub      Publisher
	now      func() time.Time
	log      *slog.Logger
}

func NewManager(pub Publisher, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		pub:      pub,
		now:      time.Now,
		log:      log,
	}
}

// Create opens a session for ownerID. A nil seed starts from the default
// document.
func (m *Manager) Create(ownerID string, seed *document.CommissionDocument) *Session {
	st := store.New(seed)
	sess := &Session{
		ID:      typeid.NewSessionID(),
		OwnerID: ownerID,
		Created: m.now(),
		Store:   st,
		Surface: gesture.NewSurface(gesture.StoreTargets(st), m.log),
	}
	sess.touch(sess.Created)

	if m.pub != nil {
		id := sess.ID
		sess.unsubscribe = st.Subscribe(func(ch store.Change) {
			m.pub.Publish(id, ch, st.Snapshot())
		})
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.log.Info("session opened", "session", sess.ID, "owner", ownerID)
	return sess
}

// Get returns the session with id if it belongs to ownerID. Sessions of
// other owners are reported as not found.
func (m *Manager) Get(ownerID, id string) (*Session, error) {
	if err := typeid.Validate(id, typeid.PrefixSession); err != nil {
		return nil, fmt.Errorf("get session %q: %w", id, ErrNotFound)
	}
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || sess.OwnerID != ownerID {
		return nil, fmt.Errorf("get session %q: %w", id, ErrNotFound)
	}
	sess.touch(m.now())
	return sess, nil
}

// Close tears a session down and disconnects its feed.
func (m *Manager) Close(ownerID, id string) error {
	sess, err := m.Get(ownerID, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	m.teardown(sess)
	return nil
}

func (m *Manager) teardown(sess *Session) {
	sess.Surface.Reset()
	if sess.unsubscribe != nil {
		sess.unsubscribe()
	}
	if m.pub != nil {
		m.pub.CloseSession(sess.ID)
	}
	m.log.Info("session closed", "session", sess.ID)
}

// Sweep closes sessions idle for longer than maxIdle and returns how many
// were closed.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	var stale []*Session
	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.LastUsed().Before(cutoff) {
			stale = append(stale, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, sess := range stale {
		m.teardown(sess)
	}
	return len(stale)
}

// CloseAll tears down every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, sess := range all {
		m.teardown(sess)
	}
}

// IDs lists the open sessions of ownerID, oldest first.
func (m *Manager) IDs(ownerID string) []string {
	m.mu.RLock()
	var ids []string
	for id, sess := range m.sessions {
		if sess.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Document returns a snapshot of a session's document. A missing session
// also matches preset.ErrNoSession so the preset handler can map it.
func (m *Manager) Document(ownerID, id string) (*document.CommissionDocument, error) {
	sess, err := m.Get(ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", preset.ErrNoSession, err)
	}
	return sess.Store.Snapshot(), nil
}

// Snapshot returns the document together with its revision.
func (m *Manager) Snapshot(ownerID, id string) (*document.CommissionDocument, int64, error) {
	sess, err := m.Get(ownerID, id)
	if err != nil {
		return nil, 0, err
	}
	doc := sess.Store.Snapshot()
	return doc, sess.Store.Revision(), nil
}
