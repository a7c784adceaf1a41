package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// SessionIDLength is the number of hex characters in a generated session ID
const SessionIDLength = 8

// Manager keeps live sessions in memory, keyed by lowercased ID, and mirrors
// them to an optional SessionPersistence
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	mu          sync.RWMutex
}

// NewManager returns a memory-only manager
func NewManager() *Manager {
	return NewManagerWithPersistence(nil)
}

// NewManagerWithPersistence returns a manager that saves through persistence
func NewManagerWithPersistence(persistence SessionPersistence) *Manager {
	return &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: persistence,
	}
}

func key(id string) string {
	return strings.ToLower(id)
}

// Create starts a chapter under id, or under a generated ID when id is empty
func (m *Manager) Create(id string, config *engine.ChapterConfig, opts ...engine.Option) (*service.Session, error) {
	if strings.ContainsAny(id, `/\. `) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
	} else if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[key(id)] = sess
	m.autosave(sess, "create")

	logrus.WithFields(logrus.Fields{
		"session": id,
		"chapter": config.ID,
	}).Info("Session created")
	return sess, nil
}

// autosave writes sess when persistence is configured. Failures are logged;
// the in-memory session stays authoritative.
func (m *Manager) autosave(sess *service.Session, event string) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(sess); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"session": sess.ID,
			"event":   event,
		}).Warn("Failed to persist session")
	}
}

func (m *Manager) lookup(id string) (*service.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[key(id)]
	return sess, ok
}

// Get returns a live session, loading it from persistence on a cache miss
func (m *Manager) Get(id string) (*service.Session, error) {
	if sess, ok := m.lookup(id); ok {
		return sess, nil
	}
	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}

	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// a concurrent Get may have cached it first
	if sess, ok := m.sessions[key(id)]; ok {
		return sess, nil
	}
	m.sessions[key(id)] = loaded
	return loaded, nil
}

// GetOrCreate returns the session for id, creating it on config when missing
func (m *Manager) GetOrCreate(id string, config *engine.ChapterConfig, opts ...engine.Option) (*service.Session, error) {
	sess, err := m.Get(id)
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, config, opts...)
	}
	return sess, err
}

// List returns the live sessions in no particular order
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out
}

// Delete drops a session from memory and from storage
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, live := m.sessions[key(id)]
	delete(m.sessions, key(id))

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !live {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory evicts a live session and leaves its stored copy alone
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[key(id)]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, key(id))
	return nil
}

// UpdateLastAccessed marks a session as used now
func (m *Manager) UpdateLastAccessed(id string) error {
	sess, ok := m.lookup(id)
	if !ok {
		return ErrSessionNotFound
	}

	sess.Mu.Lock()
	sess.LastAccessedAt = time.Now()
	sess.Mu.Unlock()

	m.autosave(sess, "access")
	return nil
}

// Save writes one live session; it is a no-op without persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}
	sess, ok := m.lookup(id)
	if !ok {
		return ErrSessionNotFound
	}
	return m.persistence.Save(sess)
}

// CleanupExpiredSessions evicts sessions idle for longer than maxAge and
// returns how many went. Stored copies are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for k, sess := range m.sessions {
		sess.Mu.Lock()
		idle := sess.LastAccessedAt.Before(cutoff)
		sess.Mu.Unlock()

		if idle {
			delete(m.sessions, k)
			removed++
		}
	}

	if removed > 0 {
		logrus.WithField("removed", removed).Info("Evicted idle sessions")
	}
	return removed
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID derives a short unused ID from a random UUID; callers hold m.mu
func (m *Manager) generateSessionID() string {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:SessionIDLength]
		if !m.sessionExists(id) {
			return id
		}
	}
}

// sessionExists reports a live session under id; callers hold m.mu
func (m *Manager) sessionExists(id string) bool {
	_, ok := m.sessions[key(id)]
	return ok
}

// LoadPersistedSessions brings every stored session that is not already live
// into memory. Snapshots that fail to restore are logged and skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restored := 0
	for _, id := range ids {
		if m.sessionExists(id) {
			continue
		}
		sess, err := m.persistence.Load(id)
		if err != nil {
			logrus.WithError(err).WithField("session", id).Warn("Skipping unreadable session")
			continue
		}
		m.sessions[key(id)] = sess
		restored++
	}

	if restored > 0 {
		logrus.WithField("count", restored).Info("Restored persisted sessions")
	}
	return nil
}

// SaveAllSessions writes every live session and reports how many failed
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	failed := 0
	for _, sess := range m.List() {
		if err := m.persistence.Save(sess); err != nil {
			logrus.WithError(err).WithField("session", sess.ID).Warn("Failed to save session")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}
