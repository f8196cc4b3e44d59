package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memoryEntry struct {
	session Session
	expires time.Time
}

// MemoryStore keeps sessions in process memory.
//
// RevealState transitions never mutate their receiver, so sessions are stored
// and returned by value without deep copies.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. A ttl <= 0 uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
	}
}

// Get returns the session with id, or ErrNotFound if it is missing or expired.
func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.sessions, id)
		return Session{}, ErrNotFound
	}
	return e.session, nil
}

// Save stores s and refreshes its expiry.
func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{session: s, expires: m.now().Add(m.ttl)}
	return nil
}

// Delete removes the session with id. Deleting a missing session is not an error.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Purge drops expired sessions and returns how many were removed.
func (m *MemoryStore) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, e := range m.sessions {
		if !now.Before(e.expires) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Sweeper periodically purges expired sessions from a MemoryStore.
type Sweeper struct {
	store    *MemoryStore
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a sweeper. A nil logger discards output.
func NewSweeper(store *MemoryStore, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{store: store, interval: interval, logger: logger}
}

// Run purges on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return nil
		case <-ticker.C:
			if n := s.store.Purge(); n > 0 {
				s.logger.Debug("purged expired sessions", zap.Int("count", n))
			}
		}
	}
}
