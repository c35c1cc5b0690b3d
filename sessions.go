package audience

import (
	"context"
	"sync"
	"time"
)

// DefaultSessionTTL is how long an untouched session survives.
const DefaultSessionTTL = time.Hour

// UnlockFunc releases a held session lock.
type UnlockFunc func(ctx context.Context) error

// SessionStore persists conversation state between turns, keyed by an
// opaque session identifier. Implementations expire sessions after a
// TTL; every Save refreshes the expiry (sliding window).
type SessionStore interface {
	// Get returns the state for a session, or ErrSessionNotFound if the
	// identifier is unknown or expired.
	Get(ctx context.Context, sessionID string) (*State, error)

	// Save persists the state and refreshes the session's TTL.
	Save(ctx context.Context, sessionID string, state *State) error
}

// SessionLocker serializes turns on the same session. The store's
// load-mutate-persist cycle is not atomic, so at most one turn per
// session may be in flight.
type SessionLocker interface {
	// Lock blocks until the session lock is held or ctx is done.
	Lock(ctx context.Context, sessionID string) (UnlockFunc, error)
}

// memorySessionStore is an in-process session store with TTL-based
// expiry, used in tests and single-node deployments. It also implements
// SessionLocker with per-session mutexes.
type memorySessionStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

type memoryEntry struct {
	state     *State
	expiresAt time.Time
}

// NewMemorySessionStore creates an in-memory session store. A ttl of 0
// uses DefaultSessionTTL.
func NewMemorySessionStore(ttl time.Duration) *memorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &memorySessionStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Get returns the state for a session. Expired entries are dropped
// lazily.
func (s *memorySessionStore) Get(ctx context.Context, sessionID string) (*State, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	return entry.state.Clone(), nil
}

// Save persists the state and refreshes the TTL.
func (s *memorySessionStore) Save(ctx context.Context, sessionID string, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sessionID] = memoryEntry{
		state:     state.Clone(),
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Lock acquires the per-session mutex.
func (s *memorySessionStore) Lock(ctx context.Context, sessionID string) (UnlockFunc, error) {
	s.lockMu.Lock()
	mu, ok := s.locks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[sessionID] = mu
	}
	s.lockMu.Unlock()

	mu.Lock()
	return func(ctx context.Context) error {
		mu.Unlock()
		return nil
	}, nil
}

// mutexLocker is an in-process SessionLocker for stores that do not
// lock themselves. It only serializes turns within one process.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexLocker) Lock(ctx context.Context, sessionID string) (UnlockFunc, error) {
	l.mu.Lock()
	mu, ok := l.locks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[sessionID] = mu
	}
	l.mu.Unlock()

	mu.Lock()
	return func(ctx context.Context) error {
		mu.Unlock()
		return nil
	}, nil
}
