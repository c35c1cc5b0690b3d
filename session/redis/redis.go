// Package redis implements the session store and per-session lock on
// Redis, with TTL-based expiry.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	audience "github.com/retailmedia-labs/audience-agent"
)

// ErrLockAcquire is returned when the session lock cannot be acquired.
var ErrLockAcquire = errors.New("failed to acquire session lock")

const (
	defaultPrefix   = "session:"
	defaultLockTTL  = 10 * time.Second
	lockPollBackoff = 50 * time.Millisecond
)

// Store implements audience.SessionStore and audience.SessionLocker
// using Redis. Sessions are stored as JSON under <prefix><sessionID>
// with a sliding TTL refreshed on every Save.
type Store struct {
	client  *backend.Client
	prefix  string
	ttl     time.Duration
	lockTTL time.Duration
}

// Option configures the store.
type Option func(*Store)

// WithTTL sets the session expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLockTTL sets how long a held session lock survives a crashed
// holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.lockTTL = ttl
	}
}

// New creates a Redis session store from an address.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis session store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  defaultPrefix,
		ttl:     audience.DefaultSessionTTL,
		lockTTL: defaultLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) lockKey(sessionID string) string {
	return s.prefix + "lock:" + sessionID
}

// Get returns the state for a session, or audience.ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*audience.State, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, backend.Nil) {
		return nil, audience.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis error loading session: %w", err)
	}

	var state audience.State
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}

	return &state, nil
}

// Save persists the state and refreshes the session TTL.
func (s *Store) Save(ctx context.Context, sessionID string, state *audience.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis error saving session: %w", err)
	}

	return nil
}

// Lock acquires a distributed per-session lock using SET NX, polling
// with backoff until the lock is held or ctx is done. The returned
// UnlockFunc releases the lock only if this holder still owns it.
func (s *Store) Lock(ctx context.Context, sessionID string) (audience.UnlockFunc, error) {
	lockKey := s.lockKey(sessionID)
	val := fmt.Sprintf("%d", time.Now().UnixNano())

	ticker := time.NewTicker(lockPollBackoff)
	defer ticker.Stop()

	for {
		success, err := s.client.SetNX(ctx, lockKey, val, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLockAcquire, err)
		}
		if success {
			return func(ctx context.Context) error {
				// Release only our own lock.
				script := `
					if redis.call("get", KEYS[1]) == ARGV[1] then
						return redis.call("del", KEYS[1])
					else
						return 0
					end
				`
				return s.client.Eval(ctx, script, []string{lockKey}, val).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
