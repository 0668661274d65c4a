package memory

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore keeps idempotency keys in process with a fixed TTL.
type IdempotencyStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	keys map[string]idempotencyEntry
}

// idempotencyEntry with orderID 0 is a reservation whose order is not saved yet.
type idempotencyEntry struct {
	orderID int64
	expires time.Time
}

// NewIdempotencyStore keeps keys for ttl; zero means forever.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, now: time.Now, keys: make(map[string]idempotencyEntry)}
}

// Reserve claims key unless a live entry already holds it.
func (s *IdempotencyStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.keys[key] = s.entry(0)
	return true, nil
}

func (s *IdempotencyStore) Lookup(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	return e.orderID, ok, nil
}

// Remember stores orderID under key and restarts its TTL.
func (s *IdempotencyStore) Remember(_ context.Context, key string, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key] = s.entry(orderID)
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, key)
	return nil
}

func (s *IdempotencyStore) live(key string) (idempotencyEntry, bool) {
	e, ok := s.keys[key]
	if !ok {
		return idempotencyEntry{}, false
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		delete(s.keys, key)
		return idempotencyEntry{}, false
	}
	return e, true
}

func (s *IdempotencyStore) entry(orderID int64) idempotencyEntry {
	e := idempotencyEntry{orderID: orderID}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	return e
}
