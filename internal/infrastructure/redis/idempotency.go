package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "orders:idempotency:"
	// pendingValue marks a reserved key whose order is not committed yet.
	pendingValue = "pending"
	// pendingTTL bounds how long a crashed request can hold a key.
	pendingTTL = time.Minute
)

type kvClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyStore maps Idempotency-Key values to order ids. A key is
// claimed with SET NX before the order is written, then overwritten with the
// order id once it commits. Remembered keys expire after ttl.
type IdempotencyStore struct {
	client kvClient
	ttl    time.Duration
}

func NewIdempotencyStore(client kvClient, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	ttl := pendingTTL
	if s.ttl > 0 && s.ttl < ttl {
		ttl = s.ttl
	}
	ok, err := s.client.SetNX(ctx, idempotencyPrefix+key, pendingValue, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: idempotency reserve: %w", err)
	}
	return ok, nil
}

func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (int64, bool, error) {
	raw, err := s.client.Get(ctx, idempotencyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis: idempotency get: %w", err)
	}
	if raw == pendingValue {
		return 0, true, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis: idempotency value %q: %w", raw, err)
	}
	return id, true, nil
}

func (s *IdempotencyStore) Remember(ctx context.Context, key string, orderID int64) error {
	if err := s.client.Set(ctx, idempotencyPrefix+key, orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: idempotency set: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: idempotency release: %w", err)
	}
	return nil
}
