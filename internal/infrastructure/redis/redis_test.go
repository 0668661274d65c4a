package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/eventsink"
)

type fakeRedis struct {
	values    map[string]string
	ttls      map[string]time.Duration
	published map[string][][]byte
	err       error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values:    map[string]string{},
		ttls:      map[string]time.Duration{},
		published: map[string][][]byte{},
	}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, exp time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = fmt.Sprint(value)
	f.ttls[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = fmt.Sprint(value)
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			delete(f.ttls, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.published[channel] = append(f.published[channel], message.([]byte))
	return redis.NewIntResult(1, nil)
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := NewIdempotencyStore(fake, time.Hour)

	_, found, err := store.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	reserved, err := store.Reserve(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, pendingTTL, fake.ttls[idempotencyPrefix+"abc"])

	reserved, err = store.Reserve(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, reserved, "second reservation loses")

	id, found, err := store.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Zero(t, id)

	require.NoError(t, store.Remember(ctx, "abc", 41))
	id, found, err = store.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(41), id)
	assert.Equal(t, time.Hour, fake.ttls[idempotencyPrefix+"abc"])

	require.NoError(t, store.Release(ctx, "abc"))
	_, found, err = store.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyReservationTTLIsCapped(t *testing.T) {
	fake := newFakeRedis()
	store := NewIdempotencyStore(fake, 10*time.Second)

	reserved, err := store.Reserve(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, reserved)
	assert.Equal(t, 10*time.Second, fake.ttls[idempotencyPrefix+"k"])
}

func TestIdempotencyStoreErrors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	fake.values[idempotencyPrefix+"bad"] = "not-a-number"
	store := NewIdempotencyStore(fake, time.Minute)

	_, _, err := store.Lookup(ctx, "bad")
	assert.Error(t, err)

	fake.err = errors.New("i/o timeout")
	_, _, err = store.Lookup(ctx, "abc")
	assert.ErrorContains(t, err, "i/o timeout")
	assert.Error(t, store.Remember(ctx, "abc", 1))
	_, err = store.Reserve(ctx, "abc")
	assert.ErrorContains(t, err, "idempotency reserve")
	assert.Error(t, store.Release(ctx, "abc"))
}

func TestSinkPublishesEnvelope(t *testing.T) {
	fake := newFakeRedis()
	sink := NewSink(fake, "orders.events")

	m, err := eventsink.NewMessage(order.NewOrderDeletedEvent(8, true), time.Now())
	require.NoError(t, err)
	require.NoError(t, sink.Send(context.Background(), m))

	require.Len(t, fake.published["orders.events"], 1)
	var got eventsink.Message
	require.NoError(t, json.Unmarshal(fake.published["orders.events"][0], &got))
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "order.deleted", got.Name)
	assert.Equal(t, "8", got.Key)

	fake.err = errors.New("READONLY")
	assert.ErrorContains(t, sink.Send(context.Background(), m), "READONLY")
	assert.NoError(t, sink.Close())
}
