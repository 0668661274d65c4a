package outbox_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	domoutbox "github.com/FacumendezBT/tfu3-andis2/internal/domain/outbox"
	infraobs "github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability/prometrics"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/outbox"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEvent struct {
	name string
	id   int
}

func (e testEvent) EventName() string { return e.name }

func stop(t *testing.T, bus *outbox.Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
}

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := outbox.NewBus(nil, outbox.Options{})

	var mu sync.Mutex
	got := map[string][]int{}
	record := func(tag string) domoutbox.Handler {
		return func(_ context.Context, e domoutbox.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got[tag] = append(got[tag], e.(testEvent).id)
			return nil
		}
	}
	bus.Subscribe("order.created", record("a"))
	bus.Subscribe("order.created", record("b"))
	bus.Subscribe("order.deleted", record("c"))
	bus.Start(context.Background())

	for i := 1; i <= 3; i++ {
		require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.created", id: i}))
	}
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.deleted", id: 9}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "nobody.listens", id: 0}))
	stop(t, bus)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got["a"])
	assert.Equal(t, []int{1, 2, 3}, got["b"])
	assert.Equal(t, []int{9}, got["c"])
}

func TestBusRejectsPublishAfterStop(t *testing.T) {
	bus := outbox.NewBus(nil, outbox.Options{})
	bus.Start(context.Background())
	stop(t, bus)

	err := bus.Publish(context.Background(), testEvent{name: "order.created"})
	assert.ErrorIs(t, err, domoutbox.ErrClosed)
	assert.NoError(t, bus.Stop(context.Background()), "second stop is a no-op")
}

func TestBusStopWithoutStart(t *testing.T) {
	bus := outbox.NewBus(nil, outbox.Options{})
	assert.NoError(t, bus.Stop(context.Background()))
}

func TestBusPublishHonoursContextWhenFull(t *testing.T) {
	bus := outbox.NewBus(nil, outbox.Options{QueueSize: 1})
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "x"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := bus.Publish(ctx, testEvent{name: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	bus.Start(context.Background())
	stop(t, bus)
}

func TestBusSurvivesFailingHandlers(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := infraobs.NewStandard(nil, nil, prometrics.New(reg, "", ""))
	bus := outbox.NewBus(obs, outbox.Options{HandlerTimeout: time.Second})

	var calls atomic.Int32
	bus.Subscribe("order.created", func(context.Context, domoutbox.Event) error {
		calls.Add(1)
		return errors.New("sink down")
	})
	bus.Subscribe("order.created", func(context.Context, domoutbox.Event) error {
		calls.Add(1)
		panic("boom")
	})
	bus.Subscribe("order.created", func(ctx context.Context, _ domoutbox.Event) error {
		calls.Add(1)
		_, ok := ctx.Deadline()
		assert.True(t, ok, "handlers run under a deadline")
		return nil
	})
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.created"}))
	stop(t, bus)

	assert.Equal(t, int32(3), calls.Load())
	expected := `
# HELP events_dispatched_total Events fanned out by the in-process bus.
# TYPE events_dispatched_total counter
events_dispatched_total{event="order.created",outcome="error"} 1
events_dispatched_total{event="order.created",outcome="panic"} 1
events_dispatched_total{event="order.created",outcome="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "events_dispatched_total"))
}
