package outbox

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/FacumendezBT/tfu3-andis2/internal/domain/outbox"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability/logctx"
)

const componentOutbox = "outbox"

type Options struct {
	QueueSize      int
	Concurrency    int
	HandlerTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.HandlerTimeout <= 0 {
		o.HandlerTimeout = 30 * time.Second
	}
	return o
}

// Bus fans order events out to in-process subscribers. It is not durable:
// events still queued when the process dies are lost.
type Bus struct {
	opts Options

	mu   sync.RWMutex
	subs map[string][]domoutbox.Handler

	// closeMu guards closed and the send side of queue.
	closeMu sync.RWMutex
	closed  bool

	queue     chan domoutbox.Event
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	log        observability.Logger
	dispatched observability.Counter
}

func NewBus(tel observability.Observability, opts Options) *Bus {
	tel = observability.OrNop(tel)
	opts = opts.withDefaults()
	return &Bus{
		opts:       opts,
		subs:       make(map[string][]domoutbox.Handler),
		queue:      make(chan domoutbox.Event, opts.QueueSize),
		done:       make(chan struct{}),
		log:        tel.Logger().With(observability.F("component", componentOutbox)),
		dispatched: tel.Metrics().Counter(observability.MEventsDispatched),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

// Start launches the dispatch loop. It runs until Stop.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started",
			observability.F("queue_size", b.opts.QueueSize),
			observability.F("concurrency", b.opts.Concurrency),
		)
	})
}

// Stop refuses new events and waits until queued ones are handled or ctx
// expires. A bus that was never started is simply closed.
func (b *Bus) Stop(ctx context.Context) error {
	var err error
	b.stopOnce.Do(func() {
		b.closeMu.Lock()
		b.closed = true
		close(b.queue)
		b.closeMu.Unlock()

		drained := false
		b.startOnce.Do(func() { close(b.done) })
		select {
		case <-b.done:
			drained = true
		case <-ctx.Done():
			err = ctx.Err()
		}
		logctx.FromOr(ctx, b.log).Info("event_bus_stopped",
			observability.F("drained", drained),
		)
	})
	return err
}

// Publish enqueues e. It blocks while the queue is full, up to ctx.
func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return domoutbox.ErrClosed
	}

	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- e:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted", observability.F("error", ctx.Err()))
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for e := range b.queue {
		b.fanout(ctx, e)
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	logger := b.log.With(observability.F("event", name))
	if len(handlers) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		b.dispatched.Add(1, observability.L("event", name), observability.L("outcome", "dropped"))
		return
	}

	sem := make(chan struct{}, b.opts.Concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			outcome := "success"
			defer func() {
				if r := recover(); r != nil {
					outcome = "panic"
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				b.dispatched.Add(1, observability.L("event", name), observability.L("outcome", outcome))
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(logctx.With(ctx, logger), b.opts.HandlerTimeout)
			defer cancel()
			if err := h(hctx, e); err != nil {
				outcome = "error"
				logger.Warn("event_handler_error", observability.F("error", err))
			}
		}()
	}
	wg.Wait()

	logger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
}
