package workerpresentation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/FacumendezBT/tfu3-andis2/internal/domain/outbox"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/eventsink"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability/logctx"
)

const relayService = "event_relay"

// Relay forwards bus events to every configured sink. A failing sink does
// not stop delivery to the others.
type Relay struct {
	sinks  []eventsink.Sink
	tracer observability.Tracer
	log    observability.Logger
	now    func() time.Time

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewRelay(tel observability.Observability, sinks ...eventsink.Sink) *Relay {
	tel = observability.OrNop(tel)
	return &Relay{
		sinks:        sinks,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", relayService)),
		now:          time.Now,
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

// Register subscribes the relay to each event name.
func (r *Relay) Register(sub domoutbox.Subscriber, eventNames ...string) {
	if sub == nil || len(r.sinks) == 0 {
		return
	}
	for _, name := range eventNames {
		sub.Subscribe(name, r.Handle)
	}
}

func (r *Relay) Handle(ctx context.Context, e domoutbox.Event) (err error) {
	msg, err := eventsink.NewMessage(e, r.now())
	if err != nil {
		return err
	}

	ctx, span := r.tracer.Start(ctx, "Relay."+msg.Name,
		attribute.String("event", msg.Name),
		attribute.String("event.id", msg.ID.String()),
		attribute.String("event.key", msg.Key),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "FORWARD_FAILED")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}()

	ctx = WithEventContext(ctx, r.log, trace.SpanContextFromContext(ctx), map[string]string{
		"event_id": msg.ID.String(),
		"event":    msg.Name,
	})
	logger := logctx.FromOr(ctx, r.log)

	var errs []error
	for _, s := range r.sinks {
		start := time.Now()
		sendErr := s.Send(ctx, msg)
		outcome := "success"
		if sendErr != nil {
			outcome = "error"
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), sendErr))
			logger.Warn("event_forward_failed",
				observability.F("sink", s.Name()),
				observability.F("error", sendErr),
			)
		} else {
			logger.Debug("event_forwarded", observability.F("sink", s.Name()))
		}
		r.extCounter.Add(1,
			observability.L("peer", s.Name()),
			observability.L("endpoint", msg.Name),
			observability.L("outcome", outcome),
		)
		r.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", s.Name()),
			observability.L("endpoint", msg.Name),
		)
	}
	return errors.Join(errs...)
}

// Close closes every sink and reports all failures.
func (r *Relay) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
