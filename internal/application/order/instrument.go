package order

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	domain "github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
	domoutbox "github.com/FacumendezBT/tfu3-andis2/internal/domain/outbox"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability/logctx"
)

const (
	orderService   = "order-service"
	spanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// instruments holds the telemetry shared by every order use case. Metric
// instruments are resolved once at construction.
type instruments struct {
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	stock        observability.Counter   // stock_movements_total{direction}
}

func newInstruments(tel observability.Observability) instruments {
	tel = observability.OrNop(tel)
	m := tel.Metrics()
	return instruments{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", orderService)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
		stock:        m.Counter(observability.MStockMovements),
	}
}

// run tracks one use case execution from begin to end.
type run struct {
	in      *instruments
	ctx     context.Context
	span    trace.Span
	logger  observability.Logger
	useCase string
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

func (in *instruments) begin(ctx context.Context, useCase, name string, attrs ...attribute.KeyValue) (context.Context, *run) {
	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, spanPrefix+name, attrs...)
	return ctx, &run{
		in:      in,
		ctx:     ctx,
		span:    span,
		logger:  logger,
		useCase: useCase,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

// fail marks the run as failed with an explicit status code.
func (r *run) fail(status string) {
	r.outcome, r.status = "error", status
}

func (r *run) note(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// end records span status, RED metrics and the use_case_done log line.
func (r *run) end(err error) {
	lat := time.Since(r.start).Seconds()
	if err != nil && r.outcome != "error" {
		r.fail(statusFromError(err))
	}

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.in.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.in.durHistogram.Observe(lat, observability.L("use_case", r.useCase))

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}

	if err != nil && errors.Is(err, apperr.ErrStore) {
		r.logger.Error("use_case_done", fields...)
		return
	}
	r.logger.Info("use_case_done", fields...)
}

// publish hands e to the publisher with a short deadline. Failures are
// reported to the caller but never undo committed work.
func (in *instruments) publish(ctx context.Context, publisher domoutbox.Publisher, e domoutbox.Event) error {
	if publisher == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err := publisher.Publish(pubCtx, e)
	switch {
	case err != nil:
		outcome = "error"
	case pubCtx.Err() != nil:
		outcome = "canceled"
		err = pubCtx.Err()
	}

	in.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	in.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
	return err
}

func (in *instruments) stockMoved(direction string, items []domain.Item) {
	units := 0
	for _, it := range items {
		units += it.Quantity
	}
	if units > 0 {
		in.stock.Add(float64(units), observability.L("direction", direction))
	}
}

func statusFromError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	case errors.Is(err, product.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, product.ErrNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, domain.ErrIllegalTransition):
		return "ILLEGAL_TRANSITION"
	case errors.Is(err, domain.ErrDeliveredNotDeletable):
		return "DELIVERED_NOT_DELETABLE"
	case errors.Is(err, apperr.ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, apperr.ErrNotFound):
		return "NOT_FOUND"
	default:
		return "STORE_FAILED"
	}
}
