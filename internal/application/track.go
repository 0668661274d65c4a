package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability/logctx"
)

// Tracker instruments plain CRUD use cases: one span, the usecase RED
// metrics and a single use_case_done line per call.
type Tracker struct {
	tracer  observability.Tracer
	log     observability.Logger
	reqs    observability.Counter
	latency observability.Histogram
}

func NewTracker(obs observability.Observability, service string) *Tracker {
	obs = observability.OrNop(obs)
	return &Tracker{
		tracer:  obs.Tracer(),
		log:     obs.Logger().With(observability.F("service", service)),
		reqs:    obs.Metrics().Counter(observability.MUsecaseRequests),
		latency: obs.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// Begin opens a span named "UC."+name. The returned func must be called
// exactly once with the use case result.
func (t *Tracker) Begin(ctx context.Context, useCase, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	logger := logctx.FromOr(ctx, t.log).With(observability.F("use_case", useCase))
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := t.tracer.Start(ctx, "UC."+name, attrs...)

	return ctx, func(err error) {
		lat := time.Since(start).Seconds()
		outcome, status := "success", "OK"
		if err != nil {
			outcome, status = "error", ErrorStatus(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()

		t.reqs.Add(1, observability.L("use_case", useCase), observability.L("outcome", outcome))
		t.latency.Observe(lat, observability.L("use_case", useCase))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields, observability.F("trace_id", sc.TraceID().String()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		if errors.Is(err, apperr.ErrStore) {
			logger.Error("use_case_done", fields...)
			return
		}
		logger.Info("use_case_done", fields...)
	}
}

// ErrorStatus maps an error to the coarse status code used in logs and spans.
func ErrorStatus(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	case errors.Is(err, apperr.ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, apperr.ErrNotFound):
		return "NOT_FOUND"
	default:
		return "STORE_FAILED"
	}
}
