package workerpresentation

import (
	"context"
	"maps"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability/logctx"
)

// WithEventContext stores a logger for one background event execution.
// It always carries event_id (generated when attrs has none) and the span
// identifiers when sc is valid. Keep attrs low-cardinality.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	sc trace.SpanContext,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields := make([]observability.Field, 0, len(attrs)+3)
	fields = append(fields, observability.F("event_id", evtID))

	if sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}

	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		if k == "event_id" || attrs[k] == "" {
			continue
		}
		fields = append(fields, observability.F(k, attrs[k]))
	}
	return logctx.With(ctx, base.With(fields...))
}
