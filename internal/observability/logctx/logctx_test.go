package logctx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability/logctx"
)

type recordingLogger struct {
	observability.Logger
	fields []observability.Field
}

func (r *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{Logger: observability.NopLogger(), fields: append(append([]observability.Field(nil), r.fields...), fields...)}
}

func TestFromOrFallsBack(t *testing.T) {
	fallback := &recordingLogger{Logger: observability.NopLogger()}

	assert.Same(t, fallback, logctx.FromOr(context.Background(), fallback))
	assert.NotNil(t, logctx.FromOr(context.Background(), nil))
	assert.Nil(t, logctx.From(context.Background()))
}

func TestEnrichStacksFields(t *testing.T) {
	base := &recordingLogger{Logger: observability.NopLogger()}

	ctx := logctx.Enrich(context.Background(), base, observability.F("request_id", "r1"))
	ctx = logctx.Enrich(ctx, base, observability.F("use_case", "order.create"))

	got, ok := logctx.From(ctx).(*recordingLogger)
	if assert.True(t, ok) {
		assert.Equal(t, []observability.Field{
			observability.F("request_id", "r1"),
			observability.F("use_case", "order.create"),
		}, got.fields)
	}
}
