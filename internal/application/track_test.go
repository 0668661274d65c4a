package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	"github.com/FacumendezBT/tfu3-andis2/internal/application"
	infraobs "github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability/zaplogger"
)

func TestTrackerLogsOneLinePerCall(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	obs := infraobs.New(nil, zaplogger.New(zap.New(core)), nil, nil)
	tr := application.NewTracker(obs, "catalog-service")

	_, done := tr.Begin(context.Background(), "product.get", "GetProduct")
	done(apperr.NotFound(nil, "product 7 not found"))

	_, done = tr.Begin(context.Background(), "product.delete", "DeleteProduct")
	done(apperr.Store("delete product", errors.New("conn refused")))

	entries := logs.FilterMessage("use_case_done").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "catalog-service", first["service"])
	assert.Equal(t, "product.get", first["use_case"])
	assert.Equal(t, "NOT_FOUND", first["status"])
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	assert.Equal(t, "STORE_FAILED", entries[1].ContextMap()["status"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, "OK", application.ErrorStatus(nil))
	assert.Equal(t, "VALIDATION_FAILED", application.ErrorStatus(apperr.Validation(nil, "bad")))
	assert.Equal(t, "CONTEXT_CANCELED", application.ErrorStatus(context.Canceled))
	assert.Equal(t, "STORE_FAILED", application.ErrorStatus(errors.New("boom")))
}
