package observability_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraobs "github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability/prometrics"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
)

func TestNewFallsBackToNop(t *testing.T) {
	p := infraobs.New(nil, nil, nil, nil)

	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.Logger())
	assert.NotPanics(t, func() {
		p.Metrics().Counter("missing").Add(1)
		p.Metrics().Histogram("missing").Observe(1)
	})
}

func TestNewStandardRegistersMetricSet(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := infraobs.NewStandard(nil, nil, prometrics.New(reg, "", ""))

	p.Metrics().Counter(observability.MUsecaseRequests).Add(1,
		observability.L("use_case", "order.create"), observability.L("outcome", "success"))
	p.Metrics().Counter(observability.MStockMovements).Add(3, observability.L("direction", "debit"))
	p.Metrics().Histogram(observability.MUsecaseDuration).Observe(0.01, observability.L("use_case", "order.create"))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.ElementsMatch(t, []string{
		"usecase_requests_total",
		"stock_movements_total",
		"usecase_duration_seconds",
	}, names)
}
