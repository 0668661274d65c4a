// Package observability composes the logger, tracer and metric instruments
// into an observability.Observability provider.
package observability

import (
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability/prometrics"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

type registeredMetrics struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *registeredMetrics) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok && c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m *registeredMetrics) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok && h != nil {
		return h
	}
	return observability.NopHistogram()
}

// New assembles a provider from the supplied instruments. Unknown metric keys
// resolve to no-op instruments.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	m := &registeredMetrics{
		counters:   make(map[observability.MetricKey]observability.Counter, len(counters)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(histograms)),
	}
	for k, v := range counters {
		if v != nil {
			m.counters[k] = v
		}
	}
	for k, v := range histograms {
		if v != nil {
			m.histograms[k] = v
		}
	}

	return &provider{tracer: tracer, logger: logger, metrics: m}
}

// NewStandard registers the service's metric set on reg and returns the provider.
func NewStandard(tracer observability.Tracer, logger observability.Logger, reg prometrics.Registry) observability.Observability {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: reg.Counter(string(observability.MUsecaseRequests),
			"Use case executions by outcome.", "use_case", "outcome"),
		observability.MHTTPRequests: reg.Counter(string(observability.MHTTPRequests),
			"HTTP requests by route and status.", "method", "route", "status"),
		observability.MExternalRequests: reg.Counter(string(observability.MExternalRequests),
			"Calls to event sinks and other peers.", "peer", "endpoint", "outcome"),
		observability.MStockMovements: reg.Counter(string(observability.MStockMovements),
			"Units debited from or credited to product stock.", "direction"),
		observability.MEventsDispatched: reg.Counter(string(observability.MEventsDispatched),
			"Events fanned out by the in-process bus.", "event", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: reg.Histogram(string(observability.MUsecaseDuration),
			"Use case latency in seconds.", latencyBuckets, "use_case"),
		observability.MHTTPRequestDuration: reg.Histogram(string(observability.MHTTPRequestDuration),
			"HTTP request latency in seconds.", latencyBuckets, "method", "route", "status"),
		observability.MExternalRequestDuration: reg.Histogram(string(observability.MExternalRequestDuration),
			"Peer call latency in seconds.", latencyBuckets, "peer", "endpoint"),
	}
	return New(tracer, logger, counters, histograms)
}

func (p *provider) Tracer() observability.Tracer { return p.tracer }

func (p *provider) Logger() observability.Logger { return p.logger }

func (p *provider) Metrics() observability.Metrics { return p.metrics }
