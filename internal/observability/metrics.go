// Package observability holds the Prometheus metrics for the statement
// pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all pipeline metrics. A nil *Metrics is valid and records
// nothing, so wiring metrics stays optional for one-shot commands and tests.
type Metrics struct {
	// Registry owns these metrics; the /metrics endpoint serves it.
	Registry *prometheus.Registry

	statementsProcessed *prometheus.CounterVec
	statementRetries    prometheus.Counter
	extractionDuration  prometheus.Histogram
	positionsCreated    prometheus.Counter
	positionsUpdated    prometheus.Counter
}

// NewMetrics creates a dedicated registry and registers all pipeline
// metrics in it. A private registry avoids duplicate-collector panics when
// NewMetrics is called more than once, e.g. in tests.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		statementsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statements_processed_total",
				Help: "Statement uploads that reached a terminal status, by outcome.",
			},
			[]string{"outcome"},
		),
		statementRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "statement_retries_total",
				Help: "Transient statement failures that scheduled a retry.",
			},
		),
		extractionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "extraction_duration_seconds",
				Help:    "Duration of extraction backend calls.",
				Buckets: prometheus.DefBuckets,
			},
		),
		positionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "positions_created_total",
				Help: "Positions created by statement reconciliation.",
			},
		),
		positionsUpdated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "positions_updated_total",
				Help: "Positions revalued by statement reconciliation.",
			},
		),
	}
}

// StatementProcessed counts a terminal pipeline outcome ("completed" or "failed").
func (m *Metrics) StatementProcessed(outcome string) {
	if m == nil {
		return
	}
	m.statementsProcessed.WithLabelValues(outcome).Inc()
}

// RetryScheduled counts one transient failure that will be retried.
func (m *Metrics) RetryScheduled() {
	if m == nil {
		return
	}
	m.statementRetries.Inc()
}

// ObserveExtraction records the duration of one extraction backend call.
func (m *Metrics) ObserveExtraction(d time.Duration) {
	if m == nil {
		return
	}
	m.extractionDuration.Observe(d.Seconds())
}

// PositionCreated counts a position created from a statement.
func (m *Metrics) PositionCreated() {
	if m == nil {
		return
	}
	m.positionsCreated.Inc()
}

// PositionUpdated counts a position revalued from a statement.
func (m *Metrics) PositionUpdated() {
	if m == nil {
		return
	}
	m.positionsUpdated.Inc()
}
