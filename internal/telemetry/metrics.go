package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeApplied    = "applied"
	outcomeRolledBack = "rolled_back"
	outcomeOK         = "ok"
	outcomeError      = "error"
)

// Metrics holds the Prometheus metrics of one patchseries run.
type Metrics struct {
	registry *prometheus.Registry

	TransactionsTotal   *prometheus.CounterVec
	TransactionSize     prometheus.Histogram
	RollbacksTotal      *prometheus.CounterVec
	ReviewQueriesTotal  *prometheus.CounterVec
	ReviewQueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TransactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchseries_transactions_total",
				Help: "Transactions attempted, by outcome",
			},
			[]string{"outcome"},
		),
		TransactionSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "patchseries_transaction_size",
				Help:    "Number of changes per applied transaction",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8), //nolint:mnd // 1..128 changes
			},
		),
		RollbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchseries_rollbacks_total",
				Help: "Transactions rolled back, by failure kind",
			},
			[]string{"kind"},
		),
		ReviewQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchseries_review_queries_total",
				Help: "Review service calls, by host, operation and outcome",
			},
			[]string{"host", "operation", "outcome"},
		),
		ReviewQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patchseries_review_query_duration_seconds",
				Help:    "Review service call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host", "operation"},
		),
	}

	m.registry.MustRegister(
		m.TransactionsTotal,
		m.TransactionSize,
		m.RollbacksTotal,
		m.ReviewQueriesTotal,
		m.ReviewQueryDuration,
	)

	return m
}

// Registry exposes the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TransactionApplied records a successfully applied transaction.
func (m *Metrics) TransactionApplied(size int) {
	m.TransactionsTotal.WithLabelValues(outcomeApplied).Inc()
	m.TransactionSize.Observe(float64(size))
}

// TransactionRolledBack records a transaction whose application was undone.
func (m *Metrics) TransactionRolledBack(kind string) {
	m.TransactionsTotal.WithLabelValues(outcomeRolledBack).Inc()
	m.RollbacksTotal.WithLabelValues(kind).Inc()
}

// ObserveReviewQuery records one review-service call.
func (m *Metrics) ObserveReviewQuery(host, operation string, err error, elapsed time.Duration) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.ReviewQueriesTotal.WithLabelValues(host, operation, outcome).Inc()
	m.ReviewQueryDuration.WithLabelValues(host, operation).Observe(elapsed.Seconds())
}

// WriteToTextfile dumps the metrics in the node-exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
