// Package kvmetrics exposes call-count and timing instrumentation for the
// KV façade. It backs the "perf" database attribute: opening a database
// with perf tracking enabled registers these collectors with the default
// Prometheus registry. Commits are timed and counted, and active
// transactions and durability markers are tracked as gauges; content
// operations (get, put, delete, scan and the like) are not timed or counted.
package kvmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal counts content/transaction calls by operation and outcome.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharksfin_operations_total",
			Help: "Total number of façade operations by kind and status",
		},
		[]string{"operation", "status"},
	)

	// OperationDuration observes call latency by operation kind.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sharksfin_operation_duration_seconds",
			Help:    "Duration of façade operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// ActiveTransactions tracks the number of transactions currently active per backend.
	ActiveTransactions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sharksfin_active_transactions",
			Help: "Number of transactions currently in the ACTIVE state",
		},
		[]string{"backend"},
	)

	// DurabilityMarker reports the last durability marker delivered per database.
	DurabilityMarker = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sharksfin_durability_marker",
			Help: "Most recent durability marker observed",
		},
		[]string{"backend"},
	)

	registerOnce = map[prometheus.Collector]bool{}
)

// Register registers the package's collectors with the default registry.
// Safe to call more than once; repeat registrations are ignored.
func Register() {
	for _, c := range []prometheus.Collector{OperationsTotal, OperationDuration, ActiveTransactions, DurabilityMarker} {
		if registerOnce[c] {
			continue
		}
		prometheus.MustRegister(c)
		registerOnce[c] = true
	}
}

// Handler returns the Prometheus HTTP handler for a diagnostics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the wall-clock duration of a single call.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveOperation records the timer's duration and bumps the operation counter.
func (t *Timer) ObserveOperation(operation, status string) {
	OperationDuration.WithLabelValues(operation).Observe(t.Duration().Seconds())
	OperationsTotal.WithLabelValues(operation, status).Inc()
}
