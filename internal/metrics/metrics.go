// Package metrics exposes Prometheus instrumentation for remote calls and
// batch runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal counts remote calls by operation and outcome.
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocklink_calls_total",
			Help: "Total number of remote ERP calls",
		},
		[]string{"operation", "status"},
	)

	// CallDuration observes wire-call latency per operation. The remote
	// system's server-side timeout runs into minutes, hence the wide buckets.
	CallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocklink_call_duration_seconds",
			Help:    "Duration of remote ERP calls",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 180, 600},
		},
		[]string{"operation"},
	)

	// RetriesTotal counts retried fetch attempts per job.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocklink_fetch_retries_total",
			Help: "Total number of retried fetch attempts",
		},
		[]string{"job"},
	)

	// ItemsTotal counts processed items per job and outcome
	// (updated, unchanged, load_error, not_found, zero_filled).
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocklink_items_total",
			Help: "Total number of processed batch items by outcome",
		},
		[]string{"job", "outcome"},
	)
)
