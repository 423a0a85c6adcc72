// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetstock",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fleetstock",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	StockMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetstock",
		Name:      "stock_mutations_total",
		Help:      "Stock mutations by direction and outcome.",
	}, []string{"direction", "outcome"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fleetstock",
		Name:      "events_dropped_total",
		Help:      "Change feed events dropped because a subscriber was full.",
	})
)

// Mutation outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeRejected     = "rejected"
	OutcomeConflict     = "conflict"
	OutcomeStorageError = "error"
)
