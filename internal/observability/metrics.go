package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HoldsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "holdengine_holds_created_total",
			Help: "Total holds created",
		},
	)

	HoldsFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holdengine_holds_finalized_total",
			Help: "Total holds reaching a terminal status",
		},
		[]string{"status"},
	)

	CapacityExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "holdengine_capacity_exceeded_total",
			Help: "Total reservations rejected for insufficient capacity",
		},
	)

	IdempotentReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "holdengine_idempotent_replays_total",
			Help: "Total requests answered from a stored idempotency record",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "holdengine_sweep_seconds",
			Help:    "Duration of expiry sweeps",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "holdengine_store_tx_seconds",
			Help:    "Duration of store transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "holdengine_rate_limit_exceeded_total",
			Help: "Total rate limited requests",
		},
	)
)
