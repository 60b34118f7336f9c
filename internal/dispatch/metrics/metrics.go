// Package metrics defines the Prometheus collectors for the dispatch core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks transport attempts per operation kind and outcome.
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmsd_attempts_total",
			Help: "Total number of dispatch attempts",
		},
		[]string{"kind", "outcome"},
	)

	// ResultsTotal tracks terminal results per operation kind and code.
	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmsd_results_total",
			Help: "Total number of terminal request results",
		},
		[]string{"kind", "code"},
	)

	// AttemptDuration tracks how long one full attempt takes.
	AttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mmsd_attempt_duration_seconds",
			Help:    "Duration of one dispatch attempt",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// HandoffEvents tracks the carrier agent protocol (offered, accepted,
	// declined, resumed, orphaned).
	HandoffEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmsd_handoff_events_total",
			Help: "Total carrier agent handoff events",
		},
		[]string{"event"},
	)

	// NetworkLeaseRefs is the number of requests currently holding the
	// network lease.
	NetworkLeaseRefs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mmsd_network_lease_refs",
			Help: "Current holders of the MMS network lease",
		},
	)

	// QueueDepth is the number of requests waiting per running queue.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mmsd_queue_depth",
			Help: "Requests waiting in the running queue",
		},
		[]string{"kind"},
	)

	// DeliveriesTotal tracks webhook notifications by status.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmsd_deliveries_total",
			Help: "Total webhook deliveries",
		},
		[]string{"status"},
	)
)
