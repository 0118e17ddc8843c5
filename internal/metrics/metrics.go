package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "room_reservation"

var (
	once sync.Once

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Count of reservation lifecycle transitions by action.",
		},
		[]string{"action"},
	)

	conflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Count of create/update attempts rejected for overlapping an active reservation.",
		},
	)

	auditFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Count of audit history writes that failed, by stage.",
		},
		[]string{"stage"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_cache_lookups_total",
			Help:      "Availability cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	lockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "room_day_lock_wait_seconds",
			Help:      "Time spent acquiring the per-room-per-day booking lock.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)
)

// Register registers metrics with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(transitions, conflicts, auditFailures, cacheLookups, lockWait, httpDuration)
	})
}

func IncTransition(action string) {
	transitions.WithLabelValues(action).Inc()
}

func IncConflict() {
	conflicts.Inc()
}

func IncAuditFailure(stage string) {
	auditFailures.WithLabelValues(stage).Inc()
}

func IncCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

func ObserveLockWait(seconds float64) {
	lockWait.Observe(seconds)
}

func ObserveHTTP(method, route, code string, seconds float64) {
	httpDuration.WithLabelValues(method, route, code).Observe(seconds)
}
