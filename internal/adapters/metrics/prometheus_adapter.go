package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_active_connections",
			Help: "Number of active WebSocket connections.",
		},
	)

	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_cache_operations_total",
			Help: "Cache store operations by operation and outcome.",
		},
		[]string{"operation", "outcome"}, // outcome: hit, miss, ok, error, degraded
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_events_published_total",
			Help: "Notification events offered to the broker by outcome.",
		},
		[]string{"outcome"}, // ok, error
	)

	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_events_consumed_total",
			Help: "Notification events processed by the dispatcher by outcome.",
		},
		[]string{"outcome"}, // delivered, dropped_offline, malformed, write_error
	)
)

// IncrementActiveConnections increments the active connections gauge.
func IncrementActiveConnections() {
	ActiveConnectionsGauge.Inc()
}

// DecrementActiveConnections decrements the active connections gauge.
func DecrementActiveConnections() {
	ActiveConnectionsGauge.Dec()
}

// ObserveCacheOperation records one cache store call.
func ObserveCacheOperation(operation, outcome string) {
	CacheOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveEventPublished records one publish attempt.
func ObserveEventPublished(outcome string) {
	EventsPublishedTotal.WithLabelValues(outcome).Inc()
}

// ObserveEventConsumed records one dispatcher outcome.
func ObserveEventConsumed(outcome string) {
	EventsConsumedTotal.WithLabelValues(outcome).Inc()
}
