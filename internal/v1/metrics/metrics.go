package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the fan-out server.
//
// Naming convention: namespace_subsystem_name
// - namespace: turbowire (application-level grouping)
// - subsystem: wire, registry, queue, webhook (feature-level grouping)
//
// Metric Types:
// - Gauge: Current state (connections, rooms)
// - Counter: Cumulative events (broadcasts, queue ops, webhook posts)

var (
	// ActiveConnections tracks the current number of live wire connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "turbowire",
		Subsystem: "wire",
		Name:      "connections_active",
		Help:      "Current number of live wire connections",
	})

	// ActiveRooms tracks the current number of rooms with at least one member.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "turbowire",
		Subsystem: "registry",
		Name:      "rooms_active",
		Help:      "Current number of rooms with at least one member",
	})

	// BroadcastsTotal counts broadcast deliveries by outcome.
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "turbowire",
		Subsystem: "registry",
		Name:      "broadcasts_total",
		Help:      "Broadcast delivery attempts by outcome",
	}, []string{"outcome"})

	// QueueOperationsTotal counts offline queue operations by kind and status.
	QueueOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "turbowire",
		Subsystem: "queue",
		Name:      "operations_total",
		Help:      "Offline queue operations by kind and status",
	}, []string{"op", "status"})

	// WebhookDeliveriesTotal counts outbound webhook posts by status.
	WebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "turbowire",
		Subsystem: "webhook",
		Name:      "deliveries_total",
		Help:      "Outbound webhook deliveries by status",
	}, []string{"status"})

	// CircuitBreakerState exposes the queue store breaker state (0 closed, 1 open, 2 half-open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "turbowire",
		Subsystem: "queue",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"name"})

	// RateLimitExceeded counts requests rejected by the rate limiter.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "turbowire",
		Subsystem: "http",
		Name:      "rate_limit_exceeded_total",
		Help:      "Requests rejected by the rate limiter",
	}, []string{"endpoint"})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
