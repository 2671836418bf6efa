// Package metrics exposes the host's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts lifecycle operations by operation name and
	// result (success / failure).
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gsmhost",
		Subsystem: "lifecycle",
		Name:      "operations_total",
		Help:      "Lifecycle operations executed, by operation and result.",
	}, []string{"operation", "result"})

	// AutoRestartsTotal counts restarts triggered by unexpected exits.
	AutoRestartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gsmhost",
		Subsystem: "supervisor",
		Name:      "auto_restarts_total",
		Help:      "Automatic restarts triggered by unexpected process exits.",
	})

	// RegisteredInstances tracks the size of the server registry.
	RegisteredInstances = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gsmhost",
		Subsystem: "registry",
		Name:      "instances",
		Help:      "Server instances currently registered.",
	})

	// VersionPollFailuresTotal counts version poll failures per server
	// type.
	VersionPollFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gsmhost",
		Subsystem: "versions",
		Name:      "poll_failures_total",
		Help:      "Version poll failures, by server type.",
	}, []string{"server_type"})
)

// ObserveOperation records one lifecycle operation outcome.
func ObserveOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	OperationsTotal.WithLabelValues(operation, result).Inc()
}
