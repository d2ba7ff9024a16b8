// Package metrics exposes Prometheus collectors for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts committed state transitions per entity family.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pix_transitions_total",
		Help: "Committed state transitions by entity and target state.",
	}, []string{"entity", "to_state"})

	// SweepRuns counts reconciliation sweep item outcomes.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pix_sweep_items_total",
		Help: "Reconciliation sweep items by family and outcome.",
	}, []string{"family", "outcome"})

	// GatewayErrors counts PSP call failures by classification.
	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pix_gateway_errors_total",
		Help: "PSP gateway call failures by kind.",
	}, []string{"kind"})
)

// RecordTransition increments the transition counter.
func RecordTransition(entity, toState string) {
	Transitions.WithLabelValues(entity, toState).Inc()
}

// RecordSweepItem increments the sweep outcome counter.
func RecordSweepItem(family, outcome string) {
	SweepRuns.WithLabelValues(family, outcome).Inc()
}

// RecordGatewayError increments the gateway failure counter.
func RecordGatewayError(kind string) {
	GatewayErrors.WithLabelValues(kind).Inc()
}
