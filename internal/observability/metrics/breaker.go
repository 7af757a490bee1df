package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// breakerStates exports the circuit breaker state per outbound operation:
// 0 closed, 1 half-open, 2 open.
type breakerStates struct {
	service string
	gauge   *prometheus.GaugeVec
}

func newBreakerStates(service, subsystem string) breakerStates {
	return breakerStates{
		service: service,
		gauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
			},
			[]string{"service", "operation"},
		),
	}
}

// ObserveBreakerState matches resilience.StateObserver.
func (b breakerStates) ObserveBreakerState(operation string, _ gobreaker.State, to gobreaker.State) {
	var v float64
	switch to {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	b.gauge.WithLabelValues(b.service, operation).Set(v)
}
