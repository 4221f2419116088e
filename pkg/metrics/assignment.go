package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssignmentMetrics counts delivery assignment outcomes.
type AssignmentMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_assignment_total",
		Help: "Delivery assignment attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(outcomes)
	return &AssignmentMetrics{outcomes: outcomes}
}

func (m *AssignmentMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
