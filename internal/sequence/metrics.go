package sequence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for counter allocation, the main
// contention point of the system.
type Metrics struct {
	Allocations *prometheus.CounterVec
	Conflicts   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Allocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rtscore_sequence_allocations_total",
			Help: "Total successful sequence allocations by family",
		}, []string{"family"}),
		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rtscore_sequence_conflicts_total",
			Help: "Total transient allocation conflicts by family",
		}, []string{"family"}),
	}
}

func (m *Metrics) ObserveAllocation(family string) {
	m.Allocations.WithLabelValues(family).Inc()
}

func (m *Metrics) ObserveConflict(family string) {
	m.Conflicts.WithLabelValues(family).Inc()
}
