package exam

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts state transitions, the signal that matters operationally:
// a stalled pipeline shows up as scheduled attempts that never reach
// verified.
type Metrics struct {
	Transitions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rtscore_exam_transitions_total",
			Help: "Total attempt state transitions by target state",
		}, []string{"to"}),
	}
}

func (m *Metrics) ObserveTransition(to State) {
	m.Transitions.WithLabelValues(string(to)).Inc()
}
