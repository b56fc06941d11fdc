package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	payments    *prometheus.CounterVec
	adjustments prometheus.Counter
	amounts     *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		payments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rtscore_ledger_payments_total",
			Help: "Payments recorded, by method.",
		}, []string{"method"}),
		adjustments: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtscore_ledger_adjustments_total",
			Help: "Adjustments recorded.",
		}),
		amounts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rtscore_ledger_payment_amount",
			Help:    "Payment amounts, by method.",
			Buckets: prometheus.ExponentialBuckets(100, 2.5, 8),
		}, []string{"method"}),
	}
}

func (m *Metrics) ObservePayment(method string, amount float64) {
	m.payments.WithLabelValues(method).Inc()
	m.amounts.WithLabelValues(method).Observe(amount)
}

func (m *Metrics) ObserveAdjustment() {
	m.adjustments.Inc()
}
