package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters exported on /metrics.
type Metrics struct {
	operations *prometheus.CounterVec
	deliveries *prometheus.CounterVec
}

// New registers the service counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formini_auth_operations_total",
			Help: "Count of account operations by outcome kind",
		}, []string{"operation", "result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formini_code_deliveries_total",
			Help: "Count of verification code delivery attempts",
		}, []string{"result"}),
	}
	reg.MustRegister(m.operations, m.deliveries)
	return m
}

// NewNop returns metrics registered on a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Operation counts one finished operation. result is "ok" or an error kind.
func (m *Metrics) Operation(operation, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, result).Inc()
}

// Delivery counts one delivery attempt.
func (m *Metrics) Delivery(delivered bool) {
	if m == nil {
		return
	}
	result := "failed"
	if delivered {
		result = "sent"
	}
	m.deliveries.WithLabelValues(result).Inc()
}
