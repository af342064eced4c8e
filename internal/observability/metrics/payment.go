package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics contains Prometheus metrics for payment reconciliation.
type PaymentMetrics struct {
	ReconcileOutcomes  *prometheus.CounterVec
	DuplicateAttempts  prometheus.Counter
	StatusUpdateErrors prometheus.Counter
}

// NewPaymentMetrics creates and registers the payment metrics on the
// given registry.
func NewPaymentMetrics(registry *prometheus.Registry) (*PaymentMetrics, error) {
	m := &PaymentMetrics{
		ReconcileOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_reconcile_total",
			Help: "Payment reconciliation attempts by outcome",
		}, []string{"outcome"}),
		DuplicateAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payment_duplicate_attempts_total",
			Help: "Total number of reconciliation attempts suppressed by the one-shot guard",
		}),
		StatusUpdateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payment_status_update_errors_total",
			Help: "Total number of failed best-effort payment status updates",
		}),
	}

	collectors := []prometheus.Collector{
		m.ReconcileOutcomes, m.DuplicateAttempts, m.StatusUpdateErrors,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register payment metrics: %w", err)
		}
	}

	return m, nil
}

// RecordReconcile records one reconciliation outcome
// ("activated", "failed" or "noop").
func (m *PaymentMetrics) RecordReconcile(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileOutcomes.WithLabelValues(outcome).Inc()
}
