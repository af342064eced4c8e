// Package observability wires the client's Prometheus metrics onto a
// single dedicated registry.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/farmbridge/notify/internal/observability/metrics"
)

// Metrics aggregates the per-component metric sets.
type Metrics struct {
	Notification *metrics.NotificationMetrics
	Push         *metrics.PushMetrics
	Payment      *metrics.PaymentMetrics

	registry *prometheus.Registry
}

// NewMetrics creates a fresh registry with all component metrics
// registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	notificationMetrics, err := metrics.NewNotificationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification metrics: %w", err)
	}

	pushMetrics, err := metrics.NewPushMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create push metrics: %w", err)
	}

	paymentMetrics, err := metrics.NewPaymentMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment metrics: %w", err)
	}

	return &Metrics{
		Notification: notificationMetrics,
		Push:         pushMetrics,
		Payment:      paymentMetrics,
		registry:     registry,
	}, nil
}

// Registry returns the underlying Prometheus registry for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
