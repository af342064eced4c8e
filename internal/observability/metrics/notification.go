// Package metrics provides custom Prometheus metrics for the notify
// client components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains all Prometheus metrics related to the
// notification cache and read-state synchronization.
type NotificationMetrics struct {
	CacheSize        prometheus.Gauge
	UnreadCount      prometheus.Gauge
	Upserts          prometheus.Counter
	DedupMerges      prometheus.Counter
	SnapshotFailures prometheus.Counter
	MarkReadOutcomes *prometheus.CounterVec
}

// NewNotificationMetrics creates and registers the notification metrics
// on the given registry.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{
		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_cache_size",
			Help: "Current number of notifications held in the cache",
		}),
		UnreadCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_unread_count",
			Help: "Current number of unread notifications",
		}),
		Upserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_upserts_total",
			Help: "Total number of notifications upserted into the cache",
		}),
		DedupMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_dedup_merges_total",
			Help: "Total number of upserts that merged into an existing entry",
		}),
		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_snapshot_failures_total",
			Help: "Total number of failed snapshot loads",
		}),
		MarkReadOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_mark_read_total",
			Help: "Mark-read attempts by outcome",
		}, []string{"outcome"}),
	}

	collectors := []prometheus.Collector{
		m.CacheSize, m.UnreadCount, m.Upserts, m.DedupMerges,
		m.SnapshotFailures, m.MarkReadOutcomes,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register notification metrics: %w", err)
		}
	}

	return m, nil
}

// RecordMarkRead records one mark-read attempt outcome
// ("success", "failure" or "skipped").
func (m *NotificationMetrics) RecordMarkRead(outcome string) {
	if m == nil {
		return
	}
	m.MarkReadOutcomes.WithLabelValues(outcome).Inc()
}
