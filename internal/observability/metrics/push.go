package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PushMetrics contains all Prometheus metrics related to the push channel.
type PushMetrics struct {
	ConnectionStatus  prometheus.Gauge
	LastConnectTime   prometheus.Gauge
	EventsReceived    prometheus.Counter
	EventsIgnored     prometheus.Counter
	DecodeErrors      prometheus.Counter
	ReconnectAttempts prometheus.Counter
}

// NewPushMetrics creates and registers the push channel metrics on the
// given registry.
func NewPushMetrics(registry *prometheus.Registry) (*PushMetrics, error) {
	m := &PushMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "push_connection_status",
			Help: "Current push channel connection status (1 for connected, 0 for disconnected)",
		}),
		LastConnectTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "push_last_connect_time_seconds",
			Help: "Timestamp of the last successful push channel connection",
		}),
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_events_received_total",
			Help: "Total number of push events received",
		}),
		EventsIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_events_ignored_total",
			Help: "Total number of push events ignored due to an unexpected kind",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_decode_errors_total",
			Help: "Total number of push payloads that failed to decode",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_reconnect_attempts_total",
			Help: "Total number of push channel reconnection attempts",
		}),
	}

	collectors := []prometheus.Collector{
		m.ConnectionStatus, m.LastConnectTime, m.EventsReceived,
		m.EventsIgnored, m.DecodeErrors, m.ReconnectAttempts,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register push metrics: %w", err)
		}
	}

	return m, nil
}

// UpdateConnectionStatus updates the connection status gauge and the last
// connect time on transitions to connected.
func (m *PushMetrics) UpdateConnectionStatus(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.ConnectionStatus.Set(1)
		m.LastConnectTime.SetToCurrentTime()
	} else {
		m.ConnectionStatus.Set(0)
	}
}
