package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsEndpointServesRegistry(t *testing.T) {
	t.Parallel()

	metrics, err := NewMetrics()
	require.NoError(t, err)

	metrics.Notification.Upserts.Inc()
	metrics.Push.EventsReceived.Inc()
	metrics.Payment.RecordReconcile("activated")

	srv := NewServer("127.0.0.1:0", metrics)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "notification_upserts_total 1")
	assert.Contains(t, body, "push_events_received_total 1")
	assert.Contains(t, body, `payment_reconcile_total{outcome="activated"} 1`)
}

func TestMetricsEndpointUnknownPath(t *testing.T) {
	t.Parallel()

	metrics, err := NewMetrics()
	require.NoError(t, err)

	srv := NewServer("127.0.0.1:0", metrics)

	req := httptest.NewRequest(http.MethodGet, "/not-metrics", http.NoBody)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
