package payment

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	t.Parallel()

	t.Run("organic navigation yields nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, ParseCallback(url.Values{}))
		assert.Nil(t, ParseCallback(url.Values{"utm_source": {"email"}}))
	})

	t.Run("any gateway parameter marks a gateway return", func(t *testing.T) {
		t.Parallel()
		cb := ParseCallback(url.Values{"status": {"cancelled"}})
		require.NotNil(t, cb)
		assert.Equal(t, "cancelled", cb.Status)
		assert.Empty(t, cb.PaymentID)
	})

	t.Run("parameter aliases", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name  string
			query url.Values
			want  Callback
		}{
			{
				name: "camelCase",
				query: url.Values{
					"paymentId": {"pay-1"},
					"orderId":   {"ord-1"},
					"status":    {"success"},
				},
				want: Callback{PaymentID: "pay-1", OrderID: "ord-1", Status: "success"},
			},
			{
				name: "snake_case",
				query: url.Values{
					"payment_id": {"pay-2"},
					"order_id":   {"ord-2"},
				},
				want: Callback{PaymentID: "pay-2", OrderID: "ord-2"},
			},
			{
				name: "gateway-native names",
				query: url.Values{
					"transactionId": {"txn-3"},
					"reference":     {"ord-3"},
					"paymentStatus": {"paid"},
					"amount":        {"49.90"},
					"currency":      {"EUR"},
				},
				want: Callback{PaymentID: "txn-3", OrderID: "ord-3", Status: "paid", Amount: "49.90", Currency: "EUR"},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				cb := ParseCallback(tt.query)
				require.NotNil(t, cb)
				assert.Equal(t, tt.want, *cb)
			})
		}
	})
}

func TestSuccessSignal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status string
		want   bool
	}{
		{"success", true},
		{"SUCCESS", true},
		{"Completed", true},
		{"paid", true},
		{"", false},
		{"cancelled", false},
		{"failed", false},
		{"processing", false},
	}

	for _, tt := range tests {
		t.Run("status "+tt.status, func(t *testing.T) {
			t.Parallel()
			cb := &Callback{Status: tt.status}
			assert.Equal(t, tt.want, cb.SuccessSignal())
		})
	}
}

func TestPendingOrderIsFree(t *testing.T) {
	t.Parallel()

	assert.True(t, (&PendingOrder{Amount: 0}).IsFree())
	assert.False(t, (&PendingOrder{Amount: 0.01}).IsFree())
}
