package payment

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbridge/notify/internal/api"
	"github.com/farmbridge/notify/internal/errors"
)

// mockBackend counts subscription calls so tests can assert the one-shot
// guard holds.
type mockBackend struct {
	mu                sync.Mutex
	createCalls       int
	statusCalls       int
	createErr         error
	createSuccess     bool
	statusErr         error
	lastCreateRequest *api.CreateSubscriptionRequest
}

func (m *mockBackend) CreateSubscription(ctx context.Context, req *api.CreateSubscriptionRequest) (*api.CreateSubscriptionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.lastCreateRequest = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &api.CreateSubscriptionResponse{
		Success:        m.createSuccess,
		SubscriptionID: "sub-123",
	}, nil
}

func (m *mockBackend) UpdatePaymentStatus(ctx context.Context, req *api.UpdatePaymentStatusRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	return m.statusErr
}

func (m *mockBackend) calls() (create, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls, m.statusCalls
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func pendingOrder(t *testing.T, store *Store, amount float64) *PendingOrder {
	t.Helper()
	order := &PendingOrder{
		OrderID:       "ord-" + t.Name(),
		SessionID:     "sess-1",
		UserID:        "farmer-9",
		UserType:      "farmer",
		TierID:        "tier-premium",
		Amount:        amount,
		PaymentMethod: "card",
	}
	require.NoError(t, store.SavePendingOrder(order))
	return order
}

func TestResolveNilOrder(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{createSuccess: true}
	r := NewReconciler(backend, newTestStore(t))

	outcome := r.Resolve(context.Background(), nil, &Callback{Status: "success"})

	assert.Equal(t, StateFailed, outcome.State)
	assert.False(t, outcome.Retryable)
	create, _ := backend.calls()
	assert.Zero(t, create, "no subscription request without an order")
}

func TestResolvePaidOrderSuccess(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{createSuccess: true}
	store := newTestStore(t)
	order := pendingOrder(t, store, 49.90)
	r := NewReconciler(backend, store)

	cb := &Callback{PaymentID: "pay-1", OrderID: order.OrderID, Status: "success"}
	outcome := r.Resolve(context.Background(), order, cb)

	assert.Equal(t, StateActivated, outcome.State)
	assert.Equal(t, "sub-123", outcome.SubscriptionID)

	create, status := backend.calls()
	assert.Equal(t, 1, create)
	assert.Equal(t, 1, status, "payment status recorded when the gateway echoed a payment id")
	assert.Equal(t, order.OrderID, backend.lastCreateRequest.OrderID)

	stored, err := store.GetByOrderID(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusActivated, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)
}

func TestResolveFreeOrderActivatesWithoutGateway(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{createSuccess: true}
	store := newTestStore(t)
	order := pendingOrder(t, store, 0)
	r := NewReconciler(backend, store)

	// Free tier: no gateway round-trip happened, cb is nil.
	outcome := r.Resolve(context.Background(), order, nil)

	assert.Equal(t, StateActivated, outcome.State)
	create, status := backend.calls()
	assert.Equal(t, 1, create)
	assert.Zero(t, status, "no payment id to record for a free order")
}

func TestResolveDuplicateSuppressed(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{createSuccess: true}
	store := newTestStore(t)
	order := pendingOrder(t, store, 49.90)
	r := NewReconciler(backend, store)

	cb := &Callback{PaymentID: "pay-1", Status: "success"}

	first := r.Resolve(context.Background(), order, cb)
	second := r.Resolve(context.Background(), order, cb)

	assert.Equal(t, StateActivated, first.State)
	assert.Equal(t, StateNoop, second.State)

	create, _ := backend.calls()
	assert.Equal(t, 1, create, "the subscription request must be issued exactly once")
}

func TestResolveAmbiguousCallbackPreservesRetry(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{createSuccess: true}
	store := newTestStore(t)
	order := pendingOrder(t, store, 49.90)
	r := NewReconciler(backend, store)

	for _, cb := range []*Callback{
		nil,
		{PaymentID: "pay-1"},                       // status missing
		{PaymentID: "pay-1", Status: "cancelled"},  // explicit non-success
		{PaymentID: "pay-1", Status: "processing"}, // unknown status
	} {
		outcome := r.Resolve(context.Background(), order, cb)
		assert.Equal(t, StateFailed, outcome.State)
		assert.True(t, outcome.Retryable)
	}

	create, _ := backend.calls()
	assert.Zero(t, create, "ambiguous callbacks must not issue a subscription request")

	// The guard stayed clear, so a later unambiguous success activates.
	outcome := r.Resolve(context.Background(), order, &Callback{PaymentID: "pay-1", Status: "completed"})
	assert.Equal(t, StateActivated, outcome.State)
}

func TestResolveActivationFailure(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	order := pendingOrder(t, store, 49.90)

	t.Run("backend error", func(t *testing.T) {
		backend := &mockBackend{createErr: errors.NewStd("boom")}
		r := NewReconciler(backend, store)

		outcome := r.Resolve(context.Background(), order, &Callback{Status: "success"})
		assert.Equal(t, StateFailed, outcome.State)
	})

	t.Run("backend refusal", func(t *testing.T) {
		backend := &mockBackend{createSuccess: false}
		r := NewReconciler(backend, store)

		outcome := r.Resolve(context.Background(), order, &Callback{Status: "success"})
		assert.Equal(t, StateFailed, outcome.State)
	})
}

func TestStatusUpdateFailureKeepsActivation(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{
		createSuccess: true,
		statusErr:     errors.NewStd("status endpoint down"),
	}
	store := newTestStore(t)
	order := pendingOrder(t, store, 49.90)
	r := NewReconciler(backend, store)

	outcome := r.Resolve(context.Background(), order, &Callback{PaymentID: "pay-1", Status: "paid"})

	assert.Equal(t, StateActivated, outcome.State, "a failed status update must not demote the activation")
}
