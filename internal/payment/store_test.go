package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbridge/notify/internal/errors"
)

func TestStoreSaveAndGet(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	order := &PendingOrder{
		OrderID:   "ord-100",
		SessionID: "sess-1",
		UserID:    "farmer-9",
		TierID:    "tier-premium",
		Amount:    49.90,
	}
	require.NoError(t, store.SavePendingOrder(order))

	got, err := store.GetByOrderID("ord-100")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status, "status defaults to pending")
	assert.Equal(t, "tier-premium", got.TierID)
	assert.InDelta(t, 49.90, got.Amount, 0.001)
}

func TestStoreRejectsEmptyOrderID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.SavePendingOrder(&PendingOrder{SessionID: "sess-1"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestStoreGetMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.GetByOrderID("no-such-order")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStoreLatestPending(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	older := &PendingOrder{OrderID: "ord-1", SessionID: "sess-1", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &PendingOrder{OrderID: "ord-2", SessionID: "sess-1", CreatedAt: time.Now()}
	other := &PendingOrder{OrderID: "ord-3", SessionID: "sess-2", CreatedAt: time.Now()}
	for _, o := range []*PendingOrder{older, newer, other} {
		require.NoError(t, store.SavePendingOrder(o))
	}

	got, err := store.LatestPending("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "ord-2", got.OrderID)

	// Activated orders no longer count as pending.
	require.NoError(t, store.MarkActivated("ord-2"))
	got, err = store.LatestPending("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", got.OrderID)

	_, err = store.LatestPending("sess-unknown")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStoreMarkActivated(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.SavePendingOrder(&PendingOrder{OrderID: "ord-1", SessionID: "sess-1"}))

	require.NoError(t, store.MarkActivated("ord-1"))

	got, err := store.GetByOrderID("ord-1")
	require.NoError(t, err)
	assert.Equal(t, StatusActivated, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.WithinDuration(t, time.Now(), *got.ResolvedAt, time.Minute)
}
