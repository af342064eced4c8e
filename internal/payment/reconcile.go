package payment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/farmbridge/notify/internal/api"
	"github.com/farmbridge/notify/internal/logging"
	"github.com/farmbridge/notify/internal/observability/metrics"
)

// Backend is the slice of the REST client the reconciler needs.
type Backend interface {
	CreateSubscription(ctx context.Context, req *api.CreateSubscriptionRequest) (*api.CreateSubscriptionResponse, error)
	UpdatePaymentStatus(ctx context.Context, req *api.UpdatePaymentStatusRequest) error
}

// Reconciler resolves a (pending order, gateway callback) pair to a
// single outcome. The create-subscription side effect is issued at most
// once per order within this process, guarded locally before the request
// goes out: double-mounted views and replayed redirects must not even
// duplicate-issue the request, server-side idempotency notwithstanding.
type Reconciler struct {
	backend Backend
	store   *Store
	logger  *slog.Logger
	metrics *metrics.PaymentMetrics

	mu       sync.Mutex
	resolved map[string]bool // order ids whose create-subscription was issued
}

// NewReconciler creates a reconciler over the given backend and store.
func NewReconciler(backend Backend, store *Store) *Reconciler {
	return &Reconciler{
		backend:  backend,
		store:    store,
		logger:   logging.ForService("payment"),
		resolved: make(map[string]bool),
	}
}

// SetMetrics attaches metrics reporting. Optional; nil-safe throughout.
func (r *Reconciler) SetMetrics(m *metrics.PaymentMetrics) {
	r.metrics = m
}

// Resolve reconciles the pending order against the gateway callback.
// cb may be nil (no gateway parameters on the redirect). The result is
// total: every path yields an Outcome, never an error.
func (r *Reconciler) Resolve(ctx context.Context, order *PendingOrder, cb *Callback) Outcome {
	if order == nil {
		return Outcome{
			State:   StateFailed,
			Message: "No pending order was found for this payment.",
		}
	}

	// Paid orders need an unambiguous success signal from the gateway.
	// Anything less is surfaced as a retryable failure with the pending
	// order preserved; no request is issued and the guard stays clear so
	// a retry can resolve it.
	if !order.IsFree() {
		if cb == nil || !cb.SuccessSignal() {
			r.logger.Warn("payment not confirmed by gateway",
				"order_id", order.OrderID,
				"status", callbackStatus(cb))
			r.metrics.RecordReconcile("failed")
			return Outcome{
				State:     StateFailed,
				Message:   "Your payment could not be confirmed. Your order is saved; please retry the payment.",
				Retryable: true,
			}
		}
	}

	// One-shot guard: mark the order resolved before the request is
	// issued so a second resolution attempt, however triggered, is a
	// no-op rather than a duplicate request.
	r.mu.Lock()
	if r.resolved[order.OrderID] {
		r.mu.Unlock()
		r.logger.Info("duplicate reconciliation attempt suppressed",
			"order_id", order.OrderID)
		if r.metrics != nil {
			r.metrics.DuplicateAttempts.Inc()
		}
		r.metrics.RecordReconcile("noop")
		return Outcome{State: StateNoop}
	}
	r.resolved[order.OrderID] = true
	r.mu.Unlock()

	return r.activate(ctx, order, cb)
}

// activate issues the create-subscription call and, on success, the
// best-effort payment status update.
func (r *Reconciler) activate(ctx context.Context, order *PendingOrder, cb *Callback) Outcome {
	resp, err := r.backend.CreateSubscription(ctx, &api.CreateSubscriptionRequest{
		UserID:        order.UserID,
		TierID:        order.TierID,
		UserType:      order.UserType,
		OrderID:       order.OrderID,
		Amount:        order.Amount,
		PaymentMethod: order.PaymentMethod,
	})
	if err != nil || !resp.Success {
		r.logger.Error("subscription activation failed",
			"order_id", order.OrderID,
			"error", err)
		r.metrics.RecordReconcile("failed")
		return Outcome{
			State:   StateFailed,
			Message: "Subscription activation failed. Please contact support with your order reference.",
		}
	}

	if err := r.store.MarkActivated(order.OrderID); err != nil {
		// Local bookkeeping only; the subscription is active regardless.
		r.logger.Error("failed to mark order activated locally",
			"order_id", order.OrderID,
			"error", err)
	}

	r.recordPaymentStatus(ctx, order, cb)

	r.logger.Info("subscription activated",
		"order_id", order.OrderID,
		"subscription_id", resp.SubscriptionID,
		"amount", order.Amount)
	r.metrics.RecordReconcile("activated")

	return Outcome{
		State:          StateActivated,
		Message:        "Your subscription is now active.",
		SubscriptionID: resp.SubscriptionID,
	}
}

// recordPaymentStatus issues the best-effort status update. Its failure
// must not demote the activation outcome already obtained.
func (r *Reconciler) recordPaymentStatus(ctx context.Context, order *PendingOrder, cb *Callback) {
	if cb == nil || cb.PaymentID == "" {
		return // free tier or gateway did not echo a payment reference
	}

	err := r.backend.UpdatePaymentStatus(ctx, &api.UpdatePaymentStatusRequest{
		OrderID:     order.OrderID,
		PaymentID:   cb.PaymentID,
		Status:      cb.Status,
		PaymentDate: time.Now(),
	})
	if err != nil {
		r.logger.Warn("payment status update failed, subscription remains active",
			"order_id", order.OrderID,
			"payment_id", cb.PaymentID,
			"error", err)
		if r.metrics != nil {
			r.metrics.StatusUpdateErrors.Inc()
		}
	}
}

func callbackStatus(cb *Callback) string {
	if cb == nil {
		return "absent"
	}
	if cb.Status == "" {
		return "missing"
	}
	return cb.Status
}
