// Package payment reconciles payment-gateway redirects into subscription
// activation. A pending order is persisted locally before the user is
// handed to the gateway; when the gateway redirects back with query
// parameters, the pair (pending order, callback) is resolved to a single
// outcome exactly once.
package payment

import (
	"net/url"
	"strings"
	"time"
)

// OrderStatus tracks a pending order through its lifecycle.
type OrderStatus string

const (
	// StatusPending marks an order awaiting gateway resolution
	StatusPending OrderStatus = "pending"
	// StatusActivated marks an order whose subscription was created
	StatusActivated OrderStatus = "activated"
)

// PendingOrder describes the subscription the user was attempting to
// purchase, persisted in local durable storage keyed by session so a
// failed gateway round-trip can be retried without re-entering purchase
// details.
type PendingOrder struct {
	ID            uint   `gorm:"primarykey"`
	OrderID       string `gorm:"uniqueIndex;size:64"`
	SessionID     string `gorm:"index;size:64"`
	UserID        string `gorm:"size:64"`
	UserType      string `gorm:"size:16"`
	TierID        string `gorm:"size:64"`
	Amount        float64
	PaymentMethod string      `gorm:"size:32"`
	Status        OrderStatus `gorm:"size:16"`
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

// IsFree reports whether the order needs no gateway involvement.
func (o *PendingOrder) IsFree() bool {
	return o.Amount == 0
}

// Callback carries the query parameters the gateway appends to the return
// URL. All fields are optional on the wire; the presence of any of them is
// what distinguishes "came back from the gateway" from organic navigation.
type Callback struct {
	PaymentID string
	OrderID   string
	Status    string
	Amount    string
	Currency  string
}

// callback parameter aliases seen across gateway configurations.
var (
	paymentIDParams = []string{"paymentId", "payment_id", "transactionId"}
	orderIDParams   = []string{"orderId", "order_id", "reference"}
	statusParams    = []string{"status", "paymentStatus"}
)

// ParseCallback extracts gateway parameters from a redirect URL's query.
// Returns nil when none are present: the user navigated here organically
// and no gateway interaction occurred.
func ParseCallback(query url.Values) *Callback {
	cb := &Callback{
		PaymentID: firstParam(query, paymentIDParams...),
		OrderID:   firstParam(query, orderIDParams...),
		Status:    firstParam(query, statusParams...),
		Amount:    query.Get("amount"),
		Currency:  query.Get("currency"),
	}

	if cb.PaymentID == "" && cb.OrderID == "" && cb.Status == "" &&
		cb.Amount == "" && cb.Currency == "" {
		return nil
	}
	return cb
}

func firstParam(query url.Values, names ...string) string {
	for _, name := range names {
		if v := query.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// SuccessSignal reports whether the callback carries an unambiguous
// success status. A missing or unknown status on a paid order is
// ambiguous and must not activate the subscription.
func (cb *Callback) SuccessSignal() bool {
	switch strings.ToLower(cb.Status) {
	case "success", "completed", "paid":
		return true
	default:
		return false
	}
}

// OutcomeState tags the reconciliation result.
type OutcomeState string

const (
	// StateActivated means the subscription was created
	StateActivated OutcomeState = "activated"
	// StateFailed means the payment could not be confirmed; the pending
	// order is preserved for retry
	StateFailed OutcomeState = "failed"
	// StateNoop means a duplicate resolution attempt was suppressed by
	// the one-shot guard
	StateNoop OutcomeState = "noop"
)

// Outcome is the single user-visible result of a reconciliation.
type Outcome struct {
	State          OutcomeState
	Message        string
	Retryable      bool
	SubscriptionID string
}
