package api

import (
	"context"
	"net/http"
	"time"
)

// CreateSubscriptionRequest activates a subscription tier for a user.
// Amount zero is valid: free tiers activate without any payment gateway
// involvement.
type CreateSubscriptionRequest struct {
	UserID        string  `json:"userId"`
	TierID        string  `json:"tierId"`
	UserType      string  `json:"userType"`
	OrderID       string  `json:"orderId"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
}

// CreateSubscriptionResponse is the backend's activation result.
type CreateSubscriptionResponse struct {
	Success        bool   `json:"success"`
	SubscriptionID string `json:"subscriptionId"`
	Message        string `json:"message"`
}

// UpdatePaymentStatusRequest records the gateway outcome against an order.
type UpdatePaymentStatusRequest struct {
	OrderID     string    `json:"orderId"`
	PaymentID   string    `json:"paymentId"`
	Status      string    `json:"status"`
	PaymentDate time.Time `json:"paymentDate"`
}

// CreateSubscription activates a subscription on the backend.
func (c *Client) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*CreateSubscriptionResponse, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/subscriptions", req)
	if err != nil {
		return nil, err
	}

	var resp CreateSubscriptionResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdatePaymentStatus records the payment outcome. This is a best-effort
// secondary call: callers must not let its failure demote a subscription
// activation that already succeeded.
func (c *Client) UpdatePaymentStatus(ctx context.Context, req *UpdatePaymentStatusRequest) error {
	httpReq, err := c.newRequest(ctx, http.MethodPut, "/api/payments/status", req)
	if err != nil {
		return err
	}

	return c.do(httpReq, nil)
}
