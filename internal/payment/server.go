package payment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/farmbridge/notify/internal/errors"
	"github.com/farmbridge/notify/internal/logging"
)

// CallbackServer hosts the return URL the payment gateway redirects to.
// It parses the gateway's query parameters, pairs them with the persisted
// pending order, runs the reconciler, and renders a terse outcome page.
type CallbackServer struct {
	echo       *echo.Echo
	reconciler *Reconciler
	store      *Store
	sessionID  string
	listen     string
	logger     *slog.Logger
}

// NewCallbackServer creates the listener. sessionID scopes pending-order
// lookup when the gateway does not echo the order reference.
func NewCallbackServer(listen, sessionID string, reconciler *Reconciler, store *Store) *CallbackServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &CallbackServer{
		echo:       e,
		reconciler: reconciler,
		store:      store,
		sessionID:  sessionID,
		listen:     listen,
		logger:     logging.ForService("payment-callback"),
	}

	e.GET("/payment/return", s.handleReturn)

	return s
}

// Start begins serving. Blocks until Shutdown or a listener error.
func (s *CallbackServer) Start() error {
	s.logger.Info("payment callback listener starting", "listen", s.listen)
	if err := s.echo.Start(s.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(err).
			Component("payment").
			Category(errors.CategoryNetwork).
			Context("listen", s.listen).
			Build()
	}
	return nil
}

// Shutdown stops the listener gracefully.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// handleReturn is the gateway return endpoint. The presence of any
// gateway parameter means "the user came back from the gateway"; their
// complete absence means organic navigation, in which case no
// reconciliation runs.
func (s *CallbackServer) handleReturn(c echo.Context) error {
	cb := ParseCallback(c.QueryParams())
	if cb == nil {
		return c.HTML(http.StatusOK,
			"<p>No payment in progress.</p>")
	}

	order := s.lookupOrder(cb)

	outcome := s.reconciler.Resolve(c.Request().Context(), order, cb)

	switch outcome.State {
	case StateActivated:
		return c.HTML(http.StatusOK,
			"<p>"+outcome.Message+"</p>")
	case StateNoop:
		// Duplicate redirect or double-invoked handler: neither an error
		// nor a second success message.
		return c.HTML(http.StatusOK,
			"<p>This payment has already been processed.</p>")
	default:
		return c.HTML(http.StatusOK,
			"<p>"+outcome.Message+"</p><p><a href=\"/payment/retry\">Retry payment</a></p>")
	}
}

// lookupOrder pairs the callback with its pending order: the echoed order
// reference wins, the session's latest pending order is the fallback.
func (s *CallbackServer) lookupOrder(cb *Callback) *PendingOrder {
	if cb.OrderID != "" {
		if order, err := s.store.GetByOrderID(cb.OrderID); err == nil {
			return order
		}
	}

	order, err := s.store.LatestPending(s.sessionID)
	if err != nil {
		s.logger.Warn("no pending order found for gateway callback",
			"order_ref", cb.OrderID,
			"payment_ref", cb.PaymentID)
		return nil
	}
	return order
}
