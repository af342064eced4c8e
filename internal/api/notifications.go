package api

import (
	"context"
	"net/http"

	"github.com/farmbridge/notify/internal/notification"
)

// FetchNotifications retrieves the authoritative notification history for
// the current user. The returned order is the server's order; the cache
// layer decides consumer-visible ordering.
func (c *Client) FetchNotifications(ctx context.Context) ([]*notification.Notification, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/notifications", nil)
	if err != nil {
		return nil, err
	}

	var items []*notification.Notification
	if err := c.do(req, &items); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched notification snapshot", "count", len(items))
	return items, nil
}

// MarkNotificationRead marks a notification read on the backend. The
// endpoint is idempotent; marking an already-read notification succeeds.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/notifications/"+id+"/read", nil)
	if err != nil {
		return err
	}

	return c.do(req, nil)
}
