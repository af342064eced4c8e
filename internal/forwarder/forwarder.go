// Package forwarder relays freshly delivered alerts to external channels
// (Telegram, email, desktop, anything shoutrrr can reach). It subscribes
// to the notification service like any other in-process consumer;
// per-target failures are logged and never fatal.
package forwarder

import (
	"context"
	"io"
	"log"
	"log/slog"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/errors"
	"github.com/farmbridge/notify/internal/logging"
	"github.com/farmbridge/notify/internal/notification"
)

// Forwarder relays notifications from the service's subscriber channel to
// the configured shoutrrr URLs.
type Forwarder struct {
	urls    []string
	timeout time.Duration
	sender  *router.ServiceRouter
	service *notification.Service
	ch      <-chan *notification.Notification
	done    chan struct{}
	logger  *slog.Logger
}

// New creates a forwarder from settings. Returns nil when no URLs are
// configured; forwarding is strictly opt-in.
func New(settings *conf.Settings, service *notification.Service) (*Forwarder, error) {
	if len(settings.Forward.URLs) == 0 {
		return nil, nil
	}

	f := &Forwarder{
		urls:    slices.Clone(settings.Forward.URLs),
		timeout: settings.Forward.Timeout,
		service: service,
		done:    make(chan struct{}),
		logger:  logging.ForService("forwarder"),
	}

	sender, err := shoutrrr.CreateSender(f.urls...)
	if err != nil {
		return nil, errors.New(err).
			Component("forwarder").
			Category(errors.CategoryConfiguration).
			Context("url_count", len(f.urls)).
			Build()
	}
	f.sender = sender
	if f.timeout > 0 {
		f.sender.Timeout = f.timeout
	}
	f.sender.SetLogger(log.New(io.Discard, "", 0))

	return f, nil
}

// Start subscribes to the notification service and begins relaying.
func (f *Forwarder) Start() {
	ch, ctx := f.service.Subscribe()
	f.ch = ch

	go f.run(ctx)

	f.logger.Info("alert forwarding started", "targets", len(f.urls))
}

// Stop unsubscribes and waits for the relay goroutine to exit.
func (f *Forwarder) Stop() {
	if f.ch != nil {
		f.service.Unsubscribe(f.ch)
	}
	<-f.done
}

func (f *Forwarder) run(ctx context.Context) {
	defer close(f.done)

	for {
		select {
		case n, ok := <-f.ch:
			if !ok || n == nil {
				return
			}
			f.forward(n)
		case <-ctx.Done():
			return
		}
	}
}

// forward relays one notification. Already-read entries are skipped; a
// replayed delivery must not re-notify the user externally.
func (f *Forwarder) forward(n *notification.Notification) {
	if n.IsRead {
		return
	}

	body := n.Message
	if body == "" {
		body = n.Title
	}

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}

	for _, err := range f.sender.Send(body, &params) {
		if err != nil {
			f.logger.Error("alert forward failed",
				"notification_id", n.ID,
				"error", err)
		}
	}
}
