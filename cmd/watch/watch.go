// Package watch implements the long-running client daemon: snapshot
// load, push channel, read-state synchronization, optional forwarding
// and payment reconciliation.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/farmbridge/notify/internal/api"
	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/events"
	"github.com/farmbridge/notify/internal/forwarder"
	"github.com/farmbridge/notify/internal/logging"
	"github.com/farmbridge/notify/internal/notification"
	"github.com/farmbridge/notify/internal/observability"
	"github.com/farmbridge/notify/internal/payment"
	"github.com/farmbridge/notify/internal/push"
	"github.com/farmbridge/notify/internal/telemetry"
)

// Command creates the watch command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the live notification daemon",
		Long:  "Loads the notification snapshot, opens the push channel, and prints alerts as they arrive until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), settings)
		},
	}
	return cmd
}

func runWatch(ctx context.Context, settings *conf.Settings) error {
	logger := logging.ForService("watch")

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}

	if _, err := events.Initialize(events.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to start read-state event bus: %w", err)
	}

	backend := api.NewClient(settings)

	serviceConfig := &notification.ServiceConfig{
		Debug:            settings.Main.Debug,
		MaxNotifications: settings.Notification.MaxNotifications,
	}

	service := notification.NewService(serviceConfig, backend, nil)
	service.SetMetrics(metrics.Notification)

	// The service owns the transport's lifecycle while the transport
	// delivers into the service, so the transport is wired in afterwards.
	transport := push.NewClient(settings, service)
	transport.SetMetrics(metrics.Push)
	service.SetTransport(transport)
	notification.SetService(service)

	service.Start(ctx)
	defer service.Stop()

	fwd, err := forwarder.New(settings, service)
	if err != nil {
		logger.Error("forwarder setup failed, continuing without it", "error", err)
	}
	if fwd != nil {
		fwd.Start()
		defer fwd.Stop()
	}

	var callbackServer *payment.CallbackServer
	var store *payment.Store
	if settings.Payment.Enabled {
		store, err = payment.NewStore(settings.Payment.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open payment store: %w", err)
		}
		defer store.Close()

		reconciler := payment.NewReconciler(backend, store)
		reconciler.SetMetrics(metrics.Payment)

		callbackServer = payment.NewCallbackServer(
			settings.Payment.CallbackListen,
			settings.User.ID,
			reconciler,
			store,
		)
		go func() {
			if err := callbackServer.Start(); err != nil {
				logger.Error("payment callback server stopped", "error", err)
			}
		}()
	}

	var metricsServer *observability.Server
	if settings.Metrics.Enabled {
		metricsServer = observability.NewServer(settings.Metrics.Listen, metrics)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics listener stopped", "error", err)
			}
		}()
	}

	ch, subCtx := service.Subscribe()
	defer service.Unsubscribe(ch)

	fmt.Printf("FarmBridge notify: %d notifications cached, %d unread. Watching for alerts...\n",
		len(service.List()), service.UnreadCount())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case n := <-ch:
			printNotification(n)
		case <-subCtx.Done():
			return shutdown(logger, callbackServer, metricsServer)
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig.String())
			return shutdown(logger, callbackServer, metricsServer)
		case <-ctx.Done():
			return shutdown(logger, callbackServer, metricsServer)
		}
	}
}

func printNotification(n *notification.Notification) {
	marker := "*"
	if n.IsRead {
		marker = " "
	}
	when := ""
	if n.CreatedAt != nil {
		when = n.CreatedAt.Format(time.RFC3339)
	}
	fmt.Printf("%s [%s] %s: %s\n", marker, when, n.Title, n.Message)
}

func shutdown(logger *slog.Logger, callbackServer *payment.CallbackServer, metricsServer *observability.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if callbackServer != nil {
		if err := callbackServer.Shutdown(ctx); err != nil {
			logger.Info("payment callback server shutdown error", "error", err)
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Info("metrics listener shutdown error", "error", err)
		}
	}

	if bus := events.GetEventBus(); bus != nil {
		if err := bus.Shutdown(5 * time.Second); err != nil {
			logger.Info("event bus shutdown error", "error", err)
		}
	}

	if err := notification.CloseLogger(); err != nil {
		logger.Info("notification log close error", "error", err)
	}

	telemetry.Flush(2 * time.Second)
	return nil
}
