// Package open implements the read-transition command: marking a
// notification read against the backend, the same path the daemon takes
// when the user opens an alert.
package open

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/farmbridge/notify/internal/api"
	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/notification"
)

// Command creates the open command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "open <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(settings, args[0])
		},
	}
}

func runOpen(settings *conf.Settings, id string) error {
	backend := api.NewClient(settings)
	if !backend.HasCredential() {
		return fmt.Errorf("no session credential configured, set backend.token or backend.tokenfile")
	}

	ctx, cancel := context.WithTimeout(context.Background(), settings.Backend.Timeout)
	defer cancel()

	service := notification.NewService(&notification.ServiceConfig{
		Debug:            settings.Main.Debug,
		MaxNotifications: settings.Notification.MaxNotifications,
	}, backend, nil)

	service.Start(ctx)
	defer service.Stop()

	before, err := service.Get(id)
	if err != nil {
		return fmt.Errorf("notification %s not found in the current snapshot", id)
	}
	if before.IsRead {
		fmt.Printf("notification %s is already read\n", id)
		return nil
	}

	service.Open(ctx, id)

	after, err := service.Get(id)
	if err == nil && after.IsRead {
		fmt.Printf("notification %s marked read\n", id)
		return nil
	}
	return fmt.Errorf("mark-read did not persist for notification %s, it remains unread", id)
}
