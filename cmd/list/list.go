// Package list implements the one-shot notification listing command.
package list

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/farmbridge/notify/internal/api"
	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/correlate"
	"github.com/farmbridge/notify/internal/notification"
)

// Command creates the list command.
func Command(settings *conf.Settings) *cobra.Command {
	var unreadOnly bool
	var showRefs bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch and print the notification snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(settings, unreadOnly, showRefs)
		},
	}

	cmd.Flags().BoolVarP(&unreadOnly, "unread", "u", false, "Show only unread notifications")
	cmd.Flags().BoolVarP(&showRefs, "refs", "r", false, "Resolve and print alert references")

	return cmd
}

func runList(settings *conf.Settings, unreadOnly, showRefs bool) error {
	backend := api.NewClient(settings)
	if !backend.HasCredential() {
		return fmt.Errorf("no session credential configured, set backend.token or backend.tokenfile")
	}

	ctx, cancel := context.WithTimeout(context.Background(), settings.Backend.Timeout)
	defer cancel()

	items, err := backend.FetchNotifications(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch notifications: %w", err)
	}

	cache := notification.NewCache(settings.Notification.MaxNotifications)
	cache.LoadSnapshot(items)

	resolver := correlate.NewResolver()

	shown := 0
	for _, n := range cache.List() {
		if unreadOnly && n.IsRead {
			continue
		}
		shown++

		marker := "*"
		if n.IsRead {
			marker = " "
		}
		when := ""
		if n.CreatedAt != nil {
			when = n.CreatedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s %-12s [%s] %s\n", marker, n.ID, when, headline(n))

		if showRefs {
			result := resolver.Resolve(n)
			if result.State == correlate.StateResolved {
				fmt.Printf("    ref: alert %s\n", result.Ref)
			} else if len(result.SearchTerms) > 0 {
				fmt.Printf("    ref: unresolved, search terms %q\n", strings.Join(result.SearchTerms, " "))
			}
		}
	}

	fmt.Printf("%d notifications, %d unread\n", shown, cache.UnreadCount())
	return nil
}

// headline picks the display line: title when present, message otherwise.
func headline(n *notification.Notification) string {
	if n.Title != "" {
		return n.Title
	}
	return n.Message
}
