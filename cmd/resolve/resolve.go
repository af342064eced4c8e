// Package resolve implements the offline correlation command: a raw
// notification record on stdin is resolved to its canonical alert
// reference, or to fallback search terms when nothing matches.
package resolve

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/correlate"
	"github.com/farmbridge/notify/internal/notification"
)

// Command creates the resolve command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a notification record from stdin to its alert reference",
		Long:  "Reads a single JSON notification record from stdin and prints the resolved alert reference, or the fallback search terms when no reference can be derived.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.InOrStdin())
		},
	}
}

func runResolve(in io.Reader) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var n notification.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to decode notification record: %w", err)
	}

	result := correlate.NewResolver().Resolve(&n)

	switch result.State {
	case correlate.StateResolved:
		fmt.Fprintf(os.Stdout, "alert %s\n", result.Ref)
	case correlate.StateUnresolved:
		if len(result.SearchTerms) == 0 {
			fmt.Fprintln(os.Stdout, "unresolved")
			return nil
		}
		fmt.Fprintf(os.Stdout, "unresolved, search: %s\n", strings.Join(result.SearchTerms, " "))
	}

	return nil
}
