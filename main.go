package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/farmbridge/notify/cmd"
	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/logging"
	"github.com/farmbridge/notify/internal/telemetry"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if settings.Main.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level)

	if err := telemetry.Init(settings); err != nil {
		logging.Warn("telemetry initialization failed", "error", err)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
