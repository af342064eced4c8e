// Package telemetry wires optional Sentry error reporting into the
// errors package. Reporting is disabled unless explicitly configured;
// all failure handling in this client is local-first and works without
// it.
package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/errors"
	"github.com/farmbridge/notify/internal/logging"
)

var enabled atomic.Bool

// Init configures Sentry from settings and installs the error reporting
// hook. A disabled or missing DSN is not an error.
func Init(settings *conf.Settings) error {
	if !settings.Sentry.Enabled || settings.Sentry.DSN == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		AttachStacktrace: true,
		Release:          settings.Main.Name,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	enabled.Store(true)
	errors.SetTelemetryReporter(report)

	logging.ForService("telemetry").Info("sentry telemetry enabled")
	return nil
}

// IsEnabled reports whether telemetry reporting is active.
func IsEnabled() bool {
	return enabled.Load()
}

// report forwards an enhanced error to Sentry with its component and
// category as tags.
func report(ee *errors.EnhancedError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		for k, v := range ee.GetContext() {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(ee.Err)
	})
}

// Flush drains pending events. Call at process shutdown.
func Flush(timeout time.Duration) {
	if enabled.Load() {
		sentry.Flush(timeout)
	}
}
