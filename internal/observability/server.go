package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farmbridge/notify/internal/errors"
	"github.com/farmbridge/notify/internal/logging"
)

// Server exposes the metrics registry for scraping.
type Server struct {
	echo   *echo.Echo
	listen string
	logger *slog.Logger
}

// NewServer creates the exposition listener for the given metrics.
func NewServer(listen string, metrics *Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	return &Server{
		echo:   e,
		listen: listen,
		logger: logging.ForService("observability"),
	}
}

// Start begins serving. Blocks until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("metrics listener starting", "listen", s.listen)
	if err := s.echo.Start(s.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryNetwork).
			Context("listen", s.listen).
			Build()
	}
	return nil
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
