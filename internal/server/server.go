// Package server builds the HTTP API around a started app.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/nettle/config"
	"github.com/Ramsey-B/nettle/internal/inject"
	"github.com/Ramsey-B/nettle/internal/middleware"
	"github.com/Ramsey-B/nettle/pkg/routes/entities"
	"github.com/Ramsey-B/nettle/pkg/routes/health"
	"github.com/Ramsey-B/nettle/pkg/routes/runs"
)

// Dependencies are the handlers' collaborators. Stores are nil when
// persistence is disabled.
type Dependencies struct {
	Runner      runs.Runner
	RunStore    runs.RunStore
	EntityStore entities.EntityStore
	Health      *health.Checker
}

// New builds the echo instance with middleware and every route. The
// dependencies are registered in a container of their own, made active on
// every request.
func New(cfg *config.Config, logger ectologger.Logger, deps Dependencies) (*echo.Echo, error) {
	registrations := []inject.Registration{
		inject.Instance(cfg),
		inject.Instance(logger),
		inject.Instance(deps.RunStore),
		inject.Instance(deps.EntityStore),
	}
	if deps.Runner != nil {
		registrations = append(registrations,
			inject.Instance[runs.Runner](deps.Runner),
			inject.Instance[entities.LastRun](deps.Runner),
		)
	}

	container, err := inject.NewContainer(logger, registrations...)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(middleware.Context())
	e.Use(middleware.Container(container.GetContainerID()))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Logger(logger))

	deps.Health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	runs.Register(api.Group("/runs"))
	entities.Register(api.Group("/entities"))

	return e, nil
}

// Serve listens until ctx is done, then shuts down gracefully
func Serve(ctx context.Context, e *echo.Echo, cfg *config.Config, logger ectologger.Logger) error {
	e.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", e.Server.Addr)
		if err := e.StartServer(e.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server")
	return e.Shutdown(shutdownCtx)
}
