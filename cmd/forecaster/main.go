package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tableturn/forecaster/cmd/forecaster/container"
	authmw "github.com/tableturn/forecaster/cmd/forecaster/middleware"
	"github.com/tableturn/forecaster/cmd/forecaster/routes"
	"github.com/tableturn/forecaster/common/bootstrap"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/server"
	"github.com/tableturn/forecaster/common/service"
	"github.com/tableturn/forecaster/common/telemetry"
	"github.com/tableturn/forecaster/common/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap common components (DB, logger, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "forecaster")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap forecaster: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		components.Logger.Error("Failed to initialize service container", "error", err)
		os.Exit(1)
	}

	// Async rollups on the in-memory queue are consumed in this process;
	// the redis queue is drained by cmd/rollup-worker
	if serviceContainer.RollupService.Mode() == service.ModeAsync && components.Config.Queue.Type == "memory" {
		if err := startInProcessWorker(ctx, serviceContainer); err != nil {
			components.Logger.Error("Failed to start recompute worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Echo server
	e := setupEcho()

	// Setup middleware
	setupMiddleware(e)

	// Setup health check
	setupHealthCheck(e, components)

	// Register all routes
	registerRoutes(e, serviceContainer)

	// Start server
	startServer(ctx, e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(requestContext())
	e.Use(middleware.BodyLimit("10M"))
	e.Use(authmw.ExtractUser())
}

// requestContext copies the echo request id into the request context for loggers
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(context.WithValue(req.Context(), logger.RequestIDKey, id)))
			}
			return next(c)
		}
	}
}

// setupHealthCheck registers the health check and metrics endpoints
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		report := components.Report(ctx)
		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, map[string]interface{}{
			"status":           report.Status,
			"service":          "forecaster",
			"checks":           report.Checks,
			"recomputeBacklog": report.RecomputeBacklog,
		})
	})

	e.GET("/metrics", echo.WrapHandler(telemetry.MetricsHandler()))
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterDemandRoutes(e, serviceContainer)
	routes.RegisterPlanRoutes(e, serviceContainer)
	routes.RegisterSettingsRoutes(e, serviceContainer)
}

// startInProcessWorker consumes recompute tasks from the in-memory queue
func startInProcessWorker(ctx context.Context, c *container.Container) error {
	w, err := worker.NewRecomputeWorker(&worker.RecomputeOpts{
		Queue:   c.Components.Queue,
		Handler: c.RollupService,
		Logger:  c.Components.Logger,
	})
	if err != nil {
		return err
	}

	go func() {
		if err := w.Run(ctx); err != nil {
			c.Components.Logger.Error("recompute worker exited", "error", err)
		}
	}()
	return nil
}

// startServer serves until a shutdown signal arrives
func startServer(ctx context.Context, e *echo.Echo, components *bootstrap.Components) {
	port := components.Config.Service.Port
	components.Logger.Info("Starting forecaster", "port", port)

	srv := server.New("forecaster", port, e, components.Logger)
	if err := srv.Run(ctx); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
