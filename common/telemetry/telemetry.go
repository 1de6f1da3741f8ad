package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/metrics"
)

// Telemetry serves pprof and Prometheus metrics on their own ports
type Telemetry struct {
	log          *logger.Logger
	pprofAddr    string
	metricsAddr  string
	enablePprof  bool
	enableMetric bool
	servers      []*http.Server
}

// New creates telemetry components
func New(pprofPort, metricsPort int, enablePprof, enableMetrics bool, log *logger.Logger) *Telemetry {
	return &Telemetry{
		log:          log,
		pprofAddr:    fmt.Sprintf("localhost:%d", pprofPort),
		metricsAddr:  fmt.Sprintf(":%d", metricsPort),
		enablePprof:  enablePprof,
		enableMetric: enableMetrics,
	}
}

// MetricsHandler exposes the application registry
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}

// Start starts telemetry endpoints
func (t *Telemetry) Start(ctx context.Context) error {
	if t.enablePprof {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		t.serve("pprof", t.pprofAddr, mux)
	}

	if t.enableMetric {
		mux := http.NewServeMux()
		mux.Handle("/metrics", MetricsHandler())
		t.serve("metrics", t.metricsAddr, mux)
	}

	return nil
}

func (t *Telemetry) serve(name, addr string, handler http.Handler) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	t.servers = append(t.servers, srv)

	go func() {
		t.log.Info(name+" server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Warn(name+" server error", "error", err)
		}
	}()
}

// Stop shuts down the telemetry servers
func (t *Telemetry) Stop(ctx context.Context) error {
	var errs []error
	for _, srv := range t.servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordDuration logs an operation's duration at debug level
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
