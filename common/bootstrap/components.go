package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/tableturn/forecaster/common/cache"
	"github.com/tableturn/forecaster/common/config"
	"github.com/tableturn/forecaster/common/db"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/queue"
	redisclient "github.com/tableturn/forecaster/common/redis"
	"github.com/tableturn/forecaster/common/telemetry"
)

// Components is what a forecaster process runs on: the event and rollup
// store, the recompute queue, and the ratios cache
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *db.DB
	Redis     *redisclient.Client
	Queue     queue.Queue
	Cache     cache.Cache
	Telemetry *telemetry.Telemetry

	cleanupFuncs []func() error
}

// HealthReport is the per-dependency view served on /health
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`

	// RecomputeBacklog counts rollup recompute tasks not yet finished. It is
	// informational and never fails the report.
	RecomputeBacklog *int64 `json:"recomputeBacklog,omitempty"`
}

// Healthy reports whether every check passed
func (r *HealthReport) Healthy() bool {
	return r.Status == "ok"
}

// Report checks the store and redis, and reads the recompute backlog when the
// queue can report one
func (c *Components) Report(ctx context.Context) *HealthReport {
	report := &HealthReport{Status: "ok", Checks: map[string]string{}}

	check := func(name string, err error) {
		if err != nil {
			report.Status = "unhealthy"
			report.Checks[name] = err.Error()
			return
		}
		report.Checks[name] = "ok"
	}

	if c.DB != nil {
		check("database", c.DB.Health(ctx))
	}
	if c.Redis != nil {
		check("redis", c.Redis.GetUnderlying().Ping(ctx).Err())
	}

	if b, ok := c.Queue.(queue.Backlogger); ok {
		n, err := b.Backlog(ctx, queue.TopicRollupRecompute)
		if err != nil {
			// a stream nobody has consumed yet has no group to count
			c.Logger.Debug("recompute backlog unavailable", "error", err)
		} else {
			report.RecomputeBacklog = &n
		}
	}

	return report
}

// Health returns the first failing check, if any
func (c *Components) Health(ctx context.Context) error {
	report := c.Report(ctx)
	if report.Healthy() {
		return nil
	}
	for _, name := range []string{"database", "redis"} {
		if msg, ok := report.Checks[name]; ok && msg != "ok" {
			return fmt.Errorf("%s unhealthy: %s", name, msg)
		}
	}
	return errors.New("unhealthy")
}

// Shutdown runs cleanups in reverse registration order. Call it with defer
// after Setup.
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}
	c.cleanupFuncs = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	c.Logger.Info("shutdown complete")
	return nil
}

func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
