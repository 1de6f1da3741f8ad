package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableturn/forecaster/common/cache"
	"github.com/tableturn/forecaster/common/config"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/queue"
)

func testConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "test", Port: 8080},
		Cache:   config.CacheConfig{Enabled: true},
		Queue:   config.QueueConfig{Type: "memory"},
	}
}

func TestSetup_MemoryComponents(t *testing.T) {
	ctx := context.Background()
	c, err := Setup(ctx, "test",
		WithCustomConfig(testConfig()),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)

	assert.Nil(t, c.DB)
	assert.Nil(t, c.Redis)
	assert.IsType(t, &queue.MemoryQueue{}, c.Queue)
	assert.IsType(t, &cache.MemoryCache{}, c.Cache)
	assert.NoError(t, c.Health(ctx))
	assert.NoError(t, c.Shutdown(ctx))
}

func TestReport_RecomputeBacklog(t *testing.T) {
	ctx := context.Background()
	c, err := Setup(ctx, "test",
		WithCustomConfig(testConfig()),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	report := c.Report(ctx)
	assert.True(t, report.Healthy())
	require.NotNil(t, report.RecomputeBacklog)
	assert.Zero(t, *report.RecomputeBacklog)

	require.NoError(t, c.Queue.Publish(ctx, queue.TopicRollupRecompute, "loc-1", []byte("{}")))
	require.NoError(t, c.Queue.Publish(ctx, queue.TopicRollupRecompute, "loc-2", []byte("{}")))

	report = c.Report(ctx)
	require.NotNil(t, report.RecomputeBacklog)
	assert.Equal(t, int64(2), *report.RecomputeBacklog)
	assert.Empty(t, report.Checks, "no store or redis configured")
}

func TestSetup_UnknownQueue(t *testing.T) {
	cfg := testConfig()
	cfg.Queue.Type = "carrier-pigeon"

	_, err := Setup(context.Background(), "test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
		WithoutTelemetry(),
	)
	assert.ErrorContains(t, err, "unknown queue type")
}

func TestNeedsRedis(t *testing.T) {
	cfg := testConfig()
	assert.False(t, needsRedis(cfg, defaultOptions()))

	cfg.RateLimit.Enabled = true
	assert.True(t, needsRedis(cfg, defaultOptions()))
	assert.False(t, needsRedis(cfg, &options{skipRedis: true}))

	cfg.RateLimit.Enabled = false
	cfg.Queue.Type = "redis"
	assert.True(t, needsRedis(cfg, defaultOptions()))
	assert.False(t, needsRedis(cfg, &options{skipQueue: true}))
}
