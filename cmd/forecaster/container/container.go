package container

import (
	"context"
	"fmt"

	"github.com/tableturn/forecaster/common/bootstrap"
	"github.com/tableturn/forecaster/common/export"
	"github.com/tableturn/forecaster/common/filter"
	"github.com/tableturn/forecaster/common/ratelimit"
	"github.com/tableturn/forecaster/common/repository"
	"github.com/tableturn/forecaster/common/service"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Repositories
	EventRepo    *repository.EventRepository
	RollupRepo   *repository.RollupRepository
	LocationRepo *repository.LocationRepository
	FeedbackRepo *repository.FeedbackRepository

	// Services
	RollupService   *service.RollupService
	IngestService   *service.IngestService
	PlanService     *service.PlanService
	SettingsService *service.SettingsService
	FeedbackService *service.FeedbackService
	SeedService     *service.SeedService

	PlanFilter *filter.PlanFilter

	// RateLimiter is nil unless rate limiting is enabled and Redis is up
	RateLimiter *ratelimit.RateLimiter
	Limits      ratelimit.Limits
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	if components.DB == nil {
		return nil, fmt.Errorf("forecaster requires a database")
	}
	cfg := components.Config

	// Initialize repositories
	eventRepo := repository.NewEventRepository(components.DB)
	rollupRepo := repository.NewRollupRepository(components.DB)
	locationRepo := repository.NewLocationRepository(components.DB)
	feedbackRepo := repository.NewFeedbackRepository(components.DB)

	// Initialize services (bottom-up: dependencies first)
	rollupService := service.NewRollupService(&service.RollupServiceOpts{
		Events:    eventRepo,
		Rollups:   rollupRepo,
		Locations: locationRepo,
		Queue:     components.Queue,
		Mode:      cfg.Rollup.Mode,
		MaxWindow: cfg.Rollup.MaxWindow,
		Logger:    components.Logger,
	})
	ingestService := service.NewIngestService(eventRepo, locationRepo, rollupService, components.Logger)
	planService := service.NewPlanService(rollupRepo, locationRepo, cfg.Forecast.HistoryDays, components.Logger)
	settingsService := service.NewSettingsService(locationRepo, components.Cache, cfg.Cache.DefaultTTL, components.Logger)
	feedbackService := service.NewFeedbackService(feedbackRepo, locationRepo)
	seedService := service.NewSeedService(eventRepo, locationRepo, rollupService, components.Logger)

	planFilter, err := filter.NewPlanFilter()
	if err != nil {
		return nil, fmt.Errorf("failed to create plan filter: %w", err)
	}

	var limiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && components.Redis != nil {
		limiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), components.Logger)
	}

	return &Container{
		Components:      components,
		EventRepo:       eventRepo,
		RollupRepo:      rollupRepo,
		LocationRepo:    locationRepo,
		FeedbackRepo:    feedbackRepo,
		RollupService:   rollupService,
		IngestService:   ingestService,
		PlanService:     planService,
		SettingsService: settingsService,
		FeedbackService: feedbackService,
		SeedService:     seedService,
		PlanFilter:      planFilter,
		RateLimiter:     limiter,
		Limits:          ratelimit.LimitsFromConfig(cfg.RateLimit),
	}, nil
}

// OpenSink opens an export sink by name, defaulting to the configured one
func (c *Container) OpenSink(ctx context.Context, name string) (export.Sink, error) {
	return export.New(ctx, name, c.Components.Config.Export, c.Components.Logger)
}
