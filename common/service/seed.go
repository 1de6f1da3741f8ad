package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tableturn/forecaster/common/engine"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/metrics"
	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/seed"
	"github.com/tableturn/forecaster/common/validation"
)

// DefaultSeedDays is how much history a seed request generates by default
const DefaultSeedDays = 60

// SeedRequest describes the location to bootstrap
type SeedRequest struct {
	LocationID   string `json:"locationId"`
	GroupName    string `json:"groupName"`
	LocationName string `json:"locationName"`
	Timezone     string `json:"timezone,omitempty"`
	Days         int    `json:"days,omitempty"`
	Seed         int64  `json:"seed,omitempty"`

	// OnDay is called after each generated day is stored
	OnDay func(done, total int) `json:"-"`
}

// SeedResult summarizes a seed run
type SeedResult struct {
	Location   *models.Location `json:"location"`
	EventCount int              `json:"eventCount"`
	Inserted   int              `json:"inserted"`
	Rollups    int              `json:"rollups"`
}

// SeedService fills a location with synthetic history
type SeedService struct {
	events    EventStore
	locations LocationStore
	rollups   *RollupService
	log       *logger.Logger
	now       func() time.Time
}

// NewSeedService creates a seeding service
func NewSeedService(events EventStore, locations LocationStore, rollups *RollupService, log *logger.Logger) *SeedService {
	if log == nil {
		log = logger.Discard()
	}
	return &SeedService{
		events:    events,
		locations: locations,
		rollups:   rollups,
		log:       log,
		now:       time.Now,
	}
}

// Seed ensures the group and location exist, stores generated events for the
// trailing days through today and rebuilds rollups inline
func (s *SeedService) Seed(ctx context.Context, req SeedRequest) (*SeedResult, error) {
	switch {
	case req.LocationID == "":
		return nil, fmt.Errorf("%w: locationId", validation.ErrMissingField)
	case req.GroupName == "":
		return nil, fmt.Errorf("%w: groupName", validation.ErrMissingField)
	case req.LocationName == "":
		return nil, fmt.Errorf("%w: locationName", validation.ErrMissingField)
	}
	if req.Days <= 0 {
		req.Days = DefaultSeedDays
	}
	if req.Seed == 0 {
		req.Seed = s.now().UnixNano()
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return nil, fmt.Errorf("%w: %q", validation.ErrInvalidTimezone, req.Timezone)
		}
	}

	log := s.log.WithLocationID(req.LocationID)

	group, err := s.locations.EnsureGroup(ctx, uuid.NewString(), req.GroupName)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure group: %w", err)
	}
	loc, err := s.locations.EnsureLocation(ctx, models.Location{
		ID:                req.LocationID,
		Name:              req.LocationName,
		RestaurantGroupID: group.ID,
		Timezone:          req.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure location: %w", err)
	}

	tz := loc.TimeLocation()
	to := s.now().In(tz)
	from := to.AddDate(0, 0, -req.Days)
	total := seed.Days(from, to)

	res := &SeedResult{Location: loc}
	gen := seed.New(req.Seed)
	done := 0
	err = gen.GenerateDays(loc.ID, from, to, func(day time.Time, events []models.DemandEvent) error {
		n, err := s.events.RecordEvents(ctx, events)
		if err != nil {
			return fmt.Errorf("failed to store seed events for %s: %w", day.Format(time.DateOnly), err)
		}
		res.EventCount += len(events)
		res.Inserted += n
		metrics.EventsIngested.WithLabelValues(string(models.SourceSeed), "created").Add(float64(n))

		done++
		if req.OnDay != nil {
			req.OnDay(done, total)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	windowFrom := engine.HourStart(time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, tz))
	windowTo := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, tz).AddDate(0, 0, 1)
	for chunk := windowFrom; chunk.Before(windowTo); chunk = chunk.AddDate(0, 0, 30) {
		end := chunk.AddDate(0, 0, 30)
		if end.After(windowTo) {
			end = windowTo
		}
		n, err := s.rollups.Recompute(ctx, loc.ID, chunk, end)
		if err != nil {
			return nil, fmt.Errorf("failed to roll up seed data: %w", err)
		}
		res.Rollups += n
	}

	log.Info("seed data generated",
		"seed", req.Seed,
		"days", total,
		"events", res.EventCount,
		"inserted", res.Inserted,
		"rollups", res.Rollups,
	)
	return res, nil
}
