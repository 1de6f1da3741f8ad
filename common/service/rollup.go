package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tableturn/forecaster/common/engine"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/metrics"
	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/queue"
	"github.com/tableturn/forecaster/common/repository"
)

const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// RollupService rebuilds hourly rollups from the event log
type RollupService struct {
	events    EventStore
	rollups   RollupStore
	locations LocationStore
	queue     queue.Queue
	mode      string
	maxWindow time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// RollupServiceOpts contains options for creating a RollupService
type RollupServiceOpts struct {
	Events    EventStore
	Rollups   RollupStore
	Locations LocationStore
	Queue     queue.Queue // required for async mode
	Mode      string
	MaxWindow time.Duration
	Logger    *logger.Logger
}

// NewRollupService creates a rollup service with options pattern
func NewRollupService(opts *RollupServiceOpts) *RollupService {
	mode := opts.Mode
	if mode == "" || opts.Queue == nil {
		mode = ModeSync
	}
	maxWindow := opts.MaxWindow
	if maxWindow <= 0 {
		maxWindow = 90 * 24 * time.Hour
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &RollupService{
		events:    opts.Events,
		rollups:   opts.Rollups,
		locations: opts.Locations,
		queue:     opts.Queue,
		mode:      mode,
		maxWindow: maxWindow,
		log:       log,
		now:       time.Now,
	}
}

// Mode reports whether recomputes run inline or through the queue
func (s *RollupService) Mode() string {
	return s.mode
}

// Recompute rebuilds every rollup in [from, to) for a location, widened to
// whole local hours, and upserts the result. Returns the number of rows written.
func (s *RollupService) Recompute(ctx context.Context, locationID string, from, to time.Time) (int, error) {
	if !from.Before(to) {
		return 0, fmt.Errorf("%w: from %s is not before to %s", ErrInvalidWindow, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	if to.Sub(from) > s.maxWindow {
		return 0, fmt.Errorf("%w: %s exceeds %s", ErrInvalidWindow, to.Sub(from), s.maxWindow)
	}

	loc, err := loadLocation(ctx, s.locations, locationID)
	if err != nil {
		return 0, err
	}
	tz := loc.TimeLocation()

	start := time.Now()
	defer func() { metrics.RecomputeDuration.Observe(time.Since(start).Seconds()) }()

	fromHour := engine.HourStart(from.In(tz))
	toHour := engine.HourStart(to.In(tz))
	if toHour.Before(to) {
		toHour = toHour.Add(time.Hour)
	}

	events, err := s.events.FetchEvents(ctx, locationID, fromHour, toHour)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch events: %w", err)
	}

	rollups := engine.AggregateIn(locationID, events, tz)
	if len(rollups) == 0 {
		return 0, nil
	}

	if err := s.rollups.UpsertRollups(ctx, rollups); err != nil {
		return 0, fmt.Errorf("failed to upsert rollups: %w", err)
	}
	metrics.RollupsUpserted.Add(float64(len(rollups)))

	s.log.WithLocationID(locationID).Debug("rollups recomputed",
		"from", fromHour,
		"to", toHour,
		"events", len(events),
		"rollups", len(rollups),
	)
	return len(rollups), nil
}

// Schedule recomputes inline in sync mode, or publishes a task in async mode.
// Spans wider than the max window are split. queued reports which path was taken.
func (s *RollupService) Schedule(ctx context.Context, locationID string, from, to time.Time) (queued bool, rows int, err error) {
	for chunkFrom := from; chunkFrom.Before(to); chunkFrom = chunkFrom.Add(s.maxWindow) {
		chunkTo := chunkFrom.Add(s.maxWindow)
		if chunkTo.After(to) {
			chunkTo = to
		}

		if s.mode != ModeAsync {
			n, err := s.Recompute(ctx, locationID, chunkFrom, chunkTo)
			recordTask(ModeSync, err)
			if err != nil {
				return false, rows, err
			}
			rows += n
			continue
		}

		err := s.Enqueue(ctx, models.RecomputeTask{
			LocationID:  locationID,
			From:        chunkFrom,
			To:          chunkTo,
			RequestedAt: s.now().UTC(),
		})
		if err != nil {
			return false, 0, err
		}
		queued = true
	}
	return queued, rows, nil
}

// Enqueue publishes a recompute task keyed by location
func (s *RollupService) Enqueue(ctx context.Context, task models.RecomputeTask) error {
	if s.queue == nil {
		return fmt.Errorf("no queue configured for async recompute")
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal recompute task: %w", err)
	}

	err = s.queue.Publish(ctx, queue.TopicRollupRecompute, task.LocationID, payload)
	recordTask("enqueued", err)
	if err != nil {
		return fmt.Errorf("failed to enqueue recompute: %w", err)
	}
	return nil
}

// HandleTask is the queue handler for recompute tasks. Malformed tasks, unknown
// locations and invalid windows are marked queue.ErrPermanent; anything else
// is left for redelivery.
func (s *RollupService) HandleTask(ctx context.Context, key string, value []byte) error {
	var task models.RecomputeTask
	if err := json.Unmarshal(value, &task); err != nil {
		recordTask("consumed", err)
		return fmt.Errorf("%w: failed to decode recompute task %s: %w", queue.ErrPermanent, key, err)
	}

	rows, err := s.Recompute(ctx, task.LocationID, task.From, task.To)
	recordTask("consumed", err)
	if errors.Is(err, ErrLocationNotFound) || errors.Is(err, ErrInvalidWindow) {
		return fmt.Errorf("%w: %w", queue.ErrPermanent, err)
	}
	if err != nil {
		return err
	}

	s.log.WithLocationID(task.LocationID).Info("recompute task done",
		"rollups", rows,
		"lag", s.now().Sub(task.RequestedAt).String(),
	)
	return nil
}

func recordTask(mode string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecomputeTasks.WithLabelValues(mode, outcome).Inc()
}

func loadLocation(ctx context.Context, store LocationStore, locationID string) (*models.Location, error) {
	loc, err := store.GetLocation(ctx, locationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, locationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load location: %w", err)
	}
	return loc, nil
}
