package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tableturn/forecaster/common/engine"
	"github.com/tableturn/forecaster/common/ingest"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/metrics"
	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/validation"
)

// IngestService records demand events and keeps rollups in step with them
type IngestService struct {
	events    EventStore
	locations LocationStore
	rollups   *RollupService
	log       *logger.Logger
}

// NewIngestService creates an ingestion service
func NewIngestService(events EventStore, locations LocationStore, rollups *RollupService, log *logger.Logger) *IngestService {
	if log == nil {
		log = logger.Discard()
	}
	return &IngestService{
		events:    events,
		locations: locations,
		rollups:   rollups,
		log:       log,
	}
}

// RecordResult describes what happened to a single event
type RecordResult struct {
	Created bool
	Queued  bool
}

// RecordEvent validates and stores one event. A repeated id is not stored
// again and leaves rollup values unchanged.
func (s *IngestService) RecordEvent(ctx context.Context, ev models.DemandEvent) (*RecordResult, error) {
	if ev.Source == "" {
		ev.Source = models.SourceAPI
	}
	if err := validation.ValidateEvent(ev); err != nil {
		metrics.EventsIngested.WithLabelValues(string(ev.Source), "invalid").Inc()
		return nil, err
	}
	if _, err := loadLocation(ctx, s.locations, ev.LocationID); err != nil {
		return nil, err
	}

	created, err := s.events.RecordEvent(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("failed to record event: %w", err)
	}

	res := &RecordResult{Created: created}
	outcome := "created"
	if !created {
		outcome = "duplicate"
	}
	metrics.EventsIngested.WithLabelValues(string(ev.Source), outcome).Inc()

	// duplicates refresh their hour too, repairing a recompute that failed
	// after the event was committed
	hour := engine.HourStart(ev.Timestamp)
	queued, _, err := s.rollups.Schedule(ctx, ev.LocationID, hour, hour.Add(time.Hour))
	if err != nil {
		return nil, fmt.Errorf("event %s stored but rollup refresh failed: %w", ev.ID, err)
	}
	res.Queued = queued
	return res, nil
}

// ImportResult summarizes a bulk import
type ImportResult struct {
	BatchID    string `json:"batchId"`
	EventCount int    `json:"eventCount"`
	Inserted   int    `json:"inserted"`
}

// Authorizer decides whether the caller may write to a location
type Authorizer func(locationID string) error

// ImportCSV parses, authorizes and stores a CSV batch in one transaction,
// then refreshes rollups for every touched location.
func (s *IngestService) ImportCSV(ctx context.Context, r io.Reader, authorize Authorizer) (*ImportResult, error) {
	batch, err := ingest.ParseCSV(r)
	if err != nil {
		metrics.ImportBatches.WithLabelValues("invalid").Inc()
		return nil, err
	}

	log := s.log.WithBatchID(batch.ID)

	locationIDs := batch.LocationIDs()
	for _, id := range locationIDs {
		if authorize != nil {
			if err := authorize(id); err != nil {
				metrics.ImportBatches.WithLabelValues("forbidden").Inc()
				return nil, err
			}
		}
		if _, err := loadLocation(ctx, s.locations, id); err != nil {
			metrics.ImportBatches.WithLabelValues("invalid").Inc()
			return nil, err
		}
	}

	inserted, err := s.events.RecordEvents(ctx, batch.Events)
	if err != nil {
		metrics.ImportBatches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store import batch: %w", err)
	}
	metrics.ImportBatches.WithLabelValues("ok").Inc()
	metrics.EventsIngested.WithLabelValues(string(models.SourceCSV), "created").Add(float64(inserted))
	metrics.EventsIngested.WithLabelValues(string(models.SourceCSV), "duplicate").Add(float64(len(batch.Events) - inserted))

	for _, id := range locationIDs {
		from, to := windowFor(batch.Events, id)
		if _, _, err := s.rollups.Schedule(ctx, id, engine.HourStart(from), to); err != nil {
			return nil, fmt.Errorf("batch %s stored but rollup refresh failed: %w", batch.ID, err)
		}
	}

	log.Info("csv import complete",
		"events", len(batch.Events),
		"inserted", inserted,
		"locations", len(locationIDs),
	)

	return &ImportResult{
		BatchID:    batch.ID,
		EventCount: len(batch.Events),
		Inserted:   inserted,
	}, nil
}

// windowFor returns [first, last] event time for a location, with to exclusive
func windowFor(events []models.DemandEvent, locationID string) (from, to time.Time) {
	first := true
	for _, ev := range events {
		if ev.LocationID != locationID {
			continue
		}
		if first || ev.Timestamp.Before(from) {
			from = ev.Timestamp
		}
		if first || ev.Timestamp.After(to) {
			to = ev.Timestamp
		}
		first = false
	}
	return from, to.Add(time.Nanosecond)
}
