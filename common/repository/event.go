package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tableturn/forecaster/common/db"
	"github.com/tableturn/forecaster/common/models"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

const insertEventQuery = `
	INSERT INTO demand_event (id, location_id, ts, event_type, party_size, revenue, source)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
`

// EventRepository handles database operations for raw demand events
type EventRepository struct {
	db *db.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(database *db.DB) *EventRepository {
	return &EventRepository{db: database}
}

// RecordEvent inserts an event. created is false when the id already existed.
func (r *EventRepository) RecordEvent(ctx context.Context, ev models.DemandEvent) (bool, error) {
	tag, err := r.db.Exec(ctx, insertEventQuery,
		ev.ID,
		ev.LocationID,
		ev.Timestamp,
		ev.EventType,
		ev.PartySize,
		ev.Revenue,
		ev.Source,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordEvents inserts events in one transaction and returns how many were new.
// Either every row is applied or none is.
func (r *EventRepository) RecordEvents(ctx context.Context, events []models.DemandEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, ev := range events {
			batch.Queue(insertEventQuery,
				ev.ID,
				ev.LocationID,
				ev.Timestamp,
				ev.EventType,
				ev.PartySize,
				ev.Revenue,
				ev.Source,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i := range events {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return fmt.Errorf("failed to record event %s: %w", events[i].ID, err)
			}
			inserted += int(tag.RowsAffected())
		}
		return results.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record events: %w", err)
	}

	return inserted, nil
}

// FetchEvents returns a location's events with from <= ts < to, oldest first
func (r *EventRepository) FetchEvents(ctx context.Context, locationID string, from, to time.Time) ([]models.DemandEvent, error) {
	query := `
		SELECT id, location_id, ts, event_type, party_size, revenue, source, created_at
		FROM demand_event
		WHERE location_id = $1 AND ts >= $2 AND ts < $3
		ORDER BY ts
	`

	rows, err := r.db.Query(ctx, query, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	defer rows.Close()

	events := make([]models.DemandEvent, 0)
	for rows.Next() {
		var ev models.DemandEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.LocationID,
			&ev.Timestamp,
			&ev.EventType,
			&ev.PartySize,
			&ev.Revenue,
			&ev.Source,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}
