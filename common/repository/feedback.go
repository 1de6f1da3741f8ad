package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tableturn/forecaster/common/db"
	"github.com/tableturn/forecaster/common/models"
)

// FeedbackRepository stores actuals reported by managers
type FeedbackRepository struct {
	db *db.DB
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(database *db.DB) *FeedbackRepository {
	return &FeedbackRepository{db: database}
}

// CreateFeedback inserts a feedback row
func (r *FeedbackRepository) CreateFeedback(ctx context.Context, fb *models.FeedbackEvent) error {
	query := `
		INSERT INTO feedback_event (id, location_id, date, actual_guests, actual_labor_hours, avg_wait_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		fb.ID,
		fb.LocationID,
		fb.Date,
		fb.ActualGuests,
		fb.ActualLaborHours,
		fb.AvgWaitTime,
	).Scan(&fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	return nil
}

// ListFeedback returns feedback for a location with from <= date < to
func (r *FeedbackRepository) ListFeedback(ctx context.Context, locationID string, from, to time.Time) ([]models.FeedbackEvent, error) {
	query := `
		SELECT id, location_id, date, actual_guests, actual_labor_hours, avg_wait_time, created_at
		FROM feedback_event
		WHERE location_id = $1 AND date >= $2 AND date < $3
		ORDER BY date
	`

	rows, err := r.db.Query(ctx, query, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	out := make([]models.FeedbackEvent, 0)
	for rows.Next() {
		var fb models.FeedbackEvent
		if err := rows.Scan(&fb.ID, &fb.LocationID, &fb.Date, &fb.ActualGuests, &fb.ActualLaborHours, &fb.AvgWaitTime, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}
