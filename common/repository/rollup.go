package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tableturn/forecaster/common/db"
	"github.com/tableturn/forecaster/common/models"
)

// RollupRepository handles database operations for hourly rollups
type RollupRepository struct {
	db *db.DB
}

// NewRollupRepository creates a new rollup repository
func NewRollupRepository(database *db.DB) *RollupRepository {
	return &RollupRepository{db: database}
}

// UpsertRollups writes rollups keyed on (location_id, hour_start), replacing
// any existing values for the same slot. All rows commit together.
func (r *RollupRepository) UpsertRollups(ctx context.Context, rollups []models.HourlyDemandRollup) error {
	if len(rollups) == 0 {
		return nil
	}

	query := `
		INSERT INTO hourly_demand_rollup
			(location_id, hour_start, hour_of_day, day_of_week, avg_guests, avg_orders, avg_revenue, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (location_id, hour_start) DO UPDATE SET
			hour_of_day = EXCLUDED.hour_of_day,
			day_of_week = EXCLUDED.day_of_week,
			avg_guests  = EXCLUDED.avg_guests,
			avg_orders  = EXCLUDED.avg_orders,
			avg_revenue = EXCLUDED.avg_revenue,
			updated_at  = now()
	`

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, ru := range rollups {
			batch.Queue(query,
				ru.LocationID,
				ru.Timestamp,
				ru.HourOfDay,
				ru.DayOfWeek,
				ru.AvgGuests,
				ru.AvgOrders,
				ru.AvgRevenue,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range rollups {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to upsert rollup: %w", err)
			}
		}
		return results.Close()
	})
}

// FetchRollups returns a location's rollups with from <= hour_start < to
func (r *RollupRepository) FetchRollups(ctx context.Context, locationID string, from, to time.Time) ([]models.HourlyDemandRollup, error) {
	query := `
		SELECT location_id, hour_start, hour_of_day, day_of_week, avg_guests, avg_orders, avg_revenue
		FROM hourly_demand_rollup
		WHERE location_id = $1 AND hour_start >= $2 AND hour_start < $3
		ORDER BY hour_start
	`

	rows, err := r.db.Query(ctx, query, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rollups: %w", err)
	}
	defer rows.Close()

	rollups := make([]models.HourlyDemandRollup, 0)
	for rows.Next() {
		var ru models.HourlyDemandRollup
		if err := rows.Scan(
			&ru.LocationID,
			&ru.Timestamp,
			&ru.HourOfDay,
			&ru.DayOfWeek,
			&ru.AvgGuests,
			&ru.AvgOrders,
			&ru.AvgRevenue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rollup: %w", err)
		}
		rollups = append(rollups, ru)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rollups: %w", err)
	}

	return rollups, nil
}
