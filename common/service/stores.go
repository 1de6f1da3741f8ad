// Package service holds the demand, planning and settings use cases shared by
// the API, the rollup worker and the CLI.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/tableturn/forecaster/common/models"
)

var (
	// ErrLocationNotFound is returned when a request names an unknown location
	ErrLocationNotFound = errors.New("location not found")
	// ErrInvalidWindow is returned for empty, inverted or oversized recompute windows
	ErrInvalidWindow = errors.New("invalid recompute window")
	// ErrInvalidHorizon is returned when a plan asks for no hours or too many
	ErrInvalidHorizon = errors.New("invalid planning horizon")
)

// MaxPlanHours bounds forecast and staffing horizons
const MaxPlanHours = 31 * 24

// EventStore persists raw demand events
type EventStore interface {
	RecordEvent(ctx context.Context, ev models.DemandEvent) (bool, error)
	RecordEvents(ctx context.Context, events []models.DemandEvent) (int, error)
	FetchEvents(ctx context.Context, locationID string, from, to time.Time) ([]models.DemandEvent, error)
}

// RollupStore persists derived hourly rollups
type RollupStore interface {
	UpsertRollups(ctx context.Context, rollups []models.HourlyDemandRollup) error
	FetchRollups(ctx context.Context, locationID string, from, to time.Time) ([]models.HourlyDemandRollup, error)
}

// LocationStore reads locations and their service ratios
type LocationStore interface {
	GetLocation(ctx context.Context, locationID string) (*models.Location, error)
	GetRatios(ctx context.Context, locationID string) (models.ServiceRatios, error)
	SetRatios(ctx context.Context, locationID string, ratios models.ServiceRatios) error
	EnsureGroup(ctx context.Context, id, name string) (*models.RestaurantGroup, error)
	EnsureLocation(ctx context.Context, loc models.Location) (*models.Location, error)
}

// FeedbackStore persists daily actuals
type FeedbackStore interface {
	CreateFeedback(ctx context.Context, fb *models.FeedbackEvent) error
	ListFeedback(ctx context.Context, locationID string, from, to time.Time) ([]models.FeedbackEvent, error)
}
