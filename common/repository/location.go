package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tableturn/forecaster/common/db"
	"github.com/tableturn/forecaster/common/models"
)

const selectLocation = `
	SELECT id, name, restaurant_group_id, timezone,
		guests_per_server, tables_per_host, orders_per_kitchen,
		min_hosts, min_servers, min_kitchen,
		created_at, updated_at
	FROM location
`

// LocationRepository handles restaurant groups, locations and their ratios
type LocationRepository struct {
	db *db.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(database *db.DB) *LocationRepository {
	return &LocationRepository{db: database}
}

// GetLocation retrieves a location by id
func (r *LocationRepository) GetLocation(ctx context.Context, locationID string) (*models.Location, error) {
	loc := &models.Location{}
	err := r.db.QueryRow(ctx, selectLocation+` WHERE id = $1`, locationID).Scan(
		&loc.ID,
		&loc.Name,
		&loc.RestaurantGroupID,
		&loc.Timezone,
		&loc.Ratios.GuestsPerServer,
		&loc.Ratios.TablesPerHost,
		&loc.Ratios.OrdersPerKitchen,
		&loc.Ratios.MinHosts,
		&loc.Ratios.MinServers,
		&loc.Ratios.MinKitchen,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("location %s: %w", locationID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	return loc, nil
}

// GetRatios returns the service ratios configured for a location
func (r *LocationRepository) GetRatios(ctx context.Context, locationID string) (models.ServiceRatios, error) {
	loc, err := r.GetLocation(ctx, locationID)
	if err != nil {
		return models.ServiceRatios{}, err
	}
	return loc.Ratios, nil
}

// SetRatios replaces a location's service ratios
func (r *LocationRepository) SetRatios(ctx context.Context, locationID string, ratios models.ServiceRatios) error {
	query := `
		UPDATE location
		SET guests_per_server = $2, tables_per_host = $3, orders_per_kitchen = $4,
			min_hosts = $5, min_servers = $6, min_kitchen = $7, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		locationID,
		ratios.GuestsPerServer,
		ratios.TablesPerHost,
		ratios.OrdersPerKitchen,
		ratios.MinHosts,
		ratios.MinServers,
		ratios.MinKitchen,
	)
	if err != nil {
		return fmt.Errorf("failed to update ratios: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("location %s: %w", locationID, ErrNotFound)
	}

	return nil
}

// EnsureGroup returns the group with the given name, creating it under id when missing
func (r *LocationRepository) EnsureGroup(ctx context.Context, id, name string) (*models.RestaurantGroup, error) {
	query := `
		INSERT INTO restaurant_group (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at
	`

	g := &models.RestaurantGroup{}
	if err := r.db.QueryRow(ctx, query, id, name).Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to ensure restaurant group: %w", err)
	}
	return g, nil
}

// EnsureLocation creates the location with default ratios when it does not
// exist yet and returns the stored row either way
func (r *LocationRepository) EnsureLocation(ctx context.Context, loc models.Location) (*models.Location, error) {
	ratios := loc.Ratios
	if ratios == (models.ServiceRatios{}) {
		ratios = models.DefaultServiceRatios()
	}
	tz := loc.Timezone
	if tz == "" {
		tz = "UTC"
	}

	query := `
		INSERT INTO location (id, name, restaurant_group_id, timezone,
			guests_per_server, tables_per_host, orders_per_kitchen,
			min_hosts, min_servers, min_kitchen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		loc.ID,
		loc.Name,
		loc.RestaurantGroupID,
		tz,
		ratios.GuestsPerServer,
		ratios.TablesPerHost,
		ratios.OrdersPerKitchen,
		ratios.MinHosts,
		ratios.MinServers,
		ratios.MinKitchen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure location: %w", err)
	}

	return r.GetLocation(ctx, loc.ID)
}
