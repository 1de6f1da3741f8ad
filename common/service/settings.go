package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/tableturn/forecaster/common/cache"
	"github.com/tableturn/forecaster/common/engine"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/validation"
)

// SettingsService reads and updates a location's service ratios
type SettingsService struct {
	locations LocationStore
	cache     cache.Cache
	ttl       time.Duration
	validator *validation.PatchValidator
	log       *logger.Logger
}

// NewSettingsService creates a settings service. c may be nil.
func NewSettingsService(locations LocationStore, c cache.Cache, ttl time.Duration, log *logger.Logger) *SettingsService {
	if log == nil {
		log = logger.Discard()
	}
	return &SettingsService{
		locations: locations,
		cache:     c,
		ttl:       ttl,
		validator: validation.NewPatchValidator(),
		log:       log,
	}
}

func ratiosKey(locationID string) string {
	return "ratios:" + locationID
}

// Get returns the ratios for a location, served from cache when possible
func (s *SettingsService) Get(ctx context.Context, locationID string) (models.ServiceRatios, error) {
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, ratiosKey(locationID)); err == nil && ok {
			var ratios models.ServiceRatios
			if err := json.Unmarshal(raw, &ratios); err == nil {
				return ratios, nil
			}
		}
	}

	loc, err := loadLocation(ctx, s.locations, locationID)
	if err != nil {
		return models.ServiceRatios{}, err
	}
	s.remember(ctx, locationID, loc.Ratios)
	return loc.Ratios, nil
}

// MergePatch applies an RFC 7396 merge patch. Fields that are absent or null
// keep their current value; unknown fields are ignored.
func (s *SettingsService) MergePatch(ctx context.Context, locationID string, patch []byte) (*models.Location, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", validation.ErrInvalidPatch, err)
	}
	for k, v := range fields {
		if v == nil || !validation.RatioFields[k] {
			delete(fields, k)
		}
	}
	cleaned, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}

	return s.apply(ctx, locationID, func(doc []byte) ([]byte, error) {
		return jsonpatch.MergePatch(doc, cleaned)
	})
}

// JSONPatch applies RFC 6902 operations restricted to ratio fields
func (s *SettingsService) JSONPatch(ctx context.Context, locationID string, patch []byte) (*models.Location, error) {
	var ops []map[string]interface{}
	if err := json.Unmarshal(patch, &ops); err != nil {
		return nil, fmt.Errorf("%w: %v", validation.ErrInvalidPatch, err)
	}
	if err := s.validator.ValidateOperations(ops); err != nil {
		return nil, err
	}

	decoded, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", validation.ErrInvalidPatch, err)
	}

	return s.apply(ctx, locationID, decoded.Apply)
}

// apply runs fn over the current ratios document, validates and stores the result
func (s *SettingsService) apply(ctx context.Context, locationID string, fn func([]byte) ([]byte, error)) (*models.Location, error) {
	loc, err := loadLocation(ctx, s.locations, locationID)
	if err != nil {
		return nil, err
	}

	doc, err := json.Marshal(loc.Ratios)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ratios: %w", err)
	}

	patched, err := fn(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", validation.ErrInvalidPatch, err)
	}

	var ratios models.ServiceRatios
	if err := json.Unmarshal(patched, &ratios); err != nil {
		return nil, fmt.Errorf("%w: ratios must be whole numbers", validation.ErrInvalidPatch)
	}
	if err := engine.ValidateRatios(ratios); err != nil {
		return nil, err
	}

	if ratios == loc.Ratios {
		return loc, nil
	}

	if err := s.locations.SetRatios(ctx, locationID, ratios); err != nil {
		return nil, fmt.Errorf("failed to save ratios: %w", err)
	}
	loc.Ratios = ratios

	if s.cache != nil {
		if err := s.cache.Delete(ctx, ratiosKey(locationID)); err != nil {
			s.log.Warn("failed to invalidate ratios cache", "location_id", locationID, "error", err)
		}
	}

	s.log.WithLocationID(locationID).Info("service ratios updated",
		"guests_per_server", ratios.GuestsPerServer,
		"tables_per_host", ratios.TablesPerHost,
		"orders_per_kitchen", ratios.OrdersPerKitchen,
	)
	return loc, nil
}

func (s *SettingsService) remember(ctx context.Context, locationID string, ratios models.ServiceRatios) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(ratios)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, ratiosKey(locationID), raw, s.ttl); err != nil {
		s.log.Warn("failed to cache ratios", "location_id", locationID, "error", err)
	}
}
