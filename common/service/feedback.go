package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/validation"
)

// FeedbackService records what actually happened so plans can be judged
type FeedbackService struct {
	feedback  FeedbackStore
	locations LocationStore
}

// NewFeedbackService creates a feedback service
func NewFeedbackService(feedback FeedbackStore, locations LocationStore) *FeedbackService {
	return &FeedbackService{feedback: feedback, locations: locations}
}

// Record stores actuals for one location-day. Date is truncated to the day
// in the location's timezone.
func (s *FeedbackService) Record(ctx context.Context, fb models.FeedbackEvent) (*models.FeedbackEvent, error) {
	if err := validation.ValidateFeedback(fb); err != nil {
		return nil, err
	}
	loc, err := loadLocation(ctx, s.locations, fb.LocationID)
	if err != nil {
		return nil, err
	}

	d := fb.Date.In(loc.TimeLocation())
	fb.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}

	if err := s.feedback.CreateFeedback(ctx, &fb); err != nil {
		return nil, fmt.Errorf("failed to record feedback: %w", err)
	}
	return &fb, nil
}

// List returns feedback for a location over [from, to)
func (s *FeedbackService) List(ctx context.Context, locationID string, from, to time.Time) ([]models.FeedbackEvent, error) {
	if _, err := loadLocation(ctx, s.locations, locationID); err != nil {
		return nil, err
	}
	out, err := s.feedback.ListFeedback(ctx, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return out, nil
}
