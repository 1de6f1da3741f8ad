package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tableturn/forecaster/common/engine"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/metrics"
	"github.com/tableturn/forecaster/common/models"
)

// PlanService turns trailing history into forecasts and staffing plans
type PlanService struct {
	rollups     RollupStore
	locations   LocationStore
	historyDays int
	log         *logger.Logger
	now         func() time.Time
}

// NewPlanService creates a planning service. historyDays is the trailing
// window of rollups each plan is built from.
func NewPlanService(rollups RollupStore, locations LocationStore, historyDays int, log *logger.Logger) *PlanService {
	if historyDays <= 0 {
		historyDays = 28
	}
	if log == nil {
		log = logger.Discard()
	}
	return &PlanService{
		rollups:     rollups,
		locations:   locations,
		historyDays: historyDays,
		log:         log,
		now:         time.Now,
	}
}

// planInput is what every plan hour is computed from
type planInput struct {
	location *models.Location
	history  []models.HourlyDemandRollup
	targets  []time.Time
}

// load fetches the location and its history and lays out target hours
// starting at the current local hour
func (s *PlanService) load(ctx context.Context, locationID string, hours int) (*planInput, error) {
	if hours <= 0 || hours > MaxPlanHours {
		return nil, fmt.Errorf("%w: %d hours (1..%d)", ErrInvalidHorizon, hours, MaxPlanHours)
	}

	loc, err := loadLocation(ctx, s.locations, locationID)
	if err != nil {
		return nil, err
	}

	start := engine.HourStart(s.now().In(loc.TimeLocation()))
	history, err := s.rollups.FetchRollups(ctx, locationID, start.AddDate(0, 0, -s.historyDays), start)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	targets := make([]time.Time, hours)
	for i := range targets {
		targets[i] = start.Add(time.Duration(i) * time.Hour)
	}

	return &planInput{location: loc, history: history, targets: targets}, nil
}

// Forecast predicts demand for each of the next hours
func (s *PlanService) Forecast(ctx context.Context, locationID string, hours int) ([]models.HourlyForecast, error) {
	in, err := s.load(ctx, locationID, hours)
	if err != nil {
		return nil, err
	}

	out := make([]models.HourlyForecast, len(in.targets))
	for i, target := range in.targets {
		out[i] = models.HourlyForecast{
			Timestamp:  target,
			Prediction: engine.Forecast(in.history, target),
		}
	}
	return out, nil
}

// Staffing builds the plan for each of the next hours. With smooth set, each
// role is damped against the value emitted for the previous hour.
func (s *PlanService) Staffing(ctx context.Context, locationID string, hours int, smooth bool) ([]models.PlanRecord, error) {
	started := time.Now()
	defer func() { metrics.PlanDuration.Observe(time.Since(started).Seconds()) }()

	in, err := s.load(ctx, locationID, hours)
	if err != nil {
		return nil, err
	}
	ratios := in.location.Ratios

	plan := make([]models.PlanRecord, 0, len(in.targets))
	var prev *models.LaborRecommendation
	coldStarts := 0

	for _, target := range in.targets {
		if !engine.HasHistory(in.history, target) {
			coldStarts++
			metrics.ForecastColdStarts.Inc()
		}

		prediction := engine.Forecast(in.history, target)
		labor, err := engine.ComputeLabor(prediction, ratios)
		if err != nil {
			return nil, fmt.Errorf("location %s: %w", locationID, err)
		}

		if smooth && prev != nil {
			labor = models.LaborRecommendation{
				Hosts:   engine.SmoothStaffing(labor.Hosts, &prev.Hosts),
				Servers: engine.SmoothStaffing(labor.Servers, &prev.Servers),
				Kitchen: engine.SmoothStaffing(labor.Kitchen, &prev.Kitchen),
			}
		}
		emitted := labor
		prev = &emitted

		confidence := engine.Confidence(engine.SlotVariance(in.history, target))
		metrics.PlanConfidence.WithLabelValues(string(confidence)).Inc()

		plan = append(plan, models.PlanRecord{
			Timestamp:  target,
			GuestCount: prediction.GuestCount,
			OrderCount: prediction.OrderCount,
			Revenue:    prediction.Revenue,
			Hosts:      labor.Hosts,
			Servers:    labor.Servers,
			Kitchen:    labor.Kitchen,
			Confidence: confidence,
		})
	}

	s.log.WithLocationID(locationID).Debug("staffing plan built",
		"hours", len(plan),
		"history_rows", len(in.history),
		"cold_starts", coldStarts,
		"smooth", smooth,
	)
	return plan, nil
}
