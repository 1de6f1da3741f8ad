package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tableturn/forecaster/common/models"
)

// GuestsPerTable is the party size hosts are assumed to seat per table
const GuestsPerTable = 4

const (
	highConfidenceBelow   = 0.1
	mediumConfidenceBelow = 0.25
)

// ErrInvalidRatios is returned when service ratios cannot produce a staffing plan
var ErrInvalidRatios = errors.New("invalid service ratios")

// ValidateRatios rejects non-positive divisors and negative minimums
func ValidateRatios(r models.ServiceRatios) error {
	switch {
	case r.GuestsPerServer <= 0:
		return fmt.Errorf("%w: guestsPerServer must be positive", ErrInvalidRatios)
	case r.TablesPerHost <= 0:
		return fmt.Errorf("%w: tablesPerHost must be positive", ErrInvalidRatios)
	case r.OrdersPerKitchen <= 0:
		return fmt.Errorf("%w: ordersPerKitchen must be positive", ErrInvalidRatios)
	case r.MinHosts < 0, r.MinServers < 0, r.MinKitchen < 0:
		return fmt.Errorf("%w: minimums must not be negative", ErrInvalidRatios)
	}
	return nil
}

// ComputeLabor sizes each role for a prediction. Minimums always hold, even
// for a zero prediction.
func ComputeLabor(p models.Prediction, r models.ServiceRatios) (models.LaborRecommendation, error) {
	if err := ValidateRatios(r); err != nil {
		return models.LaborRecommendation{}, err
	}

	return models.LaborRecommendation{
		Hosts:   max(r.MinHosts, ceilDiv(p.GuestCount, r.TablesPerHost*GuestsPerTable)),
		Servers: max(r.MinServers, ceilDiv(p.GuestCount, r.GuestsPerServer)),
		Kitchen: max(r.MinKitchen, ceilDiv(p.OrderCount, r.OrdersPerKitchen)),
	}, nil
}

func ceilDiv(n, d int) int {
	return int(math.Ceil(float64(n) / float64(d)))
}

// Confidence classifies a variance measure into a band
func Confidence(variance float64) models.Confidence {
	switch {
	case variance < highConfidenceBelow:
		return models.ConfidenceHigh
	case variance < mediumConfidenceBelow:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// SlotVariance is the coefficient of variation (population standard
// deviation over mean) of guests across history rows in target's slot.
// Fewer than two matching rows gives +Inf since a single observation says
// nothing about spread; an all-zero slot gives 0.
func SlotVariance(history []models.HourlyDemandRollup, target time.Time) float64 {
	matched := matchingSlot(history, target)
	if len(matched) < 2 {
		return math.Inf(1)
	}

	var sum float64
	for _, h := range matched {
		sum += h.AvgGuests
	}
	mean := sum / float64(len(matched))
	if mean == 0 {
		return 0
	}

	var sq float64
	for _, h := range matched {
		d := h.AvgGuests - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(matched))) / mean
}
