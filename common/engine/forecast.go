package engine

import (
	"math"
	"time"

	"github.com/tableturn/forecaster/common/models"
)

// SmoothingThreshold is the largest hour-over-hour change left untouched
const SmoothingThreshold = 2

// matchingSlot returns history rows on the same weekday and hour as target
func matchingSlot(history []models.HourlyDemandRollup, target time.Time) []models.HourlyDemandRollup {
	dow := int(target.Weekday())
	hour := target.Hour()

	matched := make([]models.HourlyDemandRollup, 0, len(history)/(7*24)+1)
	for _, h := range history {
		if h.DayOfWeek == dow && h.HourOfDay == hour {
			matched = append(matched, h)
		}
	}
	return matched
}

// Forecast predicts demand for the hour containing target as the mean of all
// history rows for the same weekday and hour. Means are rounded half away
// from zero. With no matching history the prediction is all zeros.
func Forecast(history []models.HourlyDemandRollup, target time.Time) models.Prediction {
	matched := matchingSlot(history, target)
	if len(matched) == 0 {
		return models.Prediction{}
	}

	var guests, orders, revenue float64
	for _, h := range matched {
		guests += h.AvgGuests
		orders += h.AvgOrders
		revenue += h.AvgRevenue
	}
	n := float64(len(matched))

	return models.Prediction{
		GuestCount: int(math.Round(guests / n)),
		OrderCount: int(math.Round(orders / n)),
		Revenue:    math.Round(revenue / n),
	}
}

// HasHistory reports whether any history row covers target's slot
func HasHistory(history []models.HourlyDemandRollup, target time.Time) bool {
	return len(matchingSlot(history, target)) > 0
}

// SmoothStaffing damps sharp hour-over-hour swings in a staff count. A nil
// previous means there is nothing to smooth against.
func SmoothStaffing(current int, previous *int) int {
	if previous == nil {
		return current
	}
	diff := current - *previous
	if diff < 0 {
		diff = -diff
	}
	if diff > SmoothingThreshold {
		return int(math.Round(float64(current+*previous) / 2))
	}
	return current
}
