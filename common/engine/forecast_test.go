package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tableturn/forecaster/common/models"
)

// 2024-01-02 was a Tuesday
var tuesday1800 = time.Date(2024, 1, 2, 18, 0, 0, 0, time.UTC)

func slot(dow, hour int, guests, orders, revenue float64) models.HourlyDemandRollup {
	return models.HourlyDemandRollup{
		LocationID: "loc-1",
		DayOfWeek:  dow,
		HourOfDay:  hour,
		AvgGuests:  guests,
		AvgOrders:  orders,
		AvgRevenue: revenue,
	}
}

func TestForecast_MeanOfMatchingSlot(t *testing.T) {
	history := []models.HourlyDemandRollup{
		slot(2, 18, 30, 20, 500),
		slot(2, 18, 40, 24, 600),
		slot(2, 19, 90, 90, 900),
		slot(3, 18, 90, 90, 900),
	}

	got := Forecast(history, tuesday1800)
	assert.Equal(t, models.Prediction{GuestCount: 35, OrderCount: 22, Revenue: 550}, got)
}

func TestForecast_ColdStart(t *testing.T) {
	history := []models.HourlyDemandRollup{slot(1, 18, 30, 20, 500)}

	assert.Equal(t, models.Prediction{}, Forecast(history, tuesday1800))
	assert.Equal(t, models.Prediction{}, Forecast(nil, tuesday1800))
	assert.False(t, HasHistory(history, tuesday1800))
}

func TestForecast_RoundsHalfAwayFromZero(t *testing.T) {
	history := []models.HourlyDemandRollup{
		slot(2, 18, 10, 3, 10.4),
		slot(2, 18, 11, 4, 10.4),
	}

	got := Forecast(history, tuesday1800)
	assert.Equal(t, 11, got.GuestCount) // 10.5
	assert.Equal(t, 4, got.OrderCount)  // 3.5
	assert.Equal(t, 10.0, got.Revenue)
}

func TestForecast_IgnoresMinutesOfTarget(t *testing.T) {
	history := []models.HourlyDemandRollup{slot(2, 18, 12, 6, 100)}
	got := Forecast(history, tuesday1800.Add(42*time.Minute))
	assert.Equal(t, 12, got.GuestCount)
}

func TestSmoothStaffing(t *testing.T) {
	prev := func(v int) *int { return &v }

	assert.Equal(t, 9, SmoothStaffing(10, prev(7)))
	assert.Equal(t, 10, SmoothStaffing(10, prev(9)))
	assert.Equal(t, 10, SmoothStaffing(10, nil))
	assert.Equal(t, 10, SmoothStaffing(10, prev(12)))
	assert.Equal(t, 4, SmoothStaffing(2, prev(6)))
	assert.Equal(t, 5, SmoothStaffing(6, prev(3))) // 4.5 rounds up
}
