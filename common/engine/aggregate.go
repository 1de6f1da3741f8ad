// Package engine holds the pure demand math: hourly aggregation, seasonal
// naive forecasting, smoothing, and labor sizing. Nothing here touches I/O.
package engine

import (
	"sort"
	"time"

	"github.com/tableturn/forecaster/common/models"
)

type hourBucket struct {
	start    time.Time
	guests   float64
	orders   float64
	revenues []float64
}

// total sums revenues in ascending order so the result does not depend on
// the order events arrived in.
func (b *hourBucket) total() float64 {
	sort.Float64s(b.revenues)
	var sum float64
	for _, r := range b.revenues {
		sum += r
	}
	return sum
}

// HourStart returns the start of the hour containing t, in t's own zone.
// Built from calendar fields rather than Truncate so that zones with
// non-hour offsets still bucket on local wall-clock hours.
func HourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// Aggregate rolls events up into one record per distinct hour, bucketing in
// each timestamp's own zone. Output is ordered by hour start.
func Aggregate(locationID string, events []models.DemandEvent) []models.HourlyDemandRollup {
	return AggregateIn(locationID, events, nil)
}

// AggregateIn is Aggregate with every timestamp first converted to tz.
// A nil tz leaves timestamps as they are.
func AggregateIn(locationID string, events []models.DemandEvent, tz *time.Location) []models.HourlyDemandRollup {
	if len(events) == 0 {
		return []models.HourlyDemandRollup{}
	}

	buckets := make(map[int64]*hourBucket)
	for _, ev := range events {
		ts := ev.Timestamp
		if tz != nil {
			ts = ts.In(tz)
		}
		start := HourStart(ts)
		key := start.Unix()

		b, ok := buckets[key]
		if !ok {
			b = &hourBucket{start: start}
			buckets[key] = b
		}

		switch ev.EventType {
		case models.EventGuestArrival:
			b.guests += float64(ev.PartySize)
		case models.EventOrderPlaced:
			b.orders++
			b.revenues = append(b.revenues, ev.RevenueValue())
		}
	}

	rollups := make([]models.HourlyDemandRollup, 0, len(buckets))
	for _, b := range buckets {
		rollups = append(rollups, models.HourlyDemandRollup{
			LocationID: locationID,
			Timestamp:  b.start,
			HourOfDay:  b.start.Hour(),
			DayOfWeek:  int(b.start.Weekday()),
			AvgGuests:  b.guests,
			AvgOrders:  b.orders,
			AvgRevenue: b.total(),
		})
	}

	sort.Slice(rollups, func(i, j int) bool {
		return rollups[i].Timestamp.Before(rollups[j].Timestamp)
	})

	return rollups
}

// MergeRollups sums rollups that share a (location, hour) slot and returns
// them ordered by hour start. Aggregating two disjoint event sets and merging
// gives the same result as aggregating their union.
func MergeRollups(sets ...[]models.HourlyDemandRollup) []models.HourlyDemandRollup {
	merged := make(map[string]*models.HourlyDemandRollup)
	for _, set := range sets {
		for _, r := range set {
			k := r.Key()
			if cur, ok := merged[k]; ok {
				cur.AvgGuests += r.AvgGuests
				cur.AvgOrders += r.AvgOrders
				cur.AvgRevenue += r.AvgRevenue
				continue
			}
			rc := r
			merged[k] = &rc
		}
	}

	out := make([]models.HourlyDemandRollup, 0, len(merged))
	for _, r := range merged {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
