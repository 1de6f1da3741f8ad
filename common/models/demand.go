package models

import "time"

// EventType is the kind of point-of-sale signal a demand event carries
type EventType string

const (
	EventGuestArrival EventType = "guest_arrival"
	EventOrderPlaced  EventType = "order_placed"
	EventTableSeated  EventType = "table_seated"
)

// Valid reports whether t is one of the known event types
func (t EventType) Valid() bool {
	switch t {
	case EventGuestArrival, EventOrderPlaced, EventTableSeated:
		return true
	}
	return false
}

// EventSource records how an event entered the system
type EventSource string

const (
	SourceAPI  EventSource = "api"
	SourceCSV  EventSource = "csv"
	SourceSeed EventSource = "seed"
)

// DemandEvent is a single raw point-of-sale event.
// Maps to: demand_event table
type DemandEvent struct {
	// Caller-supplied id; a repeated id is ignored on ingestion
	ID string `db:"id" json:"eventId"`

	LocationID string    `db:"location_id" json:"locationId"`
	Timestamp  time.Time `db:"ts" json:"timestamp"`
	EventType  EventType `db:"event_type" json:"eventType"`

	// Guests in the party; orders carry 1
	PartySize int `db:"party_size" json:"partySize"`

	// Only meaningful for order_placed; nil counts as zero
	Revenue *float64 `db:"revenue" json:"revenue,omitempty"`

	Source    EventSource `db:"source" json:"source"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt,omitempty"`
}

// RevenueValue returns the event revenue, treating a missing value as zero
func (e DemandEvent) RevenueValue() float64 {
	if e.Revenue == nil {
		return 0
	}
	return *e.Revenue
}

// HourlyDemandRollup is the per-hour aggregate of a location's events.
// Maps to: hourly_demand_rollup table, unique on (location_id, hour_start)
type HourlyDemandRollup struct {
	LocationID string    `db:"location_id" json:"locationId"`
	Timestamp  time.Time `db:"hour_start" json:"timestamp"`
	HourOfDay  int       `db:"hour_of_day" json:"hourOfDay"`
	DayOfWeek  int       `db:"day_of_week" json:"dayOfWeek"`

	AvgGuests  float64 `db:"avg_guests" json:"avgGuests"`
	AvgOrders  float64 `db:"avg_orders" json:"avgOrders"`
	AvgRevenue float64 `db:"avg_revenue" json:"avgRevenue"`
}

// Key identifies the rollup's (location, hour) slot
func (r HourlyDemandRollup) Key() string {
	return r.LocationID + "|" + r.Timestamp.UTC().Format(time.RFC3339)
}
