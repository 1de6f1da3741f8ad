package models

import "time"

// RestaurantGroup owns one or more locations.
// Maps to: restaurant_group table
type RestaurantGroup struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ServiceRatios describe how much demand one staff member covers, plus the
// floor of staff per role that is always scheduled
type ServiceRatios struct {
	GuestsPerServer  int `db:"guests_per_server" json:"guestsPerServer"`
	TablesPerHost    int `db:"tables_per_host" json:"tablesPerHost"`
	OrdersPerKitchen int `db:"orders_per_kitchen" json:"ordersPerKitchen"`
	MinHosts         int `db:"min_hosts" json:"minHosts"`
	MinServers       int `db:"min_servers" json:"minServers"`
	MinKitchen       int `db:"min_kitchen" json:"minKitchen"`
}

// DefaultServiceRatios are applied to newly created locations
func DefaultServiceRatios() ServiceRatios {
	return ServiceRatios{
		GuestsPerServer:  4,
		TablesPerHost:    8,
		OrdersPerKitchen: 12,
		MinHosts:         1,
		MinServers:       2,
		MinKitchen:       1,
	}
}

// Location is a single restaurant.
// Maps to: location table
type Location struct {
	ID                string        `db:"id" json:"id"`
	Name              string        `db:"name" json:"name"`
	RestaurantGroupID string        `db:"restaurant_group_id" json:"restaurantGroupId"`
	Timezone          string        `db:"timezone" json:"timezone"`
	Ratios            ServiceRatios `json:"ratios"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updatedAt"`
}

// TimeLocation resolves the location's IANA zone, falling back to UTC
func (l *Location) TimeLocation() *time.Location {
	if l == nil || l.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FeedbackEvent records what actually happened on a day so plans can be compared.
// Maps to: feedback_event table
type FeedbackEvent struct {
	ID               string    `db:"id" json:"id"`
	LocationID       string    `db:"location_id" json:"locationId"`
	Date             time.Time `db:"date" json:"date"`
	ActualGuests     int       `db:"actual_guests" json:"actualGuests"`
	ActualLaborHours float64   `db:"actual_labor_hours" json:"actualLaborHours"`
	AvgWaitTime      float64   `db:"avg_wait_time" json:"avgWaitTime"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
}
