package models

import "time"

// Prediction is the forecast demand for one hour
type Prediction struct {
	GuestCount int     `json:"guestCount"`
	OrderCount int     `json:"orderCount"`
	Revenue    float64 `json:"revenue"`
}

// LaborRecommendation is the crew needed for one hour
type LaborRecommendation struct {
	Hosts   int `json:"hosts"`
	Servers int `json:"servers"`
	Kitchen int `json:"kitchen"`
}

// Confidence buckets how stable the history behind a plan hour was
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// HourlyForecast pairs a prediction with the hour it applies to
type HourlyForecast struct {
	Timestamp time.Time `json:"timestamp"`
	Prediction
}

// PlanRecord is the externally consumed staffing plan row
type PlanRecord struct {
	Timestamp  time.Time  `json:"timestamp"`
	GuestCount int        `json:"guestCount"`
	OrderCount int        `json:"orderCount"`
	Revenue    float64    `json:"revenue"`
	Hosts      int        `json:"hosts"`
	Servers    int        `json:"servers"`
	Kitchen    int        `json:"kitchen"`
	Confidence Confidence `json:"confidence"`
}

// ParquetPlanRecord is the columnar form of PlanRecord
type ParquetPlanRecord struct {
	LocationID string  `parquet:"name=location_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	Timestamp  int64   `parquet:"name=timestamp,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	GuestCount int32   `parquet:"name=guest_count,type=INT32"`
	OrderCount int32   `parquet:"name=order_count,type=INT32"`
	Revenue    float64 `parquet:"name=revenue,type=DOUBLE"`
	Hosts      int32   `parquet:"name=hosts,type=INT32"`
	Servers    int32   `parquet:"name=servers,type=INT32"`
	Kitchen    int32   `parquet:"name=kitchen,type=INT32"`
	Confidence string  `parquet:"name=confidence,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// ToParquet converts a plan record for a location into its columnar form
func (p PlanRecord) ToParquet(locationID string) ParquetPlanRecord {
	return ParquetPlanRecord{
		LocationID: locationID,
		Timestamp:  p.Timestamp.UnixMilli(),
		GuestCount: int32(p.GuestCount),
		OrderCount: int32(p.OrderCount),
		Revenue:    p.Revenue,
		Hosts:      int32(p.Hosts),
		Servers:    int32(p.Servers),
		Kitchen:    int32(p.Kitchen),
		Confidence: string(p.Confidence),
	}
}

// RecomputeTask asks a worker to rebuild rollups for a window
type RecomputeTask struct {
	LocationID  string    `json:"locationId"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	RequestedAt time.Time `json:"requestedAt"`
}
