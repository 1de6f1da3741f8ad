// Package metrics holds the Prometheus collectors shared by the API, the
// rollup worker and the CLI. Everything registers on Registry, which the
// telemetry server exposes on the metrics port.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for the application
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// EventsIngested counts events by source and outcome (created, duplicate, rejected)
var EventsIngested = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ingest",
	Name:      "events_total",
	Help:      "Demand events seen by ingestion, by source and outcome",
}, []string{"source", "outcome"})

// ImportBatches counts CSV import batches by outcome
var ImportBatches = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ingest",
	Name:      "import_batches_total",
	Help:      "CSV import batches by outcome",
}, []string{"outcome"})

// RollupsUpserted counts rollup rows written
var RollupsUpserted = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "rollup",
	Name:      "upserted_total",
	Help:      "Hourly rollup rows written by recomputation",
})

// RecomputeDuration tracks how long a window recompute takes
var RecomputeDuration = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "rollup",
	Name:      "recompute_duration_seconds",
	Help:      "Time to rebuild rollups for one window",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
})

// RecomputeTasks counts recompute requests by mode (sync, enqueued, consumed) and outcome
var RecomputeTasks = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rollup",
	Name:      "recompute_tasks_total",
	Help:      "Recompute requests by mode and outcome",
}, []string{"mode", "outcome"})

// ForecastColdStarts counts plan hours with no matching history
var ForecastColdStarts = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "forecast",
	Name:      "cold_start_hours_total",
	Help:      "Forecast hours produced without any matching history",
})

// PlanConfidence counts plan hours by confidence band
var PlanConfidence = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "forecast",
	Name:      "plan_hours_total",
	Help:      "Staffing plan hours by confidence band",
}, []string{"confidence"})

// PlanDuration tracks time to build a plan
var PlanDuration = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "forecast",
	Name:      "plan_duration_seconds",
	Help:      "Time to build a forecast or staffing plan",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
})

// ExportedRecords counts plan records written per sink
var ExportedRecords = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "export",
	Name:      "records_total",
	Help:      "Plan records written, by sink",
}, []string{"sink"})
