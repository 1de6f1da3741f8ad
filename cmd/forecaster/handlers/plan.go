package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/common/config"
	"github.com/tableturn/forecaster/common/export"
	"github.com/tableturn/forecaster/common/filter"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/models"
)

// Planner builds forecasts and staffing plans
type Planner interface {
	Forecast(ctx context.Context, locationID string, hours int) ([]models.HourlyForecast, error)
	Staffing(ctx context.Context, locationID string, hours int, smooth bool) ([]models.PlanRecord, error)
}

// SinkFactory opens the named export sink; an empty name means the configured default
type SinkFactory func(ctx context.Context, name string) (export.Sink, error)

// PlanHandler handles forecast and staffing requests
type PlanHandler struct {
	planner Planner
	filter  *filter.PlanFilter
	sinks   SinkFactory
	cfg     config.ForecastConfig
	log     *logger.Logger
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(planner Planner, planFilter *filter.PlanFilter, sinks SinkFactory, cfg config.ForecastConfig, log *logger.Logger) *PlanHandler {
	return &PlanHandler{
		planner: planner,
		filter:  planFilter,
		sinks:   sinks,
		cfg:     cfg,
		log:     log,
	}
}

// Forecast returns hourly predictions
// GET /api/v1/forecast?locationId=loc-1&hours=168
func (h *PlanHandler) Forecast(c echo.Context) error {
	locationID, err := requireLocationID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	hours, err := intQuery(c, "hours", h.cfg.ForecastHours)
	if err != nil {
		return respondError(c, h.log, err)
	}

	forecast, err := h.planner.Forecast(c.Request().Context(), locationID, hours)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, forecast)
}

// Staffing returns plan records, optionally narrowed by a CEL filter
// GET /api/v1/staffing?locationId=loc-1&hours=24&smooth=true&filter=plan.servers>3
func (h *PlanHandler) Staffing(c echo.Context) error {
	plan, err := h.staffingPlan(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	plan, err = h.filter.Apply(c.QueryParam("filter"), plan)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// ExportWorkbook returns the plan as an xlsx download
// GET /api/v1/staffing/export.xlsx?locationId=loc-1&hours=24
func (h *PlanHandler) ExportWorkbook(c echo.Context) error {
	plan, err := h.staffingPlan(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	locationID := c.QueryParam("locationId")
	body, err := export.WorkbookBytes(locationID, plan)
	if err != nil {
		return respondError(c, h.log, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "staffing-"+locationID+".xlsx"))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", body)
}

// Export writes the plan to a sink
// POST /api/v1/staffing/export?locationId=loc-1&hours=24&sink=kafka
func (h *PlanHandler) Export(c echo.Context) error {
	plan, err := h.staffingPlan(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	ctx := c.Request().Context()
	sink, err := h.sinks(ctx, c.QueryParam("sink"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer sink.Close()

	locationID := c.QueryParam("locationId")
	dest, err := export.Export(ctx, sink, locationID, plan)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"locationId":  locationID,
		"sink":        sink.Name(),
		"destination": dest,
		"records":     len(plan),
	})
}

func (h *PlanHandler) staffingPlan(c echo.Context) ([]models.PlanRecord, error) {
	locationID, err := requireLocationID(c)
	if err != nil {
		return nil, err
	}
	hours, err := intQuery(c, "hours", h.cfg.StaffingHours)
	if err != nil {
		return nil, err
	}
	smooth, err := boolQuery(c, "smooth", h.cfg.SmoothByDefault)
	if err != nil {
		return nil, err
	}
	return h.planner.Staffing(c.Request().Context(), locationID, hours, smooth)
}
