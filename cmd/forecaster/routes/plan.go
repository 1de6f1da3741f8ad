package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/cmd/forecaster/container"
	"github.com/tableturn/forecaster/cmd/forecaster/handlers"
)

// RegisterPlanRoutes registers forecast and staffing routes
func RegisterPlanRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewPlanHandler(
		c.PlanService,
		c.PlanFilter,
		c.OpenSink,
		c.Components.Config.Forecast,
		c.Components.Logger,
	)

	e.GET("/api/v1/forecast", h.Forecast) // GET /api/v1/forecast?locationId=...&hours=168

	staffing := e.Group("/api/v1/staffing")
	{
		staffing.GET("", h.Staffing)                              // GET /api/v1/staffing?locationId=...&filter=...
		staffing.GET("/export.xlsx", h.ExportWorkbook)            // GET /api/v1/staffing/export.xlsx?locationId=...
		staffing.POST("/export", h.Export, writeMiddleware(c)...) // POST /api/v1/staffing/export?sink=kafka
	}
}
