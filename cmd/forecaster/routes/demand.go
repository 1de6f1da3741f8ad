package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/cmd/forecaster/container"
	"github.com/tableturn/forecaster/cmd/forecaster/handlers"
	"github.com/tableturn/forecaster/cmd/forecaster/middleware"
)

// RegisterDemandRoutes registers event ingestion, import, seed and recompute routes
func RegisterDemandRoutes(e *echo.Echo, c *container.Container) {
	log := c.Components.Logger
	h := handlers.NewDemandHandler(c.IngestService, c.SeedService, log)
	r := handlers.NewRollupHandler(c.RollupService, log)
	limits := writeMiddleware(c)

	demand := e.Group("/api/v1/demand")
	{
		demand.POST("/events", h.RecordEvent, limits...)                               // POST /api/v1/demand/events
		demand.POST("/upload", h.UploadCSV, with(limits, middleware.RequireUser())...) // POST /api/v1/demand/upload (text/csv)
		demand.POST("/seed", h.Seed, limits...)                                        // POST /api/v1/demand/seed
	}

	rollups := e.Group("/api/v1/rollups")
	{
		rollups.POST("/recompute", r.Recompute, limits...) // POST /api/v1/rollups/recompute
	}
}
