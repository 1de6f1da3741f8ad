package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/cmd/forecaster/container"
	"github.com/tableturn/forecaster/cmd/forecaster/handlers"
	"github.com/tableturn/forecaster/cmd/forecaster/middleware"
)

// RegisterSettingsRoutes registers service ratio and feedback routes
func RegisterSettingsRoutes(e *echo.Echo, c *container.Container) {
	log := c.Components.Logger
	h := handlers.NewSettingsHandler(c.SettingsService, log)
	fb := handlers.NewFeedbackHandler(c.FeedbackService, log)
	limits := writeMiddleware(c)

	settings := e.Group("/api/v1/settings")
	{
		settings.GET("/:locationId", h.GetSettings)                                  // GET /api/v1/settings/loc-1
		settings.POST("", h.SaveSettings, with(limits, middleware.RequireUser())...) // POST /api/v1/settings
	}

	feedback := e.Group("/api/v1/feedback")
	{
		feedback.POST("", fb.RecordFeedback, limits...) // POST /api/v1/feedback
		feedback.GET("", fb.ListFeedback)               // GET /api/v1/feedback?locationId=...&days=30
	}
}
