package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/cmd/forecaster/middleware"
	"github.com/tableturn/forecaster/common/engine"
	"github.com/tableturn/forecaster/common/export"
	"github.com/tableturn/forecaster/common/filter"
	"github.com/tableturn/forecaster/common/ingest"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/queue"
	"github.com/tableturn/forecaster/common/service"
	"github.com/tableturn/forecaster/common/validation"
)

// badRequest lists the errors callers can fix by changing the request
var badRequest = []error{
	validation.ErrMissingField,
	validation.ErrInvalidEventType,
	validation.ErrNegativePartySize,
	validation.ErrNegativeRevenue,
	validation.ErrInvalidPatch,
	validation.ErrInvalidFeedback,
	validation.ErrInvalidTimezone,
	ingest.ErrEmptyImport,
	engine.ErrInvalidRatios,
	service.ErrInvalidWindow,
	service.ErrInvalidHorizon,
	filter.ErrInvalidFilter,
	export.ErrUnknownSink,
}

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	var rowErr *ingest.RowError
	if errors.As(err, &rowErr) {
		return http.StatusBadRequest
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}

	switch {
	case errors.Is(err, middleware.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusServiceUnavailable
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}. Server errors are logged.
func respondError(c echo.Context, log *logger.Logger, err error) error {
	status := statusFor(err)

	msg := err.Error()
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg = fmt.Sprint(httpErr.Message)
	}

	switch status {
	case http.StatusForbidden:
		msg = "Forbidden"
	case http.StatusInternalServerError:
		log.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	return c.JSON(status, map[string]interface{}{"error": msg})
}

// intQuery reads an optional integer query parameter
func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}

// boolQuery reads an optional boolean query parameter
func boolQuery(c echo.Context, name string, def bool) (bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, echo.NewHTTPError(http.StatusBadRequest, name+" must be a boolean")
	}
	return b, nil
}

// requireLocationID reads locationId from the query string
func requireLocationID(c echo.Context) (string, error) {
	id := c.QueryParam("locationId")
	if id == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "locationId is required")
	}
	return id, nil
}
