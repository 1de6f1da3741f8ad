package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/cmd/forecaster/middleware"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/models"
)

// jsonPatchContentType selects RFC 6902 handling on settings updates
const jsonPatchContentType = "application/json-patch+json"

// maxSettingsBody bounds a settings update payload
const maxSettingsBody = 64 << 10

// SettingsEditor reads and patches location ratios
type SettingsEditor interface {
	Get(ctx context.Context, locationID string) (models.ServiceRatios, error)
	MergePatch(ctx context.Context, locationID string, patch []byte) (*models.Location, error)
	JSONPatch(ctx context.Context, locationID string, patch []byte) (*models.Location, error)
}

// SettingsHandler handles service ratio reads and updates
type SettingsHandler struct {
	settings SettingsEditor
	log      *logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings SettingsEditor, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, log: log}
}

// GetSettings returns a location's ratios
// GET /api/v1/settings/:locationId
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	locationID := c.Param("locationId")

	ratios, err := h.settings.Get(c.Request().Context(), locationID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"locationId": locationID,
		"ratios":     ratios,
	})
}

// SaveSettings updates ratios. A JSON object body is a merge patch carrying
// locationId; an application/json-patch+json body is a list of operations
// with locationId in the query string.
// POST /api/v1/settings
func (h *SettingsHandler) SaveSettings(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSettingsBody))
	if err != nil {
		return respondError(c, h.log, echo.NewHTTPError(http.StatusBadRequest, "failed to read request body"))
	}

	isJSONPatch := strings.Contains(c.Request().Header.Get(echo.HeaderContentType), jsonPatchContentType)

	locationID := c.QueryParam("locationId")
	if !isJSONPatch {
		var head struct {
			LocationID string `json:"locationId"`
		}
		if err := json.Unmarshal(body, &head); err != nil {
			return respondError(c, h.log, echo.NewHTTPError(http.StatusBadRequest, "invalid request body"))
		}
		if head.LocationID != "" {
			locationID = head.LocationID
		}
	}
	if locationID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "locationId required",
		})
	}

	if err := middleware.CanWriteLocation(middleware.GetUser(c), locationID); err != nil {
		return respondError(c, h.log, err)
	}

	ctx := c.Request().Context()
	var loc *models.Location
	if isJSONPatch {
		loc, err = h.settings.JSONPatch(ctx, locationID, body)
	} else {
		loc, err = h.settings.MergePatch(ctx, locationID, body)
	}
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Settings saved",
		"location": loc,
	})
}
