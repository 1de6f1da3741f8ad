package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/cmd/forecaster/middleware"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/service"
	"github.com/tableturn/forecaster/common/validation"
)

// Recomputer rebuilds rollups inline or through the task queue
type Recomputer interface {
	Recompute(ctx context.Context, locationID string, from, to time.Time) (int, error)
	Enqueue(ctx context.Context, task models.RecomputeTask) error
}

// RollupHandler handles explicit recompute requests
type RollupHandler struct {
	rollups Recomputer
	log     *logger.Logger
}

// NewRollupHandler creates a new rollup handler
func NewRollupHandler(rollups Recomputer, log *logger.Logger) *RollupHandler {
	return &RollupHandler{rollups: rollups, log: log}
}

type recomputeRequest struct {
	LocationID string    `json:"locationId"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Async      bool      `json:"async"`
}

// Recompute rebuilds rollups for [from, to)
// POST /api/v1/rollups/recompute
func (h *RollupHandler) Recompute(c echo.Context) error {
	var req recomputeRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.log, echo.NewHTTPError(http.StatusBadRequest, "invalid request body"))
	}
	switch {
	case req.LocationID == "":
		return respondError(c, h.log, fmt.Errorf("%w: locationId", validation.ErrMissingField))
	case req.From.IsZero() || req.To.IsZero() || !req.From.Before(req.To):
		return respondError(c, h.log, fmt.Errorf("%w: from must be before to", service.ErrInvalidWindow))
	}
	if err := middleware.CanWriteLocation(middleware.GetUser(c), req.LocationID); err != nil {
		return respondError(c, h.log, err)
	}

	ctx := c.Request().Context()
	if req.Async {
		err := h.rollups.Enqueue(ctx, models.RecomputeTask{
			LocationID:  req.LocationID,
			From:        req.From,
			To:          req.To,
			RequestedAt: time.Now().UTC(),
		})
		if err != nil {
			return respondError(c, h.log, err)
		}
		return c.JSON(http.StatusAccepted, map[string]interface{}{
			"locationId": req.LocationID,
			"from":       req.From,
			"to":         req.To,
			"queued":     true,
		})
	}

	rows, err := h.rollups.Recompute(ctx, req.LocationID, req.From, req.To)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"locationId": req.LocationID,
		"from":       req.From,
		"to":         req.To,
		"rollups":    rows,
	})
}
