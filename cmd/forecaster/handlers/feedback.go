package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/models"
)

// FeedbackRecorder stores and lists daily actuals
type FeedbackRecorder interface {
	Record(ctx context.Context, fb models.FeedbackEvent) (*models.FeedbackEvent, error)
	List(ctx context.Context, locationID string, from, to time.Time) ([]models.FeedbackEvent, error)
}

// FeedbackHandler handles actuals reported after service
type FeedbackHandler struct {
	feedback FeedbackRecorder
	log      *logger.Logger
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedback FeedbackRecorder, log *logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, log: log}
}

type feedbackRequest struct {
	FeedbackID       string    `json:"feedbackId"`
	LocationID       string    `json:"locationId"`
	Date             time.Time `json:"date"`
	ActualGuests     int       `json:"actualGuests"`
	ActualLaborHours float64   `json:"actualLaborHours"`
	AvgWaitTime      float64   `json:"avgWaitTime"`
}

// RecordFeedback stores actuals for one location-day
// POST /api/v1/feedback
func (h *FeedbackHandler) RecordFeedback(c echo.Context) error {
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.log, echo.NewHTTPError(http.StatusBadRequest, "invalid request body"))
	}

	fb, err := h.feedback.Record(c.Request().Context(), models.FeedbackEvent{
		ID:               req.FeedbackID,
		LocationID:       req.LocationID,
		Date:             req.Date,
		ActualGuests:     req.ActualGuests,
		ActualLaborHours: req.ActualLaborHours,
		AvgWaitTime:      req.AvgWaitTime,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, fb)
}

// ListFeedback returns actuals for the trailing days (default 30)
// GET /api/v1/feedback?locationId=loc-1&days=30
func (h *FeedbackHandler) ListFeedback(c echo.Context) error {
	locationID, err := requireLocationID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	days, err := intQuery(c, "days", 30)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if days < 1 {
		return respondError(c, h.log, echo.NewHTTPError(http.StatusBadRequest, "days must be positive"))
	}

	to := time.Now().UTC()
	out, err := h.feedback.List(c.Request().Context(), locationID, to.AddDate(0, 0, -days), to)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
