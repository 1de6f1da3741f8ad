package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/cmd/forecaster/middleware"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/service"
	"github.com/tableturn/forecaster/common/validation"
)

// Ingester stores demand events
type Ingester interface {
	RecordEvent(ctx context.Context, ev models.DemandEvent) (*service.RecordResult, error)
	ImportCSV(ctx context.Context, r io.Reader, authorize service.Authorizer) (*service.ImportResult, error)
}

// Seeder fills a location with generated history
type Seeder interface {
	Seed(ctx context.Context, req service.SeedRequest) (*service.SeedResult, error)
}

// DemandHandler handles event ingestion, CSV import and seeding
type DemandHandler struct {
	ingest Ingester
	seeder Seeder
	log    *logger.Logger
}

// NewDemandHandler creates a new demand handler
func NewDemandHandler(ingest Ingester, seeder Seeder, log *logger.Logger) *DemandHandler {
	return &DemandHandler{
		ingest: ingest,
		seeder: seeder,
		log:    log,
	}
}

// eventRequest keeps partySize optional so a missing value can be told from zero
type eventRequest struct {
	EventID    string             `json:"eventId"`
	LocationID string             `json:"locationId"`
	Timestamp  *time.Time         `json:"timestamp"`
	EventType  models.EventType   `json:"eventType"`
	PartySize  *int               `json:"partySize"`
	Revenue    *float64           `json:"revenue"`
	Source     models.EventSource `json:"source"`
}

func (r eventRequest) toEvent() (models.DemandEvent, error) {
	switch {
	case r.Timestamp == nil:
		return models.DemandEvent{}, fmt.Errorf("%w: timestamp", validation.ErrMissingField)
	case r.PartySize == nil:
		return models.DemandEvent{}, fmt.Errorf("%w: partySize", validation.ErrMissingField)
	}
	return models.DemandEvent{
		ID:         r.EventID,
		LocationID: r.LocationID,
		Timestamp:  *r.Timestamp,
		EventType:  r.EventType,
		PartySize:  *r.PartySize,
		Revenue:    r.Revenue,
		Source:     r.Source,
	}, nil
}

// RecordEvent stores a single event. Replaying an id is a 200 no-op.
// POST /api/v1/demand/events
func (h *DemandHandler) RecordEvent(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.log, echo.NewHTTPError(http.StatusBadRequest, "invalid request body"))
	}

	ev, err := req.toEvent()
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := middleware.CanWriteLocation(middleware.GetUser(c), ev.LocationID); err != nil {
		return respondError(c, h.log, err)
	}

	res, err := h.ingest.RecordEvent(c.Request().Context(), ev)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if !res.Created {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"message": "Event already exists",
		})
	}

	if ev.Source == "" {
		ev.Source = models.SourceAPI
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"event":  ev,
		"queued": res.Queued,
	})
}

// UploadCSV imports a text/csv body in one batch
// POST /api/v1/demand/upload
func (h *DemandHandler) UploadCSV(c echo.Context) error {
	if !strings.Contains(c.Request().Header.Get(echo.HeaderContentType), "text/csv") {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Content-Type must be text/csv",
		})
	}

	user := middleware.GetUser(c)
	authorize := func(locationID string) error {
		return middleware.CanWriteLocation(user, locationID)
	}

	res, err := h.ingest.ImportCSV(c.Request().Context(), c.Request().Body, authorize)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":    "CSV ingested",
		"batchId":    res.BatchID,
		"eventCount": res.EventCount,
		"inserted":   res.Inserted,
	})
}

// Seed creates the group and location if needed and generates history
// POST /api/v1/demand/seed
func (h *DemandHandler) Seed(c echo.Context) error {
	var req service.SeedRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.log, echo.NewHTTPError(http.StatusBadRequest, "invalid request body"))
	}
	if err := middleware.CanWriteLocation(middleware.GetUser(c), req.LocationID); err != nil {
		return respondError(c, h.log, err)
	}

	res, err := h.seeder.Seed(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":    "Seed data generated successfully",
		"eventCount": res.EventCount,
		"inserted":   res.Inserted,
		"rollups":    res.Rollups,
		"location":   res.Location,
	})
}
