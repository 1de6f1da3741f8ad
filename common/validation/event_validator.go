package validation

import (
	"errors"
	"fmt"

	"github.com/tableturn/forecaster/common/models"
)

var (
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidEventType  = errors.New("invalid event type")
	ErrNegativePartySize = errors.New("party size must not be negative")
	ErrNegativeRevenue   = errors.New("revenue must not be negative")
	ErrInvalidPatch      = errors.New("invalid settings patch")
	ErrInvalidFeedback   = errors.New("invalid feedback")
	ErrInvalidTimezone   = errors.New("invalid timezone")
)

// ValidateEvent checks an event before it is stored
func ValidateEvent(ev models.DemandEvent) error {
	switch {
	case ev.ID == "":
		return fmt.Errorf("%w: eventId", ErrMissingField)
	case ev.LocationID == "":
		return fmt.Errorf("%w: locationId", ErrMissingField)
	case ev.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp", ErrMissingField)
	case ev.EventType == "":
		return fmt.Errorf("%w: eventType", ErrMissingField)
	}

	if !ev.EventType.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidEventType, ev.EventType)
	}
	if ev.PartySize < 0 {
		return fmt.Errorf("%w: %d", ErrNegativePartySize, ev.PartySize)
	}
	if ev.Revenue != nil && *ev.Revenue < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeRevenue, *ev.Revenue)
	}
	return nil
}

// ValidateFeedback checks actuals submitted for a day
func ValidateFeedback(fb models.FeedbackEvent) error {
	switch {
	case fb.LocationID == "":
		return fmt.Errorf("%w: locationId", ErrMissingField)
	case fb.Date.IsZero():
		return fmt.Errorf("%w: date", ErrMissingField)
	case fb.ActualGuests < 0, fb.ActualLaborHours < 0, fb.AvgWaitTime < 0:
		return fmt.Errorf("%w: actuals must not be negative", ErrInvalidFeedback)
	}
	return nil
}
