// Package ingest turns bulk uploads into validated demand events.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lucsky/cuid"

	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/validation"
)

// ErrEmptyImport is returned when the body has no data rows
var ErrEmptyImport = errors.New("CSV must contain a header row and at least one data row")

// RequiredColumns must appear in the header of every import
var RequiredColumns = []string{"eventId", "locationId", "timestamp", "eventType"}

// RowError points at the first row that failed parsing or validation.
// Line is 1-based and counts the header.
type RowError struct {
	Line  int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Batch is a fully parsed import, ready to be stored in one transaction
type Batch struct {
	ID     string
	Events []models.DemandEvent
}

// LocationIDs returns the distinct locations touched by the batch, in first-seen order
func (b *Batch) LocationIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, ev := range b.Events {
		if !seen[ev.LocationID] {
			seen[ev.LocationID] = true
			ids = append(ids, ev.LocationID)
		}
	}
	return ids
}

// ParseCSV reads a whole import. Any bad row rejects the batch.
// partySize defaults to 1 and revenue is optional.
func ParseCSV(r io.Reader) (*Batch, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyImport
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range RequiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, &RowError{Line: 1, Field: name, Err: validation.ErrMissingField}
		}
	}

	batch := &Batch{ID: cuid.New()}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		if isBlank(record) {
			continue
		}

		ev, err := parseRow(cols, record)
		if err != nil {
			var rowErr *RowError
			if errors.As(err, &rowErr) {
				rowErr.Line = line
				return nil, rowErr
			}
			return nil, &RowError{Line: line, Err: err}
		}
		batch.Events = append(batch.Events, ev)
	}

	if len(batch.Events) == 0 {
		return nil, ErrEmptyImport
	}
	return batch, nil
}

func parseRow(cols map[string]int, record []string) (models.DemandEvent, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	for _, name := range RequiredColumns {
		if get(name) == "" {
			return models.DemandEvent{}, &RowError{Field: name, Err: validation.ErrMissingField}
		}
	}

	ts, err := time.Parse(time.RFC3339, get("timestamp"))
	if err != nil {
		return models.DemandEvent{}, &RowError{Field: "timestamp", Err: err}
	}

	ev := models.DemandEvent{
		ID:         get("eventId"),
		LocationID: get("locationId"),
		Timestamp:  ts,
		EventType:  models.EventType(get("eventType")),
		PartySize:  1,
		Source:     models.SourceCSV,
	}

	if raw := get("partySize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.DemandEvent{}, &RowError{Field: "partySize", Err: err}
		}
		ev.PartySize = n
	}

	if raw := get("revenue"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.DemandEvent{}, &RowError{Field: "revenue", Err: err}
		}
		ev.Revenue = &v
	}

	if err := validation.ValidateEvent(ev); err != nil {
		return models.DemandEvent{}, err
	}
	return ev, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
