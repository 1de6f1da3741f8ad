package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/tableturn/forecaster/common/models"
)

// ConsoleSink writes one JSON object per plan hour
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink creates a sink writing JSON lines to w
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

func (s *ConsoleSink) Name() string { return SinkConsole }

func (s *ConsoleSink) Write(ctx context.Context, locationID string, plan []models.PlanRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.w)
	for _, rec := range plan {
		line := struct {
			LocationID string `json:"locationId"`
			models.PlanRecord
		}{locationID, rec}
		if err := enc.Encode(line); err != nil {
			return "", fmt.Errorf("failed to write plan record: %w", err)
		}
	}
	return "stdout", nil
}

func (s *ConsoleSink) Close() error { return nil }
