package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/validation"
)

func TestParseCSV(t *testing.T) {
	body := `eventId,locationId,timestamp,eventType,partySize,revenue
e1,loc-1,2024-01-01T12:10:00Z,guest_arrival,3,
e2,loc-1,2024-01-01T12:25:00Z,order_placed,,42.5
e3,loc-2,2024-01-01T13:00:00Z,table_seated,,
`
	batch, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)

	assert.NotEmpty(t, batch.ID)
	require.Len(t, batch.Events, 3)

	assert.Equal(t, 3, batch.Events[0].PartySize)
	assert.Nil(t, batch.Events[0].Revenue)
	assert.Equal(t, models.SourceCSV, batch.Events[0].Source)

	assert.Equal(t, 1, batch.Events[1].PartySize, "partySize defaults to 1")
	require.NotNil(t, batch.Events[1].Revenue)
	assert.Equal(t, 42.5, *batch.Events[1].Revenue)

	assert.Equal(t, []string{"loc-1", "loc-2"}, batch.LocationIDs())
	assert.Equal(t, time.Date(2024, 1, 1, 12, 10, 0, 0, time.UTC), batch.Events[0].Timestamp)
}

func TestParseCSV_OptionalColumnsAbsent(t *testing.T) {
	body := "eventId,locationId,timestamp,eventType\ne1,loc-1,2024-01-01T12:10:00Z,guest_arrival\n"
	batch, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, batch.Events, 1)
	assert.Equal(t, 1, batch.Events[0].PartySize)
}

func TestParseCSV_RejectsWholeBatch(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		line    int
		wantErr error
	}{
		{
			name:    "missing required column",
			body:    "eventId,locationId,timestamp\ne1,loc-1,2024-01-01T12:00:00Z\n",
			line:    1,
			wantErr: validation.ErrMissingField,
		},
		{
			name:    "missing required field",
			body:    "eventId,locationId,timestamp,eventType\ne1,loc-1,2024-01-01T12:00:00Z,guest_arrival\ne2,,2024-01-01T12:00:00Z,guest_arrival\n",
			line:    3,
			wantErr: validation.ErrMissingField,
		},
		{
			name:    "unknown event type",
			body:    "eventId,locationId,timestamp,eventType\ne1,loc-1,2024-01-01T12:00:00Z,walk_out\n",
			line:    2,
			wantErr: validation.ErrInvalidEventType,
		},
		{
			name:    "negative revenue",
			body:    "eventId,locationId,timestamp,eventType,revenue\ne1,loc-1,2024-01-01T12:00:00Z,order_placed,-1\n",
			line:    2,
			wantErr: validation.ErrNegativeRevenue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := ParseCSV(strings.NewReader(tt.body))
			assert.Nil(t, batch)

			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr), "got %v", err)
			assert.Equal(t, tt.line, rowErr.Line)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseCSV_BadTimestamp(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("eventId,locationId,timestamp,eventType\ne1,loc-1,yesterday,guest_arrival\n"))
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "timestamp", rowErr.Field)
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyImport)

	_, err = ParseCSV(strings.NewReader("eventId,locationId,timestamp,eventType\n"))
	assert.ErrorIs(t, err, ErrEmptyImport)
}
