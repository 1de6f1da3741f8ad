package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableturn/forecaster/common/ingest"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/queue"
	"github.com/tableturn/forecaster/common/validation"
)

var noon = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type ingestFixture struct {
	events    *fakeEvents
	rollups   *fakeRollups
	locations *fakeLocations
	queue     *fakeQueue
	rollupSvc *RollupService
	svc       *IngestService
}

func newIngestFixture(mode string) *ingestFixture {
	f := &ingestFixture{
		events:    newFakeEvents(),
		rollups:   newFakeRollups(),
		locations: newFakeLocations(models.Location{ID: "loc-1"}, models.Location{ID: "loc-2"}),
		queue:     &fakeQueue{},
	}
	f.rollupSvc = NewRollupService(&RollupServiceOpts{
		Events:    f.events,
		Rollups:   f.rollups,
		Locations: f.locations,
		Queue:     f.queue,
		Mode:      mode,
	})
	f.svc = NewIngestService(f.events, f.locations, f.rollupSvc, nil)
	return f
}

func arrival(id string, at time.Time, party int) models.DemandEvent {
	return models.DemandEvent{ID: id, LocationID: "loc-1", Timestamp: at, EventType: models.EventGuestArrival, PartySize: party}
}

func TestRecordEvent_CreatesAndRollsUp(t *testing.T) {
	f := newIngestFixture(ModeSync)
	ctx := context.Background()

	res, err := f.svc.RecordEvent(ctx, arrival("e1", noon.Add(10*time.Minute), 3))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.Queued)

	rollups := f.rollups.all()
	require.Len(t, rollups, 1)
	assert.Equal(t, noon, rollups[0].Timestamp)
	assert.Equal(t, 3.0, rollups[0].AvgGuests)

	_, err = f.svc.RecordEvent(ctx, arrival("e2", noon.Add(40*time.Minute), 2))
	require.NoError(t, err)
	assert.Equal(t, 5.0, f.rollups.all()[0].AvgGuests)
}

func TestRecordEvent_DuplicateIsNoop(t *testing.T) {
	f := newIngestFixture(ModeSync)
	ctx := context.Background()

	_, err := f.svc.RecordEvent(ctx, arrival("e1", noon, 3))
	require.NoError(t, err)
	before := f.rollups.all()
	upserts := f.rollups.upserts

	res, err := f.svc.RecordEvent(ctx, arrival("e1", noon, 3))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, before, f.rollups.all())
	assert.Equal(t, upserts+1, f.rollups.upserts, "duplicates refresh their hour")
	assert.Equal(t, 1, f.events.count())
}

func TestRecordEvent_RetryRepairsFailedRollup(t *testing.T) {
	f := newIngestFixture(ModeSync)
	ctx := context.Background()
	f.rollups.failNext = errors.New("connection reset")

	_, err := f.svc.RecordEvent(ctx, arrival("e1", noon.Add(10*time.Minute), 3))
	require.Error(t, err)
	assert.Equal(t, 1, f.events.count(), "event is committed before the recompute")
	assert.Empty(t, f.rollups.all())

	res, err := f.svc.RecordEvent(ctx, arrival("e1", noon.Add(10*time.Minute), 3))
	require.NoError(t, err)
	assert.False(t, res.Created)

	rollups := f.rollups.all()
	require.Len(t, rollups, 1)
	assert.Equal(t, noon, rollups[0].Timestamp)
	assert.Equal(t, 3.0, rollups[0].AvgGuests)
}

func TestRecordEvent_AsyncQueueFullIsReported(t *testing.T) {
	f := newIngestFixture(ModeAsync)
	mem := queue.NewMemoryQueue(logger.Discard())
	f.rollupSvc = NewRollupService(&RollupServiceOpts{
		Events:    f.events,
		Rollups:   f.rollups,
		Locations: f.locations,
		Queue:     mem,
		Mode:      ModeAsync,
	})
	f.svc = NewIngestService(f.events, f.locations, f.rollupSvc, nil)

	ctx := context.Background()
	var lastErr error
	queued := 0
	for i := 0; i <= queue.MemoryTopicCapacity; i++ {
		res, err := f.svc.RecordEvent(ctx, arrival(fmt.Sprintf("e%d", i), noon.Add(time.Duration(i)*time.Hour), 1))
		if err != nil {
			lastErr = err
			continue
		}
		if res.Queued {
			queued++
		}
	}

	assert.Equal(t, queue.MemoryTopicCapacity, queued)
	assert.ErrorIs(t, lastErr, queue.ErrQueueFull)
}

func TestRecordEvent_Rejects(t *testing.T) {
	f := newIngestFixture(ModeSync)
	ctx := context.Background()

	_, err := f.svc.RecordEvent(ctx, models.DemandEvent{LocationID: "loc-1", Timestamp: noon, EventType: models.EventGuestArrival})
	assert.ErrorIs(t, err, validation.ErrMissingField)

	_, err = f.svc.RecordEvent(ctx, arrival("e1", noon, -1))
	assert.ErrorIs(t, err, validation.ErrNegativePartySize)

	ev := arrival("e2", noon, 1)
	ev.LocationID = "nowhere"
	_, err = f.svc.RecordEvent(ctx, ev)
	assert.ErrorIs(t, err, ErrLocationNotFound)

	assert.Zero(t, f.events.count())
}

func TestRecordEvent_DefaultsSource(t *testing.T) {
	f := newIngestFixture(ModeSync)
	_, err := f.svc.RecordEvent(context.Background(), arrival("e1", noon, 1))
	require.NoError(t, err)
	assert.Equal(t, models.SourceAPI, f.events.byID["e1"].Source)
}

func TestRecordEvent_AsyncEnqueuesTask(t *testing.T) {
	f := newIngestFixture(ModeAsync)

	res, err := f.svc.RecordEvent(context.Background(), arrival("e1", noon.Add(5*time.Minute), 2))
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Empty(t, f.rollups.all(), "async mode leaves the recompute to the worker")

	require.Len(t, f.queue.msgs, 1)
	msg := f.queue.msgs[0]
	assert.Equal(t, queue.TopicRollupRecompute, msg.topic)
	assert.Equal(t, "loc-1", msg.key)

	var task models.RecomputeTask
	require.NoError(t, json.Unmarshal(msg.value, &task))
	assert.Equal(t, noon, task.From.UTC())
	assert.Equal(t, noon.Add(time.Hour), task.To.UTC())

	require.NoError(t, f.rollupSvc.HandleTask(context.Background(), msg.key, msg.value))
	require.Len(t, f.rollups.all(), 1)
	assert.Equal(t, 2.0, f.rollups.all()[0].AvgGuests)
}

func TestImportCSV(t *testing.T) {
	f := newIngestFixture(ModeSync)
	body := `eventId,locationId,timestamp,eventType,partySize,revenue
e1,loc-1,2024-01-01T12:10:00Z,guest_arrival,2,
e2,loc-1,2024-01-01T12:25:00Z,order_placed,,30
e3,loc-2,2024-01-01T18:00:00Z,guest_arrival,,
`
	res, err := f.svc.ImportCSV(context.Background(), strings.NewReader(body), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.EventCount)
	assert.Equal(t, 3, res.Inserted)
	assert.NotEmpty(t, res.BatchID)

	rollups := f.rollups.all()
	require.Len(t, rollups, 2)
	byLoc := map[string]models.HourlyDemandRollup{}
	for _, r := range rollups {
		byLoc[r.LocationID] = r
	}
	assert.Equal(t, 2.0, byLoc["loc-1"].AvgGuests)
	assert.Equal(t, 30.0, byLoc["loc-1"].AvgRevenue)
	assert.Equal(t, 1.0, byLoc["loc-2"].AvgGuests, "partySize defaults to 1")

	again, err := f.svc.ImportCSV(context.Background(), strings.NewReader(body), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, again.EventCount)
	assert.Zero(t, again.Inserted)
}

func TestImportCSV_RejectsBeforeWriting(t *testing.T) {
	f := newIngestFixture(ModeSync)

	_, err := f.svc.ImportCSV(context.Background(), strings.NewReader(
		"eventId,locationId,timestamp,eventType\ne1,loc-1,2024-01-01T12:00:00Z,guest_arrival\ne2,loc-1,,guest_arrival\n"), nil)
	var rowErr *ingest.RowError
	assert.True(t, errors.As(err, &rowErr))
	assert.Zero(t, f.events.count())

	_, err = f.svc.ImportCSV(context.Background(), strings.NewReader(
		"eventId,locationId,timestamp,eventType\ne1,ghost,2024-01-01T12:00:00Z,guest_arrival\n"), nil)
	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.Zero(t, f.events.count())
}

func TestImportCSV_Authorizer(t *testing.T) {
	f := newIngestFixture(ModeSync)
	denied := errors.New("denied")

	_, err := f.svc.ImportCSV(context.Background(), strings.NewReader(
		"eventId,locationId,timestamp,eventType\ne1,loc-1,2024-01-01T12:00:00Z,guest_arrival\ne2,loc-2,2024-01-01T12:00:00Z,guest_arrival\n"),
		func(id string) error {
			if id == "loc-2" {
				return denied
			}
			return nil
		})
	assert.ErrorIs(t, err, denied)
	assert.Zero(t, f.events.count())
}
