package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/queue"
)

func TestRecompute_IsIdempotent(t *testing.T) {
	f := newIngestFixture(ModeSync)
	ctx := context.Background()

	rev := 25.0
	_, err := f.events.RecordEvents(ctx, []models.DemandEvent{
		arrival("a1", noon.Add(5*time.Minute), 2),
		arrival("a2", noon.Add(65*time.Minute), 4),
		{ID: "o1", LocationID: "loc-1", Timestamp: noon.Add(20 * time.Minute), EventType: models.EventOrderPlaced, PartySize: 1, Revenue: &rev},
	})
	require.NoError(t, err)

	n, err := f.rollupSvc.Recompute(ctx, "loc-1", noon, noon.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	first := f.rollups.all()

	_, err = f.rollupSvc.Recompute(ctx, "loc-1", noon, noon.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, f.rollups.all())

	require.Len(t, first, 2)
	assert.Equal(t, 2.0, first[0].AvgGuests)
	assert.Equal(t, 1.0, first[0].AvgOrders)
	assert.Equal(t, 25.0, first[0].AvgRevenue)
	assert.Equal(t, 4.0, first[1].AvgGuests)
}

func TestRecompute_WidensToWholeHours(t *testing.T) {
	f := newIngestFixture(ModeSync)
	ctx := context.Background()

	_, err := f.events.RecordEvents(ctx, []models.DemandEvent{
		arrival("a1", noon.Add(5*time.Minute), 2),
		arrival("a2", noon.Add(50*time.Minute), 1),
	})
	require.NoError(t, err)

	_, err = f.rollupSvc.Recompute(ctx, "loc-1", noon.Add(30*time.Minute), noon.Add(31*time.Minute))
	require.NoError(t, err)

	rollups := f.rollups.all()
	require.Len(t, rollups, 1)
	assert.Equal(t, 3.0, rollups[0].AvgGuests, "both events in the hour count")
}

func TestRecompute_LocalTimezone(t *testing.T) {
	f := newIngestFixture(ModeSync)
	f.locations.locations["loc-1"].Timezone = "America/New_York"
	ctx := context.Background()

	_, err := f.events.RecordEvent(ctx, arrival("a1", time.Date(2024, 1, 1, 3, 30, 0, 0, time.UTC), 2))
	require.NoError(t, err)

	_, err = f.rollupSvc.Recompute(ctx, "loc-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	rollups := f.rollups.all()
	require.Len(t, rollups, 1)
	assert.Equal(t, 22, rollups[0].HourOfDay)
	assert.Equal(t, int(time.Sunday), rollups[0].DayOfWeek)
}

func TestRecompute_Rejects(t *testing.T) {
	f := newIngestFixture(ModeSync)
	ctx := context.Background()

	_, err := f.rollupSvc.Recompute(ctx, "loc-1", noon, noon)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = f.rollupSvc.Recompute(ctx, "loc-1", noon, noon.AddDate(1, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = f.rollupSvc.Recompute(ctx, "ghost", noon, noon.Add(time.Hour))
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestSchedule_SplitsLongSpans(t *testing.T) {
	f := newIngestFixture(ModeAsync)
	svc := NewRollupService(&RollupServiceOpts{
		Events:    f.events,
		Rollups:   f.rollups,
		Locations: f.locations,
		Queue:     f.queue,
		Mode:      ModeAsync,
		MaxWindow: 24 * time.Hour,
	})

	queued, _, err := svc.Schedule(context.Background(), "loc-1", noon, noon.Add(60*time.Hour))
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Len(t, f.queue.msgs, 3)
}

func TestSchedule_EnqueueFailure(t *testing.T) {
	f := newIngestFixture(ModeAsync)
	f.queue.err = errors.New("stream unavailable")

	_, _, err := f.rollupSvc.Schedule(context.Background(), "loc-1", noon, noon.Add(time.Hour))
	assert.ErrorContains(t, err, "stream unavailable")
}

func TestNewRollupService_FallsBackToSync(t *testing.T) {
	svc := NewRollupService(&RollupServiceOpts{Mode: ModeAsync})
	assert.Equal(t, ModeSync, svc.Mode())
}

func TestHandleTask_BadPayload(t *testing.T) {
	f := newIngestFixture(ModeAsync)
	assert.ErrorIs(t, f.rollupSvc.HandleTask(context.Background(), "loc-1", []byte("{")), queue.ErrPermanent)
}

func TestHandleTask_UnknownLocationIsPermanent(t *testing.T) {
	f := newIngestFixture(ModeAsync)
	payload, err := json.Marshal(models.RecomputeTask{LocationID: "ghost", From: noon, To: noon.Add(time.Hour)})
	require.NoError(t, err)

	err = f.rollupSvc.HandleTask(context.Background(), "ghost", payload)
	assert.ErrorIs(t, err, queue.ErrPermanent)
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestHandleTask_StoreFailureIsRetryable(t *testing.T) {
	f := newIngestFixture(ModeAsync)
	f.rollups.failNext = errors.New("connection reset")
	_, err := f.events.RecordEvent(context.Background(), arrival("e1", noon, 2))
	require.NoError(t, err)
	payload, err := json.Marshal(models.RecomputeTask{LocationID: "loc-1", From: noon, To: noon.Add(time.Hour)})
	require.NoError(t, err)

	err = f.rollupSvc.HandleTask(context.Background(), "loc-1", payload)
	require.Error(t, err)
	assert.False(t, queue.Settled(err))

	require.NoError(t, f.rollupSvc.HandleTask(context.Background(), "loc-1", payload))
	require.Len(t, f.rollups.all(), 1)
}
