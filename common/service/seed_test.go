package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/validation"
)

func newSeedFixture() (*SeedService, *ingestFixture) {
	f := newIngestFixture(ModeSync)
	svc := NewSeedService(f.events, f.locations, f.rollupSvc, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) }
	return svc, f
}

func TestSeed_BootstrapsLocation(t *testing.T) {
	svc, f := newSeedFixture()

	var progress []int
	res, err := svc.Seed(context.Background(), SeedRequest{
		LocationID:   "loc-new",
		GroupName:    "Harbor Group",
		LocationName: "Pier 9",
		Days:         3,
		Seed:         7,
		OnDay:        func(done, total int) { progress = append(progress, done) },
	})
	require.NoError(t, err)

	assert.Equal(t, "loc-new", res.Location.ID)
	assert.Equal(t, models.DefaultServiceRatios(), res.Location.Ratios)
	assert.Equal(t, []int{1, 2, 3, 4}, progress, "trailing days plus today")
	assert.Positive(t, res.EventCount)
	assert.Equal(t, res.EventCount, res.Inserted)
	assert.GreaterOrEqual(t, res.Rollups, 4*14, "every opening hour has arrivals")

	group := f.locations.groups["Harbor Group"]
	require.NotNil(t, group)
	assert.Equal(t, group.ID, res.Location.RestaurantGroupID)
}

func TestSeed_RerunIsIdempotent(t *testing.T) {
	svc, f := newSeedFixture()
	req := SeedRequest{LocationID: "loc-1", GroupName: "G", LocationName: "L", Days: 2, Seed: 42}

	first, err := svc.Seed(context.Background(), req)
	require.NoError(t, err)
	rollups := f.rollups.all()

	second, err := svc.Seed(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.EventCount, second.EventCount)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, rollups, f.rollups.all())
}

func TestSeed_RequiresFields(t *testing.T) {
	svc, _ := newSeedFixture()

	_, err := svc.Seed(context.Background(), SeedRequest{GroupName: "G", LocationName: "L"})
	assert.ErrorIs(t, err, validation.ErrMissingField)

	_, err = svc.Seed(context.Background(), SeedRequest{LocationID: "x", LocationName: "L"})
	assert.ErrorIs(t, err, validation.ErrMissingField)

	_, err = svc.Seed(context.Background(), SeedRequest{LocationID: "x", GroupName: "G", LocationName: "L", Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, validation.ErrInvalidTimezone)
}

func TestFeedback_Record(t *testing.T) {
	locations := newFakeLocations(models.Location{ID: "loc-1"})
	store := &fakeFeedback{}
	svc := NewFeedbackService(store, locations)

	fb, err := svc.Record(context.Background(), models.FeedbackEvent{
		LocationID:       "loc-1",
		Date:             time.Date(2024, 1, 5, 21, 45, 0, 0, time.UTC),
		ActualGuests:     180,
		ActualLaborHours: 64.5,
		AvgWaitTime:      7,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, fb.ID)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), fb.Date)

	list, err := svc.List(context.Background(), "loc-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Record(context.Background(), models.FeedbackEvent{LocationID: "loc-1", Date: fb.Date, ActualGuests: -1})
	assert.ErrorIs(t, err, validation.ErrInvalidFeedback)

	_, err = svc.Record(context.Background(), models.FeedbackEvent{LocationID: "ghost", Date: fb.Date})
	assert.ErrorIs(t, err, ErrLocationNotFound)
}
