package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tableturn/forecaster/common/models"
	"github.com/tableturn/forecaster/common/queue"
	"github.com/tableturn/forecaster/common/repository"
)

type fakeEvents struct {
	mu     sync.Mutex
	byID   map[string]models.DemandEvent
	failOn error
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{byID: make(map[string]models.DemandEvent)}
}

func (f *fakeEvents) RecordEvent(ctx context.Context, ev models.DemandEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		return false, f.failOn
	}
	if _, ok := f.byID[ev.ID]; ok {
		return false, nil
	}
	f.byID[ev.ID] = ev
	return true, nil
}

func (f *fakeEvents) RecordEvents(ctx context.Context, events []models.DemandEvent) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		return 0, f.failOn
	}
	n := 0
	for _, ev := range events {
		if _, ok := f.byID[ev.ID]; ok {
			continue
		}
		f.byID[ev.ID] = ev
		n++
	}
	return n, nil
}

func (f *fakeEvents) FetchEvents(ctx context.Context, locationID string, from, to time.Time) ([]models.DemandEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DemandEvent
	for _, ev := range f.byID {
		if ev.LocationID == locationID && !ev.Timestamp.Before(from) && ev.Timestamp.Before(to) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeEvents) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeRollups struct {
	mu       sync.Mutex
	byKey    map[string]models.HourlyDemandRollup
	upserts  int
	failNext error
}

func newFakeRollups() *fakeRollups {
	return &fakeRollups{byKey: make(map[string]models.HourlyDemandRollup)}
}

func (f *fakeRollups) UpsertRollups(ctx context.Context, rollups []models.HourlyDemandRollup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	f.upserts++
	for _, r := range rollups {
		f.byKey[r.Key()] = r
	}
	return nil
}

func (f *fakeRollups) FetchRollups(ctx context.Context, locationID string, from, to time.Time) ([]models.HourlyDemandRollup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.HourlyDemandRollup
	for _, r := range f.byKey {
		if r.LocationID == locationID && !r.Timestamp.Before(from) && r.Timestamp.Before(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeRollups) all() []models.HourlyDemandRollup {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.HourlyDemandRollup, 0, len(f.byKey))
	for _, r := range f.byKey {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

type fakeLocations struct {
	mu        sync.Mutex
	locations map[string]*models.Location
	groups    map[string]*models.RestaurantGroup
	sets      int
}

func newFakeLocations(locs ...models.Location) *fakeLocations {
	f := &fakeLocations{
		locations: make(map[string]*models.Location),
		groups:    make(map[string]*models.RestaurantGroup),
	}
	for _, l := range locs {
		l := l
		if l.Ratios == (models.ServiceRatios{}) {
			l.Ratios = models.DefaultServiceRatios()
		}
		f.locations[l.ID] = &l
	}
	return f
}

func (f *fakeLocations) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, repository.ErrNotFound)
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLocations) GetRatios(ctx context.Context, id string) (models.ServiceRatios, error) {
	l, err := f.GetLocation(ctx, id)
	if err != nil {
		return models.ServiceRatios{}, err
	}
	return l.Ratios, nil
}

func (f *fakeLocations) SetRatios(ctx context.Context, id string, ratios models.ServiceRatios) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locations[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.Ratios = ratios
	f.sets++
	return nil
}

func (f *fakeLocations) EnsureGroup(ctx context.Context, id, name string) (*models.RestaurantGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.groups[name]; ok {
		return g, nil
	}
	g := &models.RestaurantGroup{ID: id, Name: name}
	f.groups[name] = g
	return g, nil
}

func (f *fakeLocations) EnsureLocation(ctx context.Context, loc models.Location) (*models.Location, error) {
	f.mu.Lock()
	if _, ok := f.locations[loc.ID]; !ok {
		if loc.Ratios == (models.ServiceRatios{}) {
			loc.Ratios = models.DefaultServiceRatios()
		}
		f.locations[loc.ID] = &loc
	}
	f.mu.Unlock()
	return f.GetLocation(ctx, loc.ID)
}

type fakeFeedback struct {
	rows []models.FeedbackEvent
}

func (f *fakeFeedback) CreateFeedback(ctx context.Context, fb *models.FeedbackEvent) error {
	fb.CreatedAt = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f.rows = append(f.rows, *fb)
	return nil
}

func (f *fakeFeedback) ListFeedback(ctx context.Context, locationID string, from, to time.Time) ([]models.FeedbackEvent, error) {
	var out []models.FeedbackEvent
	for _, fb := range f.rows {
		if fb.LocationID == locationID && !fb.Date.Before(from) && fb.Date.Before(to) {
			out = append(out, fb)
		}
	}
	return out, nil
}

type published struct {
	topic, key string
	value      []byte
}

type fakeQueue struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (q *fakeQueue) Publish(ctx context.Context, topic, key string, message []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, published{topic: topic, key: key, value: message})
	return nil
}

func (q *fakeQueue) Subscribe(ctx context.Context, topic string, handler queue.MessageHandler) error {
	return errors.New("not supported")
}

func (q *fakeQueue) Close() error { return nil }

func ptr[T any](v T) *T { return &v }
