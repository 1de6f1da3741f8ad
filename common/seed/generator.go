// Package seed produces synthetic point-of-sale demand for demos and tests.
// The shape loosely follows a restaurant day with lunch and dinner peaks; it
// is reproducible for a given seed but is not a calibrated model.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"

	"github.com/tableturn/forecaster/common/models"
)

const (
	OpenHour  = 8
	CloseHour = 22 // exclusive

	lunchBase   = 20
	dinnerBase  = 35
	offPeakBase = 10
	noiseSpan   = 10 // uniform noise in [-5, +5)

	maxPartySize  = 4
	orderDelay    = 15 * time.Minute
	minRevenue    = 10.0
	revenueSpread = 50.0
)

// eventNamespace scopes name-based event ids to seeded data
var eventNamespace = uuid.MustParse("6f1b3c0e-8a53-4c1e-9d59-2f6f0c1a7b42")

// Generator produces seed events. It is not safe for concurrent use.
type Generator struct {
	seed  int64
	rng   *rand.Rand
	faker faker.Faker
}

// New creates a generator whose output is fully determined by seed
func New(seed int64) *Generator {
	return &Generator{
		seed:  seed,
		rng:   rand.New(rand.NewSource(seed)),
		faker: faker.NewWithSeed(rand.NewSource(seed)),
	}
}

// Seed returns the seed the generator was created with
func (g *Generator) Seed() int64 {
	return g.seed
}

// BaseGuests is the expected guest count for an opening hour
func BaseGuests(hour int) int {
	switch {
	case hour >= 12 && hour <= 14:
		return lunchBase
	case hour >= 18 && hour <= 20:
		return dinnerBase
	default:
		return offPeakBase
	}
}

// GroupName returns a plausible restaurant group name
func (g *Generator) GroupName() string {
	return g.faker.Company().Name() + " Hospitality"
}

// LocationName returns a plausible restaurant location name
func (g *Generator) LocationName() string {
	return g.faker.Address().City() + " Kitchen"
}

// DayFunc receives the events generated for one calendar day
type DayFunc func(day time.Time, events []models.DemandEvent) error

// Generate returns all events for every calendar day from from through to,
// inclusive, using from's time zone for wall-clock hours.
func (g *Generator) Generate(locationID string, from, to time.Time) []models.DemandEvent {
	var events []models.DemandEvent
	_ = g.GenerateDays(locationID, from, to, func(_ time.Time, day []models.DemandEvent) error {
		events = append(events, day...)
		return nil
	})
	if events == nil {
		return []models.DemandEvent{}
	}
	return events
}

// Days counts the calendar days GenerateDays will visit
func Days(from, to time.Time) int {
	start := dayStart(from)
	end := dayStart(to.In(from.Location()))
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// GenerateDays streams events one day at a time, stopping at the first error fn returns
func (g *Generator) GenerateDays(locationID string, from, to time.Time, fn DayFunc) error {
	start := dayStart(from)
	end := dayStart(to.In(from.Location()))

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := make([]models.DemandEvent, 0, 2*offPeakBase*(CloseHour-OpenHour))

		for h := OpenHour; h < CloseHour; h++ {
			noise := g.rng.Float64()*noiseSpan - noiseSpan/2
			guests := max(0, int(float64(BaseGuests(h))+noise))
			hourStart := time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, d.Location())

			for i := 0; i < guests; i++ {
				ts := hourStart.Add(time.Duration(g.rng.Intn(60)) * time.Minute)
				revenue := minRevenue + g.rng.Float64()*revenueSpread

				day = append(day,
					models.DemandEvent{
						ID:         g.eventID(locationID, hourStart, i, models.EventGuestArrival),
						LocationID: locationID,
						Timestamp:  ts,
						EventType:  models.EventGuestArrival,
						PartySize:  g.rng.Intn(maxPartySize) + 1,
						Source:     models.SourceSeed,
					},
					models.DemandEvent{
						ID:         g.eventID(locationID, hourStart, i, models.EventOrderPlaced),
						LocationID: locationID,
						Timestamp:  ts.Add(orderDelay),
						EventType:  models.EventOrderPlaced,
						PartySize:  1,
						Revenue:    &revenue,
						Source:     models.SourceSeed,
					},
				)
			}
		}

		if err := fn(d, day); err != nil {
			return err
		}
	}
	return nil
}

// eventID is stable for a (seed, location, hour, index, type) so re-seeding is idempotent
func (g *Generator) eventID(locationID string, hour time.Time, idx int, kind models.EventType) string {
	name := fmt.Sprintf("%d|%s|%s|%d|%s", g.seed, locationID, hour.UTC().Format(time.RFC3339), idx, kind)
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
