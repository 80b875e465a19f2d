package gigs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickshift/internal/platform/geo"
)

func TestTimeSlotHours(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  float64
	}{
		{name: "same day", start: "09:00", end: "17:30", want: 8.5},
		{name: "overnight", start: "22:00", end: "06:00", want: 8},
		{name: "bad input", start: "9am", end: "17:00", want: 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			slot := TimeSlot{StartTime: tc.start, EndTime: tc.end}
			assert.InDelta(t, tc.want, slot.Hours(), 1e-9)
		})
	}
}

func TestTimeSlotEndsAtWrapsMidnight(t *testing.T) {
	slot := TimeSlot{Date: "2026-03-01", StartTime: "22:00", EndTime: "02:00"}
	end, err := slot.EndsAt(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC), end)
}

func TestPositions(t *testing.T) {
	gig := Gig{TimeSlots: []TimeSlot{
		{ID: "a", Date: "2026-03-02", StartTime: "09:00", WorkersNeeded: 2, WorkersHired: 2},
		{ID: "b", Date: "2026-03-01", StartTime: "12:00", WorkersNeeded: 3, WorkersHired: 1},
		{ID: "c", Date: "2026-03-01", StartTime: "08:00", WorkersNeeded: 1},
	}}
	assert.Equal(t, 6, gig.PositionsTotal())
	assert.Equal(t, 3, gig.PositionsFilled())
	open := gig.OpenSlots()
	require.Len(t, open, 2)
	assert.Equal(t, "b", open[0].ID)

	earliest, ok := gig.EarliestOpenSlot()
	require.True(t, ok)
	assert.Equal(t, "c", earliest.ID)

	_, ok = gig.Slot("missing")
	assert.False(t, ok)
}

func validGig() Gig {
	return Gig{
		Title:       "Warehouse picker",
		Description: "Pick and pack orders",
		Category:    "logistics",
		JobType:     JobOneTime,
		PayRate:     PayRate{Amount: 18, RateType: RateHourly},
		Location:    geo.Location{City: "Austin", Lat: geo.Float(30.26), Lng: geo.Float(-97.74)},
		TimeSlots:   []TimeSlot{{Date: "2026-03-01", StartTime: "09:00", EndTime: "17:00", WorkersNeeded: 2}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Gig)
		field  string
	}{
		{name: "valid", mutate: func(*Gig) {}},
		{name: "missing title", mutate: func(g *Gig) { g.Title = " " }, field: "title"},
		{name: "missing category", mutate: func(g *Gig) { g.Category = "" }, field: "category"},
		{name: "zero rate", mutate: func(g *Gig) { g.PayRate.Amount = 0 }, field: "payRate.amount"},
		{name: "unknown rate type", mutate: func(g *Gig) { g.PayRate.RateType = "weekly" }, field: "payRate.rateType"},
		{name: "unknown job type", mutate: func(g *Gig) { g.JobType = "gig" }, field: "jobType"},
		{name: "no slots", mutate: func(g *Gig) { g.TimeSlots = nil }, field: "timeSlots"},
		{name: "bad date", mutate: func(g *Gig) { g.TimeSlots[0].Date = "03/01/2026" }, field: "timeSlots[0].date"},
		{name: "zero workers", mutate: func(g *Gig) { g.TimeSlots[0].WorkersNeeded = 0 }, field: "timeSlots[0].workersNeeded"},
		{name: "empty slot", mutate: func(g *Gig) { g.TimeSlots[0].EndTime = "09:00" }, field: "timeSlots[0].endTime"},
		{name: "half location", mutate: func(g *Gig) { g.Location.Lng = nil }, field: "location"},
		{name: "rating out of range", mutate: func(g *Gig) { g.MinRating = 6 }, field: "minRating"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			gig := validGig()
			tc.mutate(&gig)
			err := gig.Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusOpen, StatusInProgress))
	assert.True(t, CanTransition(StatusFilled, StatusInProgress))
	assert.True(t, CanTransition(StatusInProgress, StatusCompleted))
	assert.False(t, CanTransition(StatusOpen, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusCancelled))
	assert.False(t, CanTransition(StatusInProgress, StatusCancelled))
	assert.ElementsMatch(t, []string{StatusOpen, StatusFilled}, sourcesFor(StatusCancelled))
}
