package gigs

import (
	"time"

	"quickshift/internal/platform/geo"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type Gig struct {
	ID                  string       `json:"id"`
	EmployerID          string       `json:"employerId"`
	EmployerName        string       `json:"employerName,omitempty"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Category            string       `json:"category"`
	JobType             string       `json:"jobType"`
	PayRate             PayRate      `json:"payRate"`
	Location            geo.Location `json:"location"`
	RequiredSkills      []string     `json:"requiredSkills"`
	TimeSlots           []TimeSlot   `json:"timeSlots"`
	InstantApplyEnabled bool         `json:"instantApplyEnabled"`
	MinRating           float64      `json:"minRating"`
	Status              string       `json:"status"`
	DistanceKm          *float64     `json:"distanceKm,omitempty"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

type PayRate struct {
	Amount   float64 `json:"amount"`
	RateType string  `json:"rateType"`
}

type TimeSlot struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	WorkersNeeded int    `json:"workersNeeded"`
	WorkersHired  int    `json:"workersHired"`
}

// Hours is the slot length; an end before the start runs past midnight.
func (s TimeSlot) Hours() float64 {
	start, err1 := time.Parse(timeLayout, s.StartTime)
	end, err2 := time.Parse(timeLayout, s.EndTime)
	if err1 != nil || err2 != nil {
		return 0
	}
	d := end.Sub(start)
	if d <= 0 {
		d += 24 * time.Hour
	}
	return d.Hours()
}

func (s TimeSlot) Open() bool {
	return s.WorkersHired < s.WorkersNeeded
}

// StartsAt and EndsAt interpret the slot in loc.
func (s TimeSlot) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout+" "+timeLayout, s.Date+" "+s.StartTime, loc)
}

func (s TimeSlot) EndsAt(loc *time.Location) (time.Time, error) {
	start, err := s.StartsAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(s.Hours() * float64(time.Hour))), nil
}

func (g Gig) PositionsTotal() int {
	total := 0
	for _, s := range g.TimeSlots {
		total += s.WorkersNeeded
	}
	return total
}

func (g Gig) PositionsFilled() int {
	total := 0
	for _, s := range g.TimeSlots {
		total += s.WorkersHired
	}
	return total
}

func (g Gig) OpenSlots() []TimeSlot {
	var out []TimeSlot
	for _, s := range g.TimeSlots {
		if s.Open() {
			out = append(out, s)
		}
	}
	return out
}

func (g Gig) Slot(id string) (TimeSlot, bool) {
	for _, s := range g.TimeSlots {
		if s.ID == id {
			return s, true
		}
	}
	return TimeSlot{}, false
}

// EarliestOpenSlot orders by date then start time.
func (g Gig) EarliestOpenSlot() (TimeSlot, bool) {
	var best TimeSlot
	found := false
	for _, s := range g.OpenSlots() {
		if !found || s.Date+s.StartTime < best.Date+best.StartTime {
			best = s
			found = true
		}
	}
	return best, found
}

type CreateInput struct {
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Category            string       `json:"category"`
	JobType             string       `json:"jobType"`
	PayRate             PayRate      `json:"payRate"`
	Location            geo.Location `json:"location"`
	RequiredSkills      []string     `json:"requiredSkills"`
	TimeSlots           []TimeSlot   `json:"timeSlots"`
	InstantApplyEnabled bool         `json:"instantApplyEnabled"`
	MinRating           float64      `json:"minRating"`
}

type UpdateInput struct {
	Title               *string       `json:"title"`
	Description         *string       `json:"description"`
	Category            *string       `json:"category"`
	JobType             *string       `json:"jobType"`
	PayRate             *PayRate      `json:"payRate"`
	Location            *geo.Location `json:"location"`
	RequiredSkills      []string      `json:"requiredSkills"`
	TimeSlots           []TimeSlot    `json:"timeSlots"`
	InstantApplyEnabled *bool         `json:"instantApplyEnabled"`
	MinRating           *float64      `json:"minRating"`
}

type SearchFilter struct {
	Category   string
	JobType    string
	RateType   string
	MinRate    float64
	Query      string
	Status     string
	EmployerID string
	Lat        *float64
	Lng        *float64
	RadiusKm   float64
	Box        *geo.BoundingBox
}
