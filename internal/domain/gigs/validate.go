package gigs

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxTitle       = 140
	maxDescription = 5000
	maxSlots       = 60
)

// Validate applies the gig creation rules; it returns *ValidationError or nil.
func (g Gig) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(g.Title) == "" {
		fields["title"] = "is required"
	} else if len(g.Title) > maxTitle {
		fields["title"] = fmt.Sprintf("must be at most %d characters", maxTitle)
	}
	if strings.TrimSpace(g.Description) == "" {
		fields["description"] = "is required"
	} else if len(g.Description) > maxDescription {
		fields["description"] = fmt.Sprintf("must be at most %d characters", maxDescription)
	}
	if strings.TrimSpace(g.Category) == "" {
		fields["category"] = "is required"
	}
	if !contains(JobTypes, g.JobType) {
		fields["jobType"] = "must be one of " + strings.Join(JobTypes, ", ")
	}
	if g.PayRate.Amount <= 0 {
		fields["payRate.amount"] = "must be greater than 0"
	}
	if !contains(RateTypes, g.PayRate.RateType) {
		fields["payRate.rateType"] = "must be one of " + strings.Join(RateTypes, ", ")
	}
	if !g.Location.Valid() {
		fields["location"] = "lat and lng must both be set and in range"
	}
	if g.MinRating < 0 || g.MinRating > 5 {
		fields["minRating"] = "must be between 0 and 5"
	}
	if len(g.TimeSlots) == 0 {
		fields["timeSlots"] = "at least one slot is required"
	}
	if len(g.TimeSlots) > maxSlots {
		fields["timeSlots"] = fmt.Sprintf("at most %d slots", maxSlots)
	}
	for i, s := range g.TimeSlots {
		prefix := fmt.Sprintf("timeSlots[%d].", i)
		if _, err := time.Parse(dateLayout, s.Date); err != nil {
			fields[prefix+"date"] = "must be YYYY-MM-DD"
		}
		start, errStart := time.Parse(timeLayout, s.StartTime)
		end, errEnd := time.Parse(timeLayout, s.EndTime)
		if errStart != nil {
			fields[prefix+"startTime"] = "must be HH:MM"
		}
		if errEnd != nil {
			fields[prefix+"endTime"] = "must be HH:MM"
		}
		if errStart == nil && errEnd == nil && start.Equal(end) {
			fields[prefix+"endTime"] = "must differ from startTime"
		}
		if s.WorkersNeeded < 1 {
			fields[prefix+"workersNeeded"] = "must be at least 1"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
