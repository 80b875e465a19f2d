package gigs

const (
	StatusOpen       = "open"
	StatusFilled     = "filled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusExpired    = "expired"

	RateHourly     = "hourly"
	RateFixed      = "fixed"
	RateDaily      = "daily"
	RateDailyFixed = "daily_fixed"

	JobOneTime   = "one_time"
	JobRecurring = "recurring"
	JobPartTime  = "part_time"
	JobFullTime  = "full_time"
)

var (
	Statuses  = []string{StatusOpen, StatusFilled, StatusInProgress, StatusCompleted, StatusCancelled, StatusExpired}
	RateTypes = []string{RateHourly, RateFixed, RateDaily, RateDailyFixed}
	JobTypes  = []string{JobOneTime, JobRecurring, JobPartTime, JobFullTime}
)

var transitions = map[string][]string{
	StatusOpen:       {StatusFilled, StatusInProgress, StatusCancelled, StatusExpired},
	StatusFilled:     {StatusOpen, StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// sourcesFor lists the statuses that may move to `to`.
func sourcesFor(to string) []string {
	var out []string
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				out = append(out, from)
			}
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
