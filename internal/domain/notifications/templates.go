package notifications

import (
	"fmt"
	"strings"

	"quickshift/internal/domain/gigs"
)

// Email is a rendered subject and plain-text body.
type Email struct {
	Subject string
	Body    string
}

func WelcomeEmail(name, frontendURL string) Email {
	return Email{
		Subject: "Welcome to QuickShift",
		Body: fmt.Sprintf("Hi %s,\n\nYour QuickShift account is ready. Sign in at %s to get started.\n\nThe QuickShift team",
			greetingName(name), strings.TrimRight(frontendURL, "/")),
	}
}

func PasswordResetEmail(name, frontendURL, token string, validFor string) Email {
	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(frontendURL, "/"), token)
	return Email{
		Subject: "Reset your QuickShift password",
		Body: fmt.Sprintf("Hi %s,\n\nWe received a request to reset your password. Use the link below within %s:\n\n%s\n\nIf you did not request this you can ignore this email.",
			greetingName(name), validFor, link),
	}
}

func NewGigMatch(g gigs.Gig, distanceKm *float64) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is hiring for %q", employerLabel(g), g.Title)
	if g.Location.City != "" {
		fmt.Fprintf(&b, " in %s", g.Location.City)
	}
	if distanceKm != nil {
		fmt.Fprintf(&b, " (%.1f km away)", *distanceKm)
	}
	fmt.Fprintf(&b, ". Pay: %.2f %s.", g.PayRate.Amount, rateLabel(g.PayRate.RateType))
	return "New gig matching your preferences", b.String()
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

func employerLabel(g gigs.Gig) string {
	if g.EmployerName != "" {
		return g.EmployerName
	}
	return "An employer"
}

func rateLabel(rateType string) string {
	switch rateType {
	case gigs.RateHourly:
		return "per hour"
	case gigs.RateDaily, gigs.RateDailyFixed:
		return "per day"
	default:
		return "fixed"
	}
}
