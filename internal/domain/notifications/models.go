package notifications

import (
	"time"

	"quickshift/internal/domain/users"
	"quickshift/internal/platform/geo"
)

type Notification struct {
	ID            string         `json:"id"`
	RecipientID   string         `json:"recipientId"`
	RecipientRole string         `json:"recipientRole"`
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Body          string         `json:"body"`
	Data          map[string]any `json:"data"`
	ReadAt        *time.Time     `json:"readAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type Recipient struct {
	ID   string
	Role string
}

// Contact is how a recipient can be reached and what they opted into.
type Contact struct {
	Email       string
	Name        string
	NotifyEmail bool
	NotifyInApp bool
}

// Candidate is an active user considered for new-gig matching.
type Candidate struct {
	ID          string
	Email       string
	FirstName   string
	Location    geo.Location
	Preferences users.Preferences
}

type Match struct {
	UserID      string   `json:"userId"`
	DistanceKm  *float64 `json:"distanceKm,omitempty"`
	Email       string   `json:"-"`
	FirstName   string   `json:"-"`
	NotifyEmail bool     `json:"-"`
	NotifyInApp bool     `json:"-"`
}
