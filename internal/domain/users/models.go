package users

import (
	"strings"
	"time"

	"quickshift/internal/platform/geo"
)

type User struct {
	ID              string               `json:"id"`
	Email           string               `json:"email"`
	PasswordHash    string               `json:"-"`
	FirstName       string               `json:"firstName"`
	LastName        string               `json:"lastName"`
	Phone           string               `json:"phone"`
	Bio             string               `json:"bio"`
	Skills          []string             `json:"skills"`
	Location        geo.Location         `json:"location"`
	Preferences     Preferences          `json:"preferences"`
	InstantApply    InstantApplyDefaults `json:"instantApply"`
	StripeAccountID string               `json:"stripeAccountId,omitempty"`
	PayoutsEnabled  bool                 `json:"payoutsEnabled"`
	RatingAvg       float64              `json:"ratingAvg"`
	RatingCount     int                  `json:"ratingCount"`
	Status          string               `json:"status"`
	LastLoginAt     *time.Time           `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type Preferences struct {
	Categories    []string `json:"categories"`
	JobTypes      []string `json:"jobTypes"`
	MinHourlyRate float64  `json:"minHourlyRate"`
	MaxDistanceKm float64  `json:"maxDistanceKm"`
	NotifyEmail   bool     `json:"notifyEmail"`
	NotifyInApp   bool     `json:"notifyInApp"`
}

type InstantApplyDefaults struct {
	Enabled     bool   `json:"enabled"`
	CoverLetter string `json:"coverLetter"`
	UseAllSlots bool   `json:"useAllSlots"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ProfileComplete gates instant apply: name, phone and coordinates must be present.
func (u User) ProfileComplete() bool {
	return strings.TrimSpace(u.FirstName) != "" &&
		strings.TrimSpace(u.LastName) != "" &&
		strings.TrimSpace(u.Phone) != "" &&
		u.Location.HasCoordinates()
}

// PublicProfile is what other parties (employers, anonymous visitors) may see.
type PublicProfile struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastInitial string    `json:"lastInitial"`
	Bio         string    `json:"bio"`
	Skills      []string  `json:"skills"`
	City        string    `json:"city"`
	RatingAvg   float64   `json:"ratingAvg"`
	RatingCount int       `json:"ratingCount"`
	MemberSince time.Time `json:"memberSince"`
}

func (u User) Public() PublicProfile {
	initial := ""
	if last := strings.TrimSpace(u.LastName); last != "" {
		initial = strings.ToUpper(last[:1])
	}
	return PublicProfile{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastInitial: initial,
		Bio:         u.Bio,
		Skills:      u.Skills,
		City:        u.Location.City,
		RatingAvg:   u.RatingAvg,
		RatingCount: u.RatingCount,
		MemberSince: u.CreatedAt,
	}
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// UpdateInput fields are optional; nil leaves the stored value untouched.
type UpdateInput struct {
	FirstName    *string               `json:"firstName"`
	LastName     *string               `json:"lastName"`
	Phone        *string               `json:"phone"`
	Bio          *string               `json:"bio"`
	Skills       []string              `json:"skills"`
	Location     *geo.Location         `json:"location"`
	Preferences  *Preferences          `json:"preferences"`
	InstantApply *InstantApplyDefaults `json:"instantApply"`
}

type Filter struct {
	Query  string
	Status string
}

type PayoutStatus struct {
	AccountID        string `json:"accountId"`
	PayoutsEnabled   bool   `json:"payoutsEnabled"`
	DetailsSubmitted bool   `json:"detailsSubmitted"`
}

type EarningLine struct {
	CompletionID string     `json:"completionId"`
	GigID        string     `json:"gigId"`
	GigTitle     string     `json:"gigTitle"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency"`
	Status       string     `json:"status"`
	PaidAt       *time.Time `json:"paidAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type EarningsSummary struct {
	Paid    float64 `json:"paid"`
	Pending float64 `json:"pending"`
	Failed  float64 `json:"failed"`
	Gigs    int     `json:"gigs"`
}
