package employers

import (
	"time"

	"quickshift/internal/platform/geo"
)

type Employer struct {
	ID               string       `json:"id"`
	Email            string       `json:"email"`
	PasswordHash     string       `json:"-"`
	CompanyName      string       `json:"companyName"`
	ContactName      string       `json:"contactName"`
	Phone            string       `json:"phone"`
	Industry         string       `json:"industry"`
	Description      string       `json:"description"`
	Website          string       `json:"website"`
	Location         geo.Location `json:"location"`
	StripeCustomerID string       `json:"-"`
	RatingAvg        float64      `json:"ratingAvg"`
	RatingCount      int          `json:"ratingCount"`
	Verified         bool         `json:"verified"`
	Status           string       `json:"status"`
	LastLoginAt      *time.Time   `json:"lastLoginAt,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

type PublicProfile struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"companyName"`
	Industry    string    `json:"industry"`
	Description string    `json:"description"`
	Website     string    `json:"website"`
	City        string    `json:"city"`
	Verified    bool      `json:"verified"`
	RatingAvg   float64   `json:"ratingAvg"`
	RatingCount int       `json:"ratingCount"`
	MemberSince time.Time `json:"memberSince"`
}

func (e Employer) Public() PublicProfile {
	return PublicProfile{
		ID:          e.ID,
		CompanyName: e.CompanyName,
		Industry:    e.Industry,
		Description: e.Description,
		Website:     e.Website,
		City:        e.Location.City,
		Verified:    e.Verified,
		RatingAvg:   e.RatingAvg,
		RatingCount: e.RatingCount,
		MemberSince: e.CreatedAt,
	}
}

type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
	ContactName string `json:"contactName"`
	Phone       string `json:"phone"`
}

type UpdateInput struct {
	CompanyName *string       `json:"companyName"`
	ContactName *string       `json:"contactName"`
	Phone       *string       `json:"phone"`
	Industry    *string       `json:"industry"`
	Description *string       `json:"description"`
	Website     *string       `json:"website"`
	Location    *geo.Location `json:"location"`
}

type Filter struct {
	Query  string
	Status string
}

type Dashboard struct {
	GigsByStatus        map[string]int `json:"gigsByStatus"`
	PendingApplications int            `json:"pendingApplications"`
	HiredWorkers        int            `json:"hiredWorkers"`
	TotalSpend          float64        `json:"totalSpend"`
	OutstandingCharges  float64        `json:"outstandingCharges"`
	Completions         int            `json:"completions"`
	RatingAvg           float64        `json:"ratingAvg"`
	RatingCount         int            `json:"ratingCount"`
}
