package admins

import "time"

type Admin struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	MFAEnabled  bool       `json:"mfaEnabled"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type CreateInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type Dashboard struct {
	UsersByStatus       map[string]int `json:"usersByStatus"`
	EmployersByStatus   map[string]int `json:"employersByStatus"`
	GigsByStatus        map[string]int `json:"gigsByStatus"`
	CompletionsByStatus map[string]int `json:"completionsByStatus"`
	PendingApplications int            `json:"pendingApplications"`
	Revenue             float64        `json:"revenue"`
	GrossVolume         float64        `json:"grossVolume"`
	FailedTransfers     int            `json:"failedTransfers"`
	OpenDisputes        int            `json:"openDisputes"`
	HTTP                map[string]any `json:"http,omitempty"`
}
