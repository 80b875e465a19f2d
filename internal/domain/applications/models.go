package applications

import "time"

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusWithdrawn = "withdrawn"
)

type Application struct {
	ID            string     `json:"id"`
	GigID         string     `json:"gigId"`
	GigTitle      string     `json:"gigTitle,omitempty"`
	UserID        string     `json:"userId"`
	ApplicantName string     `json:"applicantName,omitempty"`
	CoverLetter   string     `json:"coverLetter"`
	SlotIDs       []string   `json:"slotIds"`
	Status        string     `json:"status"`
	InstantApply  bool       `json:"instantApply"`
	EmployerNote  string     `json:"employerNote,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type ApplyInput struct {
	CoverLetter string   `json:"coverLetter"`
	SlotIDs     []string `json:"slotIds"`
}

// Eligibility is the instant-apply verdict; Reasons is empty when Eligible.
type Eligibility struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}

const (
	ReasonGigNotOpen          = "gig_not_open"
	ReasonGigInstantDisabled  = "gig_instant_apply_disabled"
	ReasonNoOpenSlots         = "no_open_slots"
	ReasonUserNotActive       = "user_not_active"
	ReasonProfileIncomplete   = "profile_incomplete"
	ReasonUserInstantDisabled = "user_instant_apply_disabled"
	ReasonAlreadyApplied      = "already_applied"
	ReasonRatingTooLow        = "rating_below_minimum"
	ReasonRuleRejected        = "platform_rule_rejected"
)
