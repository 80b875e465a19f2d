package applications

import (
	"errors"
	"strings"
)

var (
	ErrNotFound          = errors.New("application not found")
	ErrAlreadyApplied    = errors.New("an active application for this gig already exists")
	ErrGigNotOpen        = errors.New("gig is not accepting applications")
	ErrSlotUnavailable   = errors.New("time slot is not open")
	ErrSlotFull          = errors.New("time slot is full")
	ErrNoSlots           = errors.New("at least one time slot is required")
	ErrUserNotActive     = errors.New("user account is not active")
	ErrForbidden         = errors.New("not allowed to act on this application")
	ErrInvalidTransition = errors.New("application status does not allow this action")
	ErrCoverLetterLength = errors.New("cover letter is too long")
	ErrNotEligible       = errors.New("not eligible for instant apply")
)

// IneligibleError lists why instant apply was refused.
type IneligibleError struct {
	Reasons []string
}

func (e *IneligibleError) Error() string {
	return ErrNotEligible.Error() + ": " + strings.Join(e.Reasons, ", ")
}

func (e *IneligibleError) Unwrap() error {
	return ErrNotEligible
}
