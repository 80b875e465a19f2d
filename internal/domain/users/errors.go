package users

import "errors"

var (
	ErrNotFound        = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidLocation = errors.New("invalid location coordinates")
	ErrInvalidInput    = errors.New("invalid profile input")
	ErrNotActive       = errors.New("user is not active")
	ErrNoPayoutAccount = errors.New("payout account not set up")
)
