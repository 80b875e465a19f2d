package employers

import "errors"

var (
	ErrNotFound        = errors.New("employer not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidInput    = errors.New("invalid employer input")
	ErrInvalidLocation = errors.New("invalid location coordinates")
	ErrNotActive       = errors.New("employer is not active")
)
