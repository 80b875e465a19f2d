package admins

import "errors"

var (
	ErrNotFound     = errors.New("admin not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidInput = errors.New("invalid admin input")
)
