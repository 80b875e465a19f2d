package gigs

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("gig not found")
	ErrForbidden         = errors.New("gig belongs to another employer")
	ErrInvalidTransition = errors.New("gig status does not allow this action")
	ErrNotEditable       = errors.New("gig can only be edited while open with no hires")
	ErrSlotNotFound      = errors.New("time slot not found")
	ErrSlotFull          = errors.New("time slot is full")
)

// ValidationError carries per-field messages for the validation_error response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid gig: " + strings.Join(parts, "; ")
}
