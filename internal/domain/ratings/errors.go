package ratings

import "errors"

var (
	ErrInvalidScore    = errors.New("score must be between 1 and 5")
	ErrCommentLength   = errors.New("comment is too long")
	ErrAlreadyRated    = errors.New("rating for this gig already submitted")
	ErrNotEligible     = errors.New("no completed work links rater and ratee on this gig")
	ErrSelfRating      = errors.New("cannot rate yourself")
	ErrUnsupportedRole = errors.New("only users and employers can rate")
)
