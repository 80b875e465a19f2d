package ratings

import (
	"context"
	"strings"

	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/gigs"
)

const maxComment = 1000

type GigReader interface {
	Get(ctx context.Context, id string) (gigs.Gig, error)
}

type Service struct {
	store StoreAPI
	gigs  GigReader
}

func NewService(store StoreAPI, gigReader GigReader) *Service {
	return &Service{store: store, gigs: gigReader}
}

// Create records a rating in either direction. An employer rates a worker paid for the gig; a worker
// rates the employer of a gig they worked.
func (s *Service) Create(ctx context.Context, rater auth.UserContext, input CreateInput) (Rating, Summary, error) {
	if input.Score < 1 || input.Score > 5 {
		return Rating{}, Summary{}, ErrInvalidScore
	}
	comment := strings.TrimSpace(input.Comment)
	if len(comment) > maxComment {
		return Rating{}, Summary{}, ErrCommentLength
	}
	gig, err := s.gigs.Get(ctx, input.GigID)
	if err != nil {
		return Rating{}, Summary{}, err
	}

	rating := Rating{
		GigID:     gig.ID,
		RaterID:   rater.SubjectID,
		RaterRole: rater.Role,
		Score:     input.Score,
		Comment:   comment,
	}
	switch rater.Role {
	case auth.RoleEmployer:
		if gig.EmployerID != rater.SubjectID {
			return Rating{}, Summary{}, ErrNotEligible
		}
		if input.RateeID == "" || input.RateeID == rater.SubjectID {
			return Rating{}, Summary{}, ErrSelfRating
		}
		paid, err := s.store.WorkedOnGig(ctx, gig.ID, input.RateeID, true)
		if err != nil {
			return Rating{}, Summary{}, err
		}
		if !paid {
			return Rating{}, Summary{}, ErrNotEligible
		}
		rating.RateeID = input.RateeID
		rating.RateeRole = auth.RoleUser
	case auth.RoleUser:
		if input.RateeID != "" && input.RateeID != gig.EmployerID {
			return Rating{}, Summary{}, ErrNotEligible
		}
		worked, err := s.store.WorkedOnGig(ctx, gig.ID, rater.SubjectID, false)
		if err != nil {
			return Rating{}, Summary{}, err
		}
		if !worked {
			return Rating{}, Summary{}, ErrNotEligible
		}
		rating.RateeID = gig.EmployerID
		rating.RateeRole = auth.RoleEmployer
	default:
		return Rating{}, Summary{}, ErrUnsupportedRole
	}
	return s.store.Create(ctx, rating)
}

func (s *Service) ListForUser(ctx context.Context, userID string, limit, offset int) ([]Rating, int, error) {
	return s.store.ListForRatee(ctx, userID, auth.RoleUser, limit, offset)
}

func (s *Service) ListForEmployer(ctx context.Context, employerID string, limit, offset int) ([]Rating, int, error) {
	return s.store.ListForRatee(ctx, employerID, auth.RoleEmployer, limit, offset)
}
