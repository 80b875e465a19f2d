package gigs

import (
	"context"
	"time"
)

type StoreAPI interface {
	Create(ctx context.Context, gig Gig) (Gig, error)
	Get(ctx context.Context, id string) (Gig, error)
	Update(ctx context.Context, gig Gig, replaceSlots bool) (Gig, error)
	Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]Gig, int, error)
	SetStatus(ctx context.Context, id, to string, from []string) error
	Cancel(ctx context.Context, id string, from []string) ([]string, error)
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}
