package ratings

import "context"

type StoreAPI interface {
	Create(ctx context.Context, r Rating) (Rating, Summary, error)
	ListForRatee(ctx context.Context, rateeID, rateeRole string, limit, offset int) ([]Rating, int, error)
	WorkedOnGig(ctx context.Context, gigID, userID string, paidOnly bool) (bool, error)
}
