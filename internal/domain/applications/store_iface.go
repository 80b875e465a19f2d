package applications

import "context"

type StoreAPI interface {
	Create(ctx context.Context, app Application) (Application, error)
	Get(ctx context.Context, id string) (Application, error)
	ActiveForUser(ctx context.Context, gigID, userID string) (Application, error)
	ListByGig(ctx context.Context, gigID, status string, limit, offset int) ([]Application, int, error)
	ListByUser(ctx context.Context, userID, status string, limit, offset int) ([]Application, int, error)
	SetStatus(ctx context.Context, id, to, from, note string) (Application, error)
	Accept(ctx context.Context, id, note string) (Application, error)
}
