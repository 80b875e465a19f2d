package admins

import "context"

type StoreAPI interface {
	Create(ctx context.Context, email, passwordHash, name, role string) (Admin, error)
	Get(ctx context.Context, id string) (Admin, error)
	List(ctx context.Context, limit, offset int) ([]Admin, int, error)
	Dashboard(ctx context.Context) (Dashboard, error)
}
