package employers

import "context"

type StoreAPI interface {
	Create(ctx context.Context, employer Employer) (Employer, error)
	Get(ctx context.Context, id string) (Employer, error)
	Update(ctx context.Context, employer Employer) (Employer, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Employer, int, error)
	SetStatus(ctx context.Context, id, status string) error
	SetStripeCustomer(ctx context.Context, id, customerID string) error
	Dashboard(ctx context.Context, id string) (Dashboard, error)
}
