package users

import "context"

type StoreAPI interface {
	Create(ctx context.Context, user User) (User, error)
	Get(ctx context.Context, id string) (User, error)
	Update(ctx context.Context, user User) (User, error)
	Anonymize(ctx context.Context, id, placeholderEmail string) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]User, int, error)
	SetStatus(ctx context.Context, id, status string) error
	SetStripeAccount(ctx context.Context, id, accountID string) error
	SetPayoutsEnabled(ctx context.Context, id string, enabled bool) error
	SetPayoutsEnabledByAccount(ctx context.Context, accountID string, enabled bool) (string, error)
	ListEarnings(ctx context.Context, id string, limit, offset int) ([]EarningLine, int, error)
	EarningsSummary(ctx context.Context, id string) (EarningsSummary, error)
}
