package completions

import (
	"context"
	"time"
)

type StoreAPI interface {
	Create(ctx context.Context, c Completion) (Completion, error)
	Get(ctx context.Context, id string) (Completion, error)
	GetByIntent(ctx context.Context, paymentIntentID string) (Completion, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Completion, int, error)
	ListIDsByStatus(ctx context.Context, status string, limit int) ([]string, error)
	ListStaleIDs(ctx context.Context, status string, updatedBefore time.Time, limit int) ([]string, error)
	AcceptedWorkers(ctx context.Context, gigID string) (map[string]bool, error)
	SetPaymentIntent(ctx context.Context, id, paymentIntentID, paymentStatus string) error
	SetPaymentStatus(ctx context.Context, id, paymentStatus string) error
	MarkPaid(ctx context.Context, id string) (bool, error)
	SetStatus(ctx context.Context, id, to string, from []string) error
	ClaimStale(ctx context.Context, id, status string, updatedBefore time.Time) error
	SetDispute(ctx context.Context, id, reason string, from []string) error
	SetTransferKey(ctx context.Context, workerID, key string) error
	MarkWorkerPaid(ctx context.Context, workerID, transferID string) error
	MarkWorkerFailed(ctx context.Context, workerID, reason string, releaseKey bool) error
	MarkTransferReversed(ctx context.Context, transferID, reason string) (string, error)
	FinishDistribution(ctx context.Context, id, status string) error
	MarkRefunded(ctx context.Context, id string) error
}
