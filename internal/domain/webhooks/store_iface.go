package webhooks

import "context"

type StoreAPI interface {
	// Claim records the event id. It returns false when the id was seen before.
	Claim(ctx context.Context, eventID, eventType string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
	// Release forgets a claimed event so a redelivery is processed again.
	Release(ctx context.Context, eventID string) error
}
