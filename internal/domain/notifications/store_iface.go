package notifications

import (
	"context"

	"quickshift/internal/domain/gigs"
	"quickshift/internal/platform/geo"
)

type StoreAPI interface {
	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	Contact(ctx context.Context, recipient Recipient) (Contact, error)
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]Notification, int, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, recipientID, notificationID string) error
	MatchCandidates(ctx context.Context, gig gigs.Gig, box *geo.BoundingBox, limit int) ([]Candidate, error)
}
