// Package webhooks applies verified Stripe events to completions and worker accounts exactly once.
package webhooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"quickshift/internal/domain/completions"
	"quickshift/internal/domain/users"
	"quickshift/internal/platform/jobs"
	"quickshift/internal/platform/payments"
)

type Parser interface {
	ParseWebhook(payload []byte, signature string) (payments.Event, error)
}

type Completions interface {
	MarkPaidByIntent(ctx context.Context, paymentIntentID string) (string, bool, error)
	MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) error
	MarkRefundedByIntent(ctx context.Context, paymentIntentID string) error
	MarkTransferReversed(ctx context.Context, transferID string) error
	Distribute(ctx context.Context, id string) (completions.DistributionResult, error)
}

type Accounts interface {
	SyncPayoutsByAccount(ctx context.Context, accountID string, enabled bool) (string, error)
}

type Enqueuer interface {
	Enqueue(jobType string, run jobs.RunFunc) bool
}

type Result struct {
	EventID   string `json:"eventId"`
	Type      string `json:"type"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
}

type Service struct {
	store       StoreAPI
	parser      Parser
	completions Completions
	accounts    Accounts
	jobs        Enqueuer
}

func NewService(store StoreAPI, parser Parser, completions Completions, accounts Accounts, queue Enqueuer) *Service {
	return &Service{store: store, parser: parser, completions: completions, accounts: accounts, jobs: queue}
}

// Handle verifies the payload, drops redeliveries and dispatches by event type. A processing error
// releases the claim so Stripe's retry is handled again.
func (s *Service) Handle(ctx context.Context, payload []byte, signature string) (Result, error) {
	evt, err := s.parser.ParseWebhook(payload, signature)
	if err != nil {
		return Result{}, err
	}
	res := Result{EventID: evt.ID, Type: evt.Type}

	fresh, err := s.store.Claim(ctx, evt.ID, evt.Type)
	if err != nil {
		return res, fmt.Errorf("claim event: %w", err)
	}
	if !fresh {
		res.Duplicate = true
		return res, nil
	}

	handled, err := s.dispatch(ctx, evt)
	if err != nil {
		if relErr := s.store.Release(ctx, evt.ID); relErr != nil {
			slog.Warn("webhook release failed", "eventId", evt.ID, "err", relErr)
		}
		return res, err
	}
	res.Ignored = !handled
	if err := s.store.MarkProcessed(ctx, evt.ID); err != nil {
		slog.Warn("webhook mark processed failed", "eventId", evt.ID, "err", err)
	}
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, evt payments.Event) (bool, error) {
	switch evt.Type {
	case payments.EventPaymentSucceeded:
		return true, s.paymentSucceeded(ctx, evt.ObjectID())
	case payments.EventPaymentFailed:
		err := s.completions.MarkPaymentFailed(ctx, evt.ObjectID(), evt.String("last_payment_error.message"))
		return true, ignoreMissing(err, evt)
	case payments.EventAccountUpdated:
		userID, err := s.accounts.SyncPayoutsByAccount(ctx, evt.ObjectID(), evt.Bool("payouts_enabled"))
		if err == nil {
			slog.Info("payout status synced", "userId", userID, "payoutsEnabled", evt.Bool("payouts_enabled"))
		}
		return true, ignoreMissing(err, evt)
	case payments.EventTransferReversed:
		return true, ignoreMissing(s.completions.MarkTransferReversed(ctx, evt.ObjectID()), evt)
	case payments.EventChargeRefunded:
		return true, ignoreMissing(s.completions.MarkRefundedByIntent(ctx, evt.String("payment_intent")), evt)
	default:
		return false, nil
	}
}

func (s *Service) paymentSucceeded(ctx context.Context, paymentIntentID string) error {
	completionID, changed, err := s.completions.MarkPaidByIntent(ctx, paymentIntentID)
	if err != nil {
		return ignoreMissing(err, payments.Event{Type: payments.EventPaymentSucceeded})
	}
	if !changed {
		return nil
	}
	queued := s.jobs.Enqueue(jobs.JobDistribute, func(ctx context.Context) (any, error) {
		return s.completions.Distribute(ctx, completionID)
	})
	if !queued {
		// The scheduled retry picks up paid completions that never distributed.
		slog.Warn("distribution job dropped", "completionId", completionID)
	}
	return nil
}

// ignoreMissing acknowledges events for objects this deployment does not own.
func ignoreMissing(err error, evt payments.Event) error {
	if errors.Is(err, completions.ErrNotFound) || errors.Is(err, users.ErrNotFound) {
		slog.Info("webhook for unknown object", "eventId", evt.ID, "type", evt.Type)
		return nil
	}
	return err
}
