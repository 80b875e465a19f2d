package completions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/platform/payments"
)

const (
	retryBatchSize = 100
	// staleDistribution is how long a distribution may run before another run takes it over.
	staleDistribution = 30 * time.Minute
)

type GigReader interface {
	Get(ctx context.Context, id string) (gigs.Gig, error)
}

// Billing resolves the employer's Stripe customer, creating it on first use.
type Billing interface {
	EnsureStripeCustomer(ctx context.Context, employerID string) (string, error)
}

type Notifier interface {
	NotifyUser(ctx context.Context, userID, kind, title, body string, data map[string]any)
	NotifyEmployer(ctx context.Context, employerID, kind, title, body string, data map[string]any)
}

type Observer interface {
	RecordPayment(event string)
	RecordTransfer(status string)
}

type Service struct {
	store    StoreAPI
	gateway  payments.Gateway
	gigs     GigReader
	billing  Billing
	notifier Notifier
	observer Observer
	pricing  Pricing
	currency string
	now      func() time.Time
}

func NewService(store StoreAPI, gateway payments.Gateway, gigReader GigReader, billing Billing, pricing Pricing, currency string) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		gigs:     gigReader,
		billing:  billing,
		pricing:  pricing,
		currency: strings.ToLower(currency),
		now:      time.Now,
	}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// Create records hours for hired workers and prices the completion. It does not charge anything.
func (s *Service) Create(ctx context.Context, employerID, gigID string, input CreateInput) (Completion, error) {
	gig, err := s.gigs.Get(ctx, gigID)
	if err != nil {
		return Completion{}, err
	}
	if gig.EmployerID != employerID {
		return Completion{}, ErrForbidden
	}
	if gig.Status != gigs.StatusInProgress && gig.Status != gigs.StatusCompleted {
		return Completion{}, ErrGigNotCompletable
	}
	if len(input.Workers) == 0 {
		return Completion{}, ErrNoWorkers
	}
	hired, err := s.store.AcceptedWorkers(ctx, gigID)
	if err != nil {
		return Completion{}, err
	}

	seen := map[string]bool{}
	workers := make([]WorkerPayment, 0, len(input.Workers))
	amounts := make([]float64, 0, len(input.Workers))
	for _, in := range input.Workers {
		userID := strings.TrimSpace(in.UserID)
		if seen[userID] {
			return Completion{}, fmt.Errorf("%w: %s", ErrDuplicateWorker, userID)
		}
		seen[userID] = true
		if !hired[userID] {
			return Completion{}, fmt.Errorf("%w: %s", ErrWorkerNotHired, userID)
		}
		for _, entry := range in.TimeEntries {
			if !validEntry(entry) {
				return Completion{}, fmt.Errorf("%w: worker %s", ErrInvalidTimeEntry, userID)
			}
		}
		if in.Overtime < 0 || in.Bonus < 0 || in.Deductions < 0 {
			return Completion{}, fmt.Errorf("%w: worker %s", ErrNegativeAdjustment, userID)
		}
		calc := WorkerAmount(gig.PayRate, in)
		workers = append(workers, WorkerPayment{
			UserID:      userID,
			TimeEntries: in.TimeEntries,
			Overtime:    in.Overtime,
			Bonus:       in.Bonus,
			Deductions:  in.Deductions,
			Amount:      calc.Amount,
			Status:      WorkerPending,
			Warnings:    calc.Warnings,
		})
		amounts = append(amounts, calc.Amount)
	}

	totals := ComputeTotals(amounts, s.pricing)
	created, err := s.store.Create(ctx, Completion{
		GigID:       gigID,
		EmployerID:  employerID,
		Workers:     workers,
		TotalAmount: totals.TotalAmount,
		ServiceFee:  totals.ServiceFee,
		Tax:         totals.Tax,
		TotalCharge: totals.TotalCharge,
		Currency:    s.currency,
		Notes:       strings.TrimSpace(input.Notes),
	})
	if err != nil {
		return Completion{}, fmt.Errorf("create completion: %w", err)
	}
	warnings := map[string][]string{}
	for _, w := range workers {
		warnings[w.UserID] = w.Warnings
	}
	for i := range created.Workers {
		created.Workers[i].Warnings = warnings[created.Workers[i].UserID]
	}
	return created, nil
}

// Get allows the owning employer, any worker on the completion, and admins.
func (s *Service) Get(ctx context.Context, viewer auth.UserContext, id string) (Completion, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Completion{}, err
	}
	switch {
	case viewer.IsAdmin():
	case viewer.Role == auth.RoleEmployer && c.EmployerID == viewer.SubjectID:
	case viewer.Role == auth.RoleUser && c.HasWorker(viewer.SubjectID):
	default:
		return Completion{}, ErrForbidden
	}
	return c, nil
}

// List scopes employers to their own completions; admins see everything.
func (s *Service) List(ctx context.Context, viewer auth.UserContext, filter Filter, limit, offset int) ([]Completion, int, error) {
	if !viewer.IsAdmin() {
		if viewer.Role != auth.RoleEmployer {
			return nil, 0, ErrForbidden
		}
		filter.EmployerID = viewer.SubjectID
	}
	return s.store.List(ctx, filter, limit, offset)
}

func (s *Service) owned(ctx context.Context, employerID, id string) (Completion, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Completion{}, err
	}
	if c.EmployerID != employerID {
		return Completion{}, ErrForbidden
	}
	return c, nil
}

// Pay creates the employer's PaymentIntent, or returns the existing one when it is still usable.
func (s *Service) Pay(ctx context.Context, employerID, id string) (PaymentSession, error) {
	c, err := s.owned(ctx, employerID, id)
	if err != nil {
		return PaymentSession{}, err
	}
	if c.Status != StatusPendingPayment {
		return PaymentSession{}, ErrInvalidTransition
	}

	if c.PaymentIntentID != "" {
		pi, err := s.gateway.GetPaymentIntent(ctx, c.PaymentIntentID)
		if err != nil {
			return PaymentSession{}, fmt.Errorf("get payment intent: %w", err)
		}
		if pi.Status != payments.IntentCanceled {
			return session(c, pi), nil
		}
	}

	customerID, err := s.billing.EnsureStripeCustomer(ctx, employerID)
	if err != nil {
		return PaymentSession{}, fmt.Errorf("stripe customer: %w", err)
	}
	key := "completion-" + c.ID
	if c.PaymentIntentID != "" {
		key += "-" + c.PaymentIntentID
	}
	pi, err := s.gateway.CreatePaymentIntent(ctx, payments.IntentParams{
		AmountCents:    payments.ToCents(c.TotalCharge),
		Currency:       c.Currency,
		CustomerID:     customerID,
		TransferGroup:  c.ID,
		Description:    fmt.Sprintf("QuickShift gig %s", c.GigTitle),
		IdempotencyKey: key,
		Metadata: map[string]string{
			"completion_id": c.ID,
			"gig_id":        c.GigID,
			"employer_id":   c.EmployerID,
		},
	})
	if err != nil {
		return PaymentSession{}, fmt.Errorf("create payment intent: %w", err)
	}
	if err := s.store.SetPaymentIntent(ctx, c.ID, pi.ID, PaymentProcessing); err != nil {
		return PaymentSession{}, err
	}
	s.recordPayment("intent_created")
	c.PaymentIntentID = pi.ID
	return session(c, pi), nil
}

func session(c Completion, pi payments.PaymentIntent) PaymentSession {
	return PaymentSession{
		CompletionID:    c.ID,
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Amount:          c.TotalCharge,
		AmountCents:     pi.AmountCents,
		Currency:        c.Currency,
		Status:          pi.Status,
	}
}

// Confirm checks the intent with Stripe and, once it succeeded, marks paid and distributes inline.
func (s *Service) Confirm(ctx context.Context, employerID, id string) (Completion, error) {
	c, err := s.owned(ctx, employerID, id)
	if err != nil {
		return Completion{}, err
	}
	if c.PaymentIntentID == "" {
		return Completion{}, ErrNoPaymentIntent
	}
	if c.PaymentStatus != PaymentSucceeded {
		pi, err := s.gateway.GetPaymentIntent(ctx, c.PaymentIntentID)
		if err != nil {
			return Completion{}, fmt.Errorf("get payment intent: %w", err)
		}
		if pi.Status != payments.IntentSucceeded {
			return Completion{}, fmt.Errorf("%w: intent is %s", ErrPaymentIncomplete, pi.Status)
		}
		if _, err := s.markPaid(ctx, c); err != nil {
			return Completion{}, err
		}
	}
	if _, err := s.Distribute(ctx, c.ID); err != nil &&
		!errors.Is(err, ErrDistributionRunning) && !errors.Is(err, ErrDisputed) {
		return Completion{}, err
	}
	return s.store.Get(ctx, c.ID)
}

func (s *Service) markPaid(ctx context.Context, c Completion) (bool, error) {
	changed, err := s.store.MarkPaid(ctx, c.ID)
	if err != nil {
		return false, err
	}
	if changed {
		s.recordPayment("succeeded")
		if s.notifier != nil {
			s.notifier.NotifyEmployer(ctx, c.EmployerID, "payment_succeeded", "Payment received",
				fmt.Sprintf("Your payment of %.2f %s was received.", c.TotalCharge, strings.ToUpper(c.Currency)),
				map[string]any{"completionId": c.ID})
		}
	}
	return changed, nil
}

// MarkPaidByIntent handles payment_intent.succeeded. It returns the completion id and whether this call changed it.
func (s *Service) MarkPaidByIntent(ctx context.Context, paymentIntentID string) (string, bool, error) {
	c, err := s.store.GetByIntent(ctx, paymentIntentID)
	if err != nil {
		return "", false, err
	}
	changed, err := s.markPaid(ctx, c)
	return c.ID, changed, err
}

func (s *Service) MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) error {
	c, err := s.store.GetByIntent(ctx, paymentIntentID)
	if err != nil {
		return err
	}
	if c.PaymentStatus == PaymentSucceeded || c.PaymentStatus == PaymentRefunded {
		return nil
	}
	if err := s.store.SetPaymentStatus(ctx, c.ID, PaymentFailed); err != nil {
		return err
	}
	s.recordPayment("failed")
	if s.notifier != nil {
		body := "Your payment could not be completed."
		if reason != "" {
			body += " " + reason
		}
		s.notifier.NotifyEmployer(ctx, c.EmployerID, "payment_failed", "Payment failed", body,
			map[string]any{"completionId": c.ID})
	}
	return nil
}

// Distribute pays out every pending or failed worker. Each transfer stands alone: a failure marks that
// worker and the rest continue. A distribution left running past staleDistribution is taken over.
func (s *Service) Distribute(ctx context.Context, id string) (DistributionResult, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return DistributionResult{}, err
	}
	if c.Status == StatusDisputed {
		return DistributionResult{}, ErrDisputed
	}
	if c.PaymentStatus != PaymentSucceeded {
		return DistributionResult{}, ErrPaymentIncomplete
	}
	if c.Status == StatusDistributing {
		err = s.store.ClaimStale(ctx, c.ID, StatusDistributing, s.now().Add(-staleDistribution))
	} else {
		err = s.store.SetStatus(ctx, c.ID, StatusDistributing, []string{StatusPaid, StatusPartiallyPaid})
	}
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return DistributionResult{}, ErrDistributionRunning
		}
		return DistributionResult{}, err
	}

	result := DistributionResult{CompletionID: c.ID}
	for _, w := range c.Workers {
		switch w.Status {
		case WorkerPaid:
			result.Paid++
			continue
		case WorkerPending, WorkerFailed:
		default:
			continue
		}
		err := s.payWorker(ctx, c, w)
		var unrecorded *unrecordedTransferError
		switch {
		case err == nil:
			result.Paid++
			s.recordTransfer("succeeded")
		case errors.As(err, &unrecorded):
			// The money moved; the worker stays pending so the next run replays the same key.
			result.Unrecorded++
			slog.Error("worker transfer not recorded", "completionId", c.ID, "userId", w.UserID,
				"transferId", unrecorded.transferID, "err", unrecorded.err)
			s.recordTransfer("succeeded")
		default:
			result.Failed++
			slog.Warn("worker transfer failed", "completionId", c.ID, "userId", w.UserID, "err", err)
			if markErr := s.store.MarkWorkerFailed(ctx, w.ID, err.Error(), payments.Declined(err)); markErr != nil {
				slog.Warn("mark worker failed", "completionId", c.ID, "userId", w.UserID, "err", markErr)
			}
			s.recordTransfer("failed")
		}
	}

	result.Status = StatusCompleted
	if result.Failed > 0 || result.Unrecorded > 0 {
		result.Status = StatusPartiallyPaid
	}
	if err := s.store.FinishDistribution(ctx, c.ID, result.Status); err != nil {
		return result, err
	}
	if result.Failed > 0 && s.notifier != nil {
		s.notifier.NotifyEmployer(ctx, c.EmployerID, "payout_partial", "Some payouts failed",
			fmt.Sprintf("%d of %d worker payouts failed and will be retried.", result.Failed, result.Failed+result.Paid),
			map[string]any{"completionId": c.ID})
	}
	return result, nil
}

type unrecordedTransferError struct {
	transferID string
	err        error
}

func (e *unrecordedTransferError) Error() string {
	return fmt.Sprintf("record transfer %s: %v", e.transferID, e.err)
}

func (e *unrecordedTransferError) Unwrap() error { return e.err }

// payWorker sends one transfer. The idempotency key is stored before Stripe is called and is
// only replaced after Stripe declines it, so a replay can never create a second transfer.
func (s *Service) payWorker(ctx context.Context, c Completion, w WorkerPayment) error {
	amount := payments.ToCents(w.Amount)
	if amount <= 0 {
		return s.store.MarkWorkerPaid(ctx, w.ID, "")
	}
	if w.StripeAccountID == "" {
		return errors.New("worker has no payout account")
	}
	if !w.PayoutsEnabled {
		return errors.New("worker payouts are not enabled")
	}
	key := w.TransferKey
	if key == "" {
		key = "transfer-" + w.ID
		if w.Status == WorkerFailed {
			key = fmt.Sprintf("%s-retry-%d", key, s.now().UnixNano())
		}
		if err := s.store.SetTransferKey(ctx, w.ID, key); err != nil {
			return fmt.Errorf("store transfer key: %w", err)
		}
	}
	transfer, err := s.gateway.CreateTransfer(ctx, payments.TransferParams{
		AmountCents:    amount,
		Currency:       c.Currency,
		Destination:    w.StripeAccountID,
		TransferGroup:  c.ID,
		IdempotencyKey: key,
		Metadata: map[string]string{
			"completion_id": c.ID,
			"gig_id":        c.GigID,
			"user_id":       w.UserID,
		},
	})
	if err != nil {
		return fmt.Errorf("stripe transfer: %w", err)
	}
	if err := s.store.MarkWorkerPaid(ctx, w.ID, transfer.ID); err != nil {
		return &unrecordedTransferError{transferID: transfer.ID, err: err}
	}
	if s.notifier != nil {
		s.notifier.NotifyUser(ctx, w.UserID, "payment_received", "You've been paid",
			fmt.Sprintf("%.2f %s is on its way for %q.", w.Amount, strings.ToUpper(c.Currency), c.GigTitle),
			map[string]any{"completionId": c.ID, "transferId": transfer.ID})
	}
	return nil
}

// RetryFailed reruns distribution for a partially paid completion, or one whose distribution
// stalled; paid workers are left alone.
func (s *Service) RetryFailed(ctx context.Context, id string) (DistributionResult, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return DistributionResult{}, err
	}
	if c.Status != StatusPartiallyPaid && c.Status != StatusDistributing {
		return DistributionResult{}, ErrInvalidTransition
	}
	return s.Distribute(ctx, id)
}

// RetryAllFailed is the scheduled job body. It also distributes paid completions whose
// distribution never started, e.g. when the queue dropped the webhook job, and takes over
// distributions that stalled mid-run.
func (s *Service) RetryAllFailed(ctx context.Context) (map[string]int, error) {
	summary := map[string]int{}
	sweeps := []struct {
		status string
		list   func(ctx context.Context) ([]string, error)
	}{
		{StatusPartiallyPaid, func(ctx context.Context) ([]string, error) {
			return s.store.ListIDsByStatus(ctx, StatusPartiallyPaid, retryBatchSize)
		}},
		{StatusPaid, func(ctx context.Context) ([]string, error) {
			return s.store.ListIDsByStatus(ctx, StatusPaid, retryBatchSize)
		}},
		{StatusDistributing, func(ctx context.Context) ([]string, error) {
			return s.store.ListStaleIDs(ctx, StatusDistributing, s.now().Add(-staleDistribution), retryBatchSize)
		}},
	}
	for _, sweep := range sweeps {
		ids, err := sweep.list(ctx)
		if err != nil {
			return nil, err
		}
		summary["completions"] += len(ids)
		for _, id := range ids {
			result, err := s.Distribute(ctx, id)
			if err != nil {
				slog.Warn("transfer retry failed", "completionId", id, "status", sweep.status, "err", err)
				summary["errors"]++
				continue
			}
			summary["paid"] += result.Paid
			summary["failed"] += result.Failed + result.Unrecorded
		}
	}
	return summary, nil
}

// Refund returns the employer's charge. Once any worker transfer has succeeded the money is gone
// and a refund is refused.
func (s *Service) Refund(ctx context.Context, id string) (Completion, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Completion{}, err
	}
	if c.PaymentStatus != PaymentSucceeded || c.PaymentIntentID == "" {
		return Completion{}, ErrPaymentIncomplete
	}
	switch c.Status {
	case StatusPaid, StatusDisputed, StatusPartiallyPaid:
	default:
		return Completion{}, ErrInvalidTransition
	}
	if c.AnyTransferSucceeded() {
		return Completion{}, ErrTransfersSucceeded
	}
	if _, err := s.gateway.CreateRefund(ctx, c.PaymentIntentID); err != nil {
		return Completion{}, fmt.Errorf("stripe refund: %w", err)
	}
	if err := s.store.MarkRefunded(ctx, c.ID); err != nil {
		return Completion{}, err
	}
	s.recordPayment("refunded")
	if s.notifier != nil {
		s.notifier.NotifyEmployer(ctx, c.EmployerID, "payment_refunded", "Payment refunded",
			fmt.Sprintf("%.2f %s has been refunded.", c.TotalCharge, strings.ToUpper(c.Currency)),
			map[string]any{"completionId": c.ID})
	}
	return s.store.Get(ctx, c.ID)
}

// MarkRefundedByIntent handles charge.refunded for refunds issued outside the API.
func (s *Service) MarkRefundedByIntent(ctx context.Context, paymentIntentID string) error {
	c, err := s.store.GetByIntent(ctx, paymentIntentID)
	if err != nil {
		return err
	}
	if c.Status == StatusRefunded {
		return nil
	}
	s.recordPayment("refunded")
	return s.store.MarkRefunded(ctx, c.ID)
}

// MarkTransferReversed handles transfer.reversed: the worker is owed again and the completion reopens for retry.
func (s *Service) MarkTransferReversed(ctx context.Context, transferID string) error {
	completionID, err := s.store.MarkTransferReversed(ctx, transferID, "transfer reversed")
	if err != nil {
		return err
	}
	s.recordTransfer("reversed")
	err = s.store.SetStatus(ctx, completionID, StatusPartiallyPaid, []string{StatusCompleted})
	if errors.Is(err, ErrInvalidTransition) {
		return nil
	}
	return err
}

// Dispute freezes a completion before distribution. The owning employer or a listed worker may open one.
func (s *Service) Dispute(ctx context.Context, viewer auth.UserContext, id, reason string) (Completion, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Completion{}, err
	}
	isOwner := viewer.Role == auth.RoleEmployer && c.EmployerID == viewer.SubjectID
	isWorker := viewer.Role == auth.RoleUser && c.HasWorker(viewer.SubjectID)
	if !isOwner && !isWorker {
		return Completion{}, ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Completion{}, ErrDisputeReason
	}
	if err := s.store.SetDispute(ctx, c.ID, reason, []string{StatusPendingPayment, StatusPaid}); err != nil {
		return Completion{}, err
	}
	if s.notifier != nil {
		data := map[string]any{"completionId": c.ID}
		if isWorker {
			s.notifier.NotifyEmployer(ctx, c.EmployerID, "completion_disputed", "Completion disputed", reason, data)
		}
		for _, w := range c.Workers {
			if w.UserID != viewer.SubjectID {
				s.notifier.NotifyUser(ctx, w.UserID, "completion_disputed", "Payment on hold", reason, data)
			}
		}
	}
	return s.store.Get(ctx, c.ID)
}

// ResolveDispute is the admin decision: release resumes payment flow, refund returns the charge.
func (s *Service) ResolveDispute(ctx context.Context, id, action string) (Completion, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Completion{}, err
	}
	if c.Status != StatusDisputed {
		return Completion{}, ErrInvalidTransition
	}
	switch action {
	case ResolveRefund:
		if c.PaymentStatus != PaymentSucceeded {
			if err := s.store.SetStatus(ctx, c.ID, StatusRefunded, []string{StatusDisputed}); err != nil {
				return Completion{}, err
			}
			return s.store.Get(ctx, c.ID)
		}
		return s.Refund(ctx, id)
	case ResolveRelease:
		if c.PaymentStatus != PaymentSucceeded {
			if err := s.store.SetStatus(ctx, c.ID, StatusPendingPayment, []string{StatusDisputed}); err != nil {
				return Completion{}, err
			}
			return s.store.Get(ctx, c.ID)
		}
		if err := s.store.SetStatus(ctx, c.ID, StatusPaid, []string{StatusDisputed}); err != nil {
			return Completion{}, err
		}
		if _, err := s.Distribute(ctx, c.ID); err != nil {
			return Completion{}, err
		}
		return s.store.Get(ctx, c.ID)
	default:
		return Completion{}, ErrInvalidResolution
	}
}

func (s *Service) recordPayment(event string) {
	if s.observer != nil {
		s.observer.RecordPayment(event)
	}
}

func (s *Service) recordTransfer(status string) {
	if s.observer != nil {
		s.observer.RecordTransfer(status)
	}
}
