package completions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const completionColumns = `
    c.id, c.gig_id, COALESCE(g.title, ''), c.employer_id, c.total_amount, c.service_fee, c.tax, c.total_charge,
    c.currency, c.payment_intent_id, c.payment_status, c.status, c.dispute_reason, c.notes,
    c.paid_at, c.distributed_at, c.created_at, c.updated_at`

const completionFrom = ` FROM gig_completions c LEFT JOIN gigs g ON g.id = c.gig_id`

func scanCompletion(row pgx.Row) (Completion, error) {
	var c Completion
	err := row.Scan(&c.ID, &c.GigID, &c.GigTitle, &c.EmployerID, &c.TotalAmount, &c.ServiceFee, &c.Tax, &c.TotalCharge,
		&c.Currency, &c.PaymentIntentID, &c.PaymentStatus, &c.Status, &c.DisputeReason, &c.Notes,
		&c.PaidAt, &c.DistributedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Completion{}, ErrNotFound
	}
	return c, err
}

func (s *Store) Create(ctx context.Context, c Completion) (Completion, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Completion{}, err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
    INSERT INTO gig_completions (gig_id, employer_id, total_amount, service_fee, tax, total_charge, currency, notes)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, c.GigID, c.EmployerID, c.TotalAmount, c.ServiceFee, c.Tax, c.TotalCharge, c.Currency, c.Notes).Scan(&id)
	if err != nil {
		return Completion{}, err
	}
	for _, w := range c.Workers {
		entries, err := json.Marshal(w.TimeEntries)
		if err != nil {
			return Completion{}, err
		}
		if _, err := tx.Exec(ctx, `
      INSERT INTO completion_workers (completion_id, user_id, time_entries, overtime, bonus, deductions, amount)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, id, w.UserID, entries, w.Overtime, w.Bonus, w.Deductions, w.Amount); err != nil {
			return Completion{}, fmt.Errorf("insert worker %s: %w", w.UserID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Completion{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Get(ctx context.Context, id string) (Completion, error) {
	return s.getOne(ctx, `c.id = $1`, id)
}

func (s *Store) GetByIntent(ctx context.Context, paymentIntentID string) (Completion, error) {
	return s.getOne(ctx, `c.payment_intent_id = $1`, paymentIntentID)
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (Completion, error) {
	c, err := scanCompletion(s.DB.QueryRow(ctx, `SELECT`+completionColumns+completionFrom+` WHERE `+where, arg))
	if err != nil {
		return Completion{}, err
	}
	workers, err := s.loadWorkers(ctx, []string{c.ID})
	if err != nil {
		return Completion{}, err
	}
	c.Workers = workers[c.ID]
	return c, nil
}

func (s *Store) loadWorkers(ctx context.Context, ids []string) (map[string][]WorkerPayment, error) {
	out := make(map[string][]WorkerPayment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT w.completion_id, w.id, w.user_id, COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''),
           w.time_entries, w.overtime, w.bonus, w.deductions, w.amount, w.status, w.transfer_id,
           w.failure_reason, w.paid_at, COALESCE(u.stripe_account_id, ''), COALESCE(u.payouts_enabled, false),
           w.transfer_key
    FROM completion_workers w
    LEFT JOIN users u ON u.id = w.user_id
    WHERE w.completion_id = ANY($1::uuid[])
    ORDER BY w.completion_id, w.id
  `, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var completionID string
		var raw []byte
		var w WorkerPayment
		if err := rows.Scan(&completionID, &w.ID, &w.UserID, &w.WorkerName, &raw, &w.Overtime, &w.Bonus, &w.Deductions,
			&w.Amount, &w.Status, &w.TransferID, &w.FailureReason, &w.PaidAt, &w.StripeAccountID, &w.PayoutsEnabled,
			&w.TransferKey); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &w.TimeEntries); err != nil {
				return nil, fmt.Errorf("decode time entries: %w", err)
			}
		}
		out[completionID] = append(out[completionID], w)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Completion, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.EmployerID != "" {
		args = append(args, filter.EmployerID)
		where = append(where, fmt.Sprintf("c.employer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("c.status = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM gig_completions c WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`SELECT`+completionColumns+completionFrom+`
    WHERE %s ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	var out []Completion
	var ids []string
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, c)
		ids = append(ids, c.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	workers, err := s.loadWorkers(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Workers = workers[out[i].ID]
	}
	return out, total, nil
}

func (s *Store) ListIDsByStatus(ctx context.Context, status string, limit int) ([]string, error) {
	return s.queryIDs(ctx, `
    SELECT id FROM gig_completions WHERE status = $1 ORDER BY updated_at ASC LIMIT $2
  `, status, limit)
}

// ListStaleIDs returns completions that have sat in status since before updatedBefore.
func (s *Store) ListStaleIDs(ctx context.Context, status string, updatedBefore time.Time, limit int) ([]string, error) {
	return s.queryIDs(ctx, `
    SELECT id FROM gig_completions WHERE status = $1 AND updated_at < $2 ORDER BY updated_at ASC LIMIT $3
  `, status, updatedBefore, limit)
}

func (s *Store) queryIDs(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) AcceptedWorkers(ctx context.Context, gigID string) (map[string]bool, error) {
	rows, err := s.DB.Query(ctx, `SELECT user_id FROM gig_applications WHERE gig_id = $1 AND status = 'accepted'`, gigID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *Store) SetPaymentIntent(ctx context.Context, id, paymentIntentID, paymentStatus string) error {
	return s.exec(ctx, `
    UPDATE gig_completions SET payment_intent_id = $2, payment_status = $3, updated_at = now()
    WHERE id = $1
  `, id, paymentIntentID, paymentStatus)
}

func (s *Store) SetPaymentStatus(ctx context.Context, id, paymentStatus string) error {
	return s.exec(ctx, `UPDATE gig_completions SET payment_status = $2, updated_at = now() WHERE id = $1`, id, paymentStatus)
}

// MarkPaid moves a pending_payment completion to paid. It reports false when another caller got there first.
func (s *Store) MarkPaid(ctx context.Context, id string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE gig_completions
    SET status = CASE WHEN status = 'pending_payment' THEN 'paid' ELSE status END,
        payment_status = 'succeeded', paid_at = COALESCE(paid_at, now()), updated_at = now()
    WHERE id = $1 AND payment_status <> 'succeeded' AND status IN ('pending_payment', 'disputed')
  `, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) SetStatus(ctx context.Context, id, to string, from []string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE gig_completions SET status = $2, updated_at = now() WHERE id = $1 AND status = ANY($3)
  `, id, to, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// ClaimStale touches a completion still in status that has not moved since updatedBefore.
func (s *Store) ClaimStale(ctx context.Context, id, status string, updatedBefore time.Time) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE gig_completions SET updated_at = now() WHERE id = $1 AND status = $2 AND updated_at < $3
  `, id, status, updatedBefore)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (s *Store) SetDispute(ctx context.Context, id, reason string, from []string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE gig_completions SET status = 'disputed', dispute_reason = $2, updated_at = now()
    WHERE id = $1 AND status = ANY($3)
  `, id, reason, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (s *Store) MarkWorkerPaid(ctx context.Context, workerID, transferID string) error {
	return s.exec(ctx, `
    UPDATE completion_workers
    SET status = 'paid', transfer_id = $2, failure_reason = '', paid_at = now(), updated_at = now()
    WHERE id = $1
  `, workerID, transferID)
}

// SetTransferKey records the idempotency key before the transfer is sent.
func (s *Store) SetTransferKey(ctx context.Context, workerID, key string) error {
	return s.exec(ctx, `
    UPDATE completion_workers SET transfer_key = $2, updated_at = now() WHERE id = $1
  `, workerID, key)
}

func (s *Store) MarkWorkerFailed(ctx context.Context, workerID, reason string, releaseKey bool) error {
	return s.exec(ctx, `
    UPDATE completion_workers
    SET status = 'failed', failure_reason = $2,
        transfer_key = CASE WHEN $3 THEN '' ELSE transfer_key END,
        updated_at = now()
    WHERE id = $1
  `, workerID, reason, releaseKey)
}

// MarkTransferReversed fails the worker payment behind transferID and returns its completion id.
func (s *Store) MarkTransferReversed(ctx context.Context, transferID, reason string) (string, error) {
	var completionID string
	err := s.DB.QueryRow(ctx, `
    UPDATE completion_workers
    SET status = 'failed', failure_reason = $2, paid_at = NULL, transfer_key = '', updated_at = now()
    WHERE transfer_id = $1
    RETURNING completion_id
  `, transferID, reason).Scan(&completionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return completionID, err
}

func (s *Store) FinishDistribution(ctx context.Context, id, status string) error {
	return s.exec(ctx, `
    UPDATE gig_completions SET status = $2, distributed_at = now(), updated_at = now() WHERE id = $1
  `, id, status)
}

func (s *Store) MarkRefunded(ctx context.Context, id string) error {
	return s.exec(ctx, `
    UPDATE gig_completions SET status = 'refunded', payment_status = 'refunded', updated_at = now() WHERE id = $1
  `, id)
}

func (s *Store) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := s.DB.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
