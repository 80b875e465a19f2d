package applications

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quickshift/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const applicationColumns = `
    a.id, a.gig_id, COALESCE(g.title, ''), a.user_id, COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''),
    a.cover_letter, a.slot_ids, a.status, a.instant_apply, a.employer_note, a.decided_at, a.created_at, a.updated_at`

const applicationFrom = `
    FROM gig_applications a
    LEFT JOIN gigs g ON g.id = a.gig_id
    LEFT JOIN users u ON u.id = a.user_id`

func scanApplication(row pgx.Row) (Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.GigID, &a.GigTitle, &a.UserID, &a.ApplicantName,
		&a.CoverLetter, &a.SlotIDs, &a.Status, &a.InstantApply, &a.EmployerNote, &a.DecidedAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	return a, err
}

func (s *Store) Create(ctx context.Context, app Application) (Application, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO gig_applications (gig_id, user_id, cover_letter, slot_ids, status, instant_apply)
    VALUES ($1,$2,$3,$4,'pending',$5)
    RETURNING id
  `, app.GigID, app.UserID, app.CoverLetter, app.SlotIDs, app.InstantApply).Scan(&id)
	if db.IsUniqueViolation(err) {
		return Application{}, ErrAlreadyApplied
	}
	if err != nil {
		return Application{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Get(ctx context.Context, id string) (Application, error) {
	return scanApplication(s.DB.QueryRow(ctx, `SELECT`+applicationColumns+applicationFrom+` WHERE a.id = $1`, id))
}

func (s *Store) ActiveForUser(ctx context.Context, gigID, userID string) (Application, error) {
	return scanApplication(s.DB.QueryRow(ctx, `SELECT`+applicationColumns+applicationFrom+`
    WHERE a.gig_id = $1 AND a.user_id = $2 AND a.status <> 'withdrawn'
    ORDER BY a.created_at DESC LIMIT 1`, gigID, userID))
}

func (s *Store) ListByGig(ctx context.Context, gigID, status string, limit, offset int) ([]Application, int, error) {
	return s.list(ctx, "a.gig_id", gigID, status, limit, offset)
}

func (s *Store) ListByUser(ctx context.Context, userID, status string, limit, offset int) ([]Application, int, error) {
	return s.list(ctx, "a.user_id", userID, status, limit, offset)
}

func (s *Store) list(ctx context.Context, column, value, status string, limit, offset int) ([]Application, int, error) {
	where := column + " = $1"
	args := []any{value}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND a.status = $%d", len(args))
	}

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM gig_applications a WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`SELECT`+applicationColumns+applicationFrom+`
    WHERE %s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, id, to, from, note string) (Application, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE gig_applications
    SET status = $2, employer_note = CASE WHEN $4 = '' THEN employer_note ELSE $4 END,
        decided_at = CASE WHEN $2 IN ('accepted', 'rejected') THEN now() ELSE decided_at END,
        updated_at = now()
    WHERE id = $1 AND status = $3
  `, id, to, from, note)
	if err != nil {
		return Application{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return Application{}, err
		}
		return Application{}, ErrInvalidTransition
	}
	return s.Get(ctx, id)
}

// Accept hires the applicant into each chosen slot in one transaction; a full slot aborts the whole accept.
func (s *Store) Accept(ctx context.Context, id, note string) (Application, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Application{}, err
	}
	defer tx.Rollback(ctx)

	var gigID, status string
	var slotIDs []string
	err = tx.QueryRow(ctx, `SELECT gig_id, status, slot_ids FROM gig_applications WHERE id = $1 FOR UPDATE`, id).
		Scan(&gigID, &status, &slotIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	if err != nil {
		return Application{}, err
	}
	if status != StatusPending {
		return Application{}, ErrInvalidTransition
	}

	for _, slotID := range slotIDs {
		tag, err := tx.Exec(ctx, `
      UPDATE gig_time_slots SET workers_hired = workers_hired + 1
      WHERE id = $1 AND gig_id = $2 AND workers_hired < workers_needed
    `, slotID, gigID)
		if err != nil {
			return Application{}, err
		}
		if tag.RowsAffected() == 0 {
			return Application{}, fmt.Errorf("slot %s: %w", slotID, ErrSlotFull)
		}
	}

	if _, err := tx.Exec(ctx, `
    UPDATE gig_applications
    SET status = 'accepted', employer_note = $2, decided_at = now(), updated_at = now()
    WHERE id = $1
  `, id, note); err != nil {
		return Application{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Application{}, err
	}
	return s.Get(ctx, id)
}
