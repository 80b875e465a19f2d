package admins

import (
	"context"
	"errors"

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

const adminColumns = `id, email, name, role, status, mfa_enabled, last_login_at, created_at`

func scanAdmin(row pgx.Row) (Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.Status, &a.MFAEnabled, &a.LastLoginAt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Admin{}, ErrNotFound
	}
	return a, err
}

func (s *Store) Create(ctx context.Context, email, passwordHash, name, role string) (Admin, error) {
	a, err := scanAdmin(s.DB.QueryRow(ctx, `
    INSERT INTO admins (email, password_hash, name, role)
    VALUES ($1,$2,$3,$4)
    RETURNING `+adminColumns, email, passwordHash, name, role))
	if db.IsUniqueViolation(err) {
		return Admin{}, ErrEmailTaken
	}
	return a, err
}

func (s *Store) Get(ctx context.Context, id string) (Admin, error) {
	return scanAdmin(s.DB.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]Admin, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM admins`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.DB.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (s *Store) countByStatus(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func (s *Store) Dashboard(ctx context.Context) (Dashboard, error) {
	var out Dashboard
	var err error
	if out.UsersByStatus, err = s.countByStatus(ctx, `SELECT status, COUNT(1) FROM users GROUP BY status`); err != nil {
		return out, err
	}
	if out.EmployersByStatus, err = s.countByStatus(ctx, `SELECT status, COUNT(1) FROM employers GROUP BY status`); err != nil {
		return out, err
	}
	if out.GigsByStatus, err = s.countByStatus(ctx, `SELECT status, COUNT(1) FROM gigs GROUP BY status`); err != nil {
		return out, err
	}
	if out.CompletionsByStatus, err = s.countByStatus(ctx, `SELECT status, COUNT(1) FROM gig_completions GROUP BY status`); err != nil {
		return out, err
	}
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM gig_applications WHERE status = 'pending'`).Scan(&out.PendingApplications); err != nil {
		return out, err
	}
	if err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(service_fee), 0), COALESCE(SUM(total_charge), 0)
    FROM gig_completions
    WHERE payment_status = 'succeeded'
  `).Scan(&out.Revenue, &out.GrossVolume); err != nil {
		return out, err
	}
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM completion_workers WHERE status = 'failed'`).Scan(&out.FailedTransfers); err != nil {
		return out, err
	}
	out.OpenDisputes = out.CompletionsByStatus["disputed"]
	return out, nil
}
