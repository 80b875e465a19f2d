package employers

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const employerColumns = `
    id, email, password_hash, company_name, contact_name, phone, industry, description, website,
    address, city, lat, lng, stripe_customer_id, rating_avg, rating_count, verified, status,
    last_login_at, created_at, updated_at`

func scanEmployer(row pgx.Row) (Employer, error) {
	var e Employer
	err := row.Scan(
		&e.ID, &e.Email, &e.PasswordHash, &e.CompanyName, &e.ContactName, &e.Phone, &e.Industry, &e.Description, &e.Website,
		&e.Location.Address, &e.Location.City, &e.Location.Lat, &e.Location.Lng,
		&e.StripeCustomerID, &e.RatingAvg, &e.RatingCount, &e.Verified, &e.Status,
		&e.LastLoginAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employer{}, ErrNotFound
	}
	return e, err
}

func (s *Store) Create(ctx context.Context, e Employer) (Employer, error) {
	created, err := scanEmployer(s.DB.QueryRow(ctx, `
    INSERT INTO employers (email, password_hash, company_name, contact_name, phone)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING`+employerColumns, e.Email, e.PasswordHash, e.CompanyName, e.ContactName, e.Phone))
	if db.IsUniqueViolation(err) {
		return Employer{}, ErrEmailTaken
	}
	return created, err
}

func (s *Store) Get(ctx context.Context, id string) (Employer, error) {
	return scanEmployer(s.DB.QueryRow(ctx, `SELECT`+employerColumns+` FROM employers WHERE id = $1`, id))
}

func (s *Store) Update(ctx context.Context, e Employer) (Employer, error) {
	return scanEmployer(s.DB.QueryRow(ctx, `
    UPDATE employers
    SET company_name = $2, contact_name = $3, phone = $4, industry = $5, description = $6, website = $7,
        address = $8, city = $9, lat = $10, lng = $11, updated_at = now()
    WHERE id = $1
    RETURNING`+employerColumns,
		e.ID, e.CompanyName, e.ContactName, e.Phone, e.Industry, e.Description, e.Website,
		e.Location.Address, e.Location.City, e.Location.Lat, e.Location.Lng))
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Employer, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		where = append(where, fmt.Sprintf("(lower(email) LIKE $%[1]d OR lower(company_name) LIKE $%[1]d)", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM employers WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`SELECT`+employerColumns+` FROM employers WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Employer
	for rows.Next() {
		e, err := scanEmployer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	tag, err := s.DB.Exec(ctx, `UPDATE employers SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetStripeCustomer(ctx context.Context, id, customerID string) error {
	_, err := s.DB.Exec(ctx, `UPDATE employers SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`, id, customerID)
	return err
}

func (s *Store) Dashboard(ctx context.Context, id string) (Dashboard, error) {
	out := Dashboard{GigsByStatus: map[string]int{}}
	rows, err := s.DB.Query(ctx, `SELECT status, COUNT(1) FROM gigs WHERE employer_id = $1 GROUP BY status`, id)
	if err != nil {
		return out, err
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return out, err
		}
		out.GigsByStatus[status] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FILTER (WHERE a.status = 'pending'),
           COUNT(1) FILTER (WHERE a.status = 'accepted')
    FROM gig_applications a
    JOIN gigs g ON g.id = a.gig_id
    WHERE g.employer_id = $1
  `, id).Scan(&out.PendingApplications, &out.HiredWorkers); err != nil {
		return out, err
	}

	if err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(total_charge) FILTER (WHERE payment_status = 'succeeded'), 0),
           COALESCE(SUM(total_charge) FILTER (WHERE payment_status IN ('unpaid','processing','failed') AND status = 'pending_payment'), 0),
           COUNT(1)
    FROM gig_completions
    WHERE employer_id = $1
  `, id).Scan(&out.TotalSpend, &out.OutstandingCharges, &out.Completions); err != nil {
		return out, err
	}

	err = s.DB.QueryRow(ctx, `SELECT rating_avg, rating_count FROM employers WHERE id = $1`, id).Scan(&out.RatingAvg, &out.RatingCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, ErrNotFound
	}
	return out, err
}
