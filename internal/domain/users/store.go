package users

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

const userColumns = `
    id, email, password_hash, first_name, last_name, phone, bio, skills,
    address, city, lat, lng,
    pref_categories, pref_job_types, pref_min_hourly_rate, pref_max_distance_km, notify_email, notify_in_app,
    instant_apply_enabled, instant_apply_cover_letter, instant_apply_all_slots,
    stripe_account_id, payouts_enabled, rating_avg, rating_count, status, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Bio, &u.Skills,
		&u.Location.Address, &u.Location.City, &u.Location.Lat, &u.Location.Lng,
		&u.Preferences.Categories, &u.Preferences.JobTypes, &u.Preferences.MinHourlyRate, &u.Preferences.MaxDistanceKm,
		&u.Preferences.NotifyEmail, &u.Preferences.NotifyInApp,
		&u.InstantApply.Enabled, &u.InstantApply.CoverLetter, &u.InstantApply.UseAllSlots,
		&u.StripeAccountID, &u.PayoutsEnabled, &u.RatingAvg, &u.RatingCount, &u.Status, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) Create(ctx context.Context, u User) (User, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, first_name, last_name, phone)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING`+userColumns, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone)
	created, err := scanUser(row)
	if db.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	return created, err
}

func (s *Store) Get(ctx context.Context, id string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) Update(ctx context.Context, u User) (User, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE users
    SET first_name = $2, last_name = $3, phone = $4, bio = $5, skills = $6,
        address = $7, city = $8, lat = $9, lng = $10,
        pref_categories = $11, pref_job_types = $12, pref_min_hourly_rate = $13, pref_max_distance_km = $14,
        notify_email = $15, notify_in_app = $16,
        instant_apply_enabled = $17, instant_apply_cover_letter = $18, instant_apply_all_slots = $19,
        updated_at = now()
    WHERE id = $1
    RETURNING`+userColumns,
		u.ID, u.FirstName, u.LastName, u.Phone, u.Bio, nonNil(u.Skills),
		u.Location.Address, u.Location.City, u.Location.Lat, u.Location.Lng,
		nonNil(u.Preferences.Categories), nonNil(u.Preferences.JobTypes), u.Preferences.MinHourlyRate, u.Preferences.MaxDistanceKm,
		u.Preferences.NotifyEmail, u.Preferences.NotifyInApp,
		u.InstantApply.Enabled, u.InstantApply.CoverLetter, u.InstantApply.UseAllSlots,
	)
	return scanUser(row)
}

// Anonymize scrubs PII in place. Completion and rating rows keep pointing at the id.
func (s *Store) Anonymize(ctx context.Context, id, placeholderEmail string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users
    SET email = $2, password_hash = '', first_name = '', last_name = '', phone = '', bio = '',
        skills = '{}', address = '', city = '', lat = NULL, lng = NULL,
        pref_categories = '{}', pref_job_types = '{}', notify_email = false, notify_in_app = false,
        instant_apply_enabled = false, instant_apply_cover_letter = '',
        status = 'deleted', updated_at = now()
    WHERE id = $1
  `, id, placeholderEmail)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]User, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		where = append(where, fmt.Sprintf("(lower(email) LIKE $%[1]d OR lower(first_name || ' ' || last_name) LIKE $%[1]d)", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM users WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`SELECT`+userColumns+` FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	tag, err := s.DB.Exec(ctx, `UPDATE users SET status = $2, updated_at = now() WHERE id = $1 AND status <> 'deleted'`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetStripeAccount(ctx context.Context, id, accountID string) error {
	_, err := s.DB.Exec(ctx, `UPDATE users SET stripe_account_id = $2, updated_at = now() WHERE id = $1`, id, accountID)
	return err
}

func (s *Store) SetPayoutsEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := s.DB.Exec(ctx, `UPDATE users SET payouts_enabled = $2, updated_at = now() WHERE id = $1`, id, enabled)
	return err
}

func (s *Store) SetPayoutsEnabledByAccount(ctx context.Context, accountID string, enabled bool) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    UPDATE users SET payouts_enabled = $2, updated_at = now()
    WHERE stripe_account_id = $1
    RETURNING id
  `, accountID, enabled).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

func (s *Store) ListEarnings(ctx context.Context, id string, limit, offset int) ([]EarningLine, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM completion_workers WHERE user_id = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.DB.Query(ctx, `
    SELECT c.id, g.id, g.title, w.amount, c.currency, w.status, w.paid_at, c.created_at
    FROM completion_workers w
    JOIN gig_completions c ON c.id = w.completion_id
    JOIN gigs g ON g.id = c.gig_id
    WHERE w.user_id = $1
    ORDER BY c.created_at DESC
    LIMIT $2 OFFSET $3
  `, id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []EarningLine
	for rows.Next() {
		var e EarningLine
		if err := rows.Scan(&e.CompletionID, &e.GigID, &e.GigTitle, &e.Amount, &e.Currency, &e.Status, &e.PaidAt, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *Store) EarningsSummary(ctx context.Context, id string) (EarningsSummary, error) {
	var out EarningsSummary
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0),
           COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0),
           COALESCE(SUM(amount) FILTER (WHERE status = 'failed'), 0),
           COUNT(1)
    FROM completion_workers
    WHERE user_id = $1
  `, id).Scan(&out.Paid, &out.Pending, &out.Failed, &out.Gigs)
	return out, err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
