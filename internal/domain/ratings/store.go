package ratings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"quickshift/internal/domain/auth"
	"quickshift/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

// Create inserts the rating and refreshes the ratee's aggregate in the same transaction.
func (s *Store) Create(ctx context.Context, r Rating) (Rating, Summary, error) {
	table := "users"
	if r.RateeRole == auth.RoleEmployer {
		table = "employers"
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Rating{}, Summary{}, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
    INSERT INTO ratings (gig_id, rater_id, rater_role, ratee_id, ratee_role, score, comment)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id, created_at
  `, r.GigID, r.RaterID, r.RaterRole, r.RateeID, r.RateeRole, r.Score, r.Comment).Scan(&r.ID, &r.CreatedAt)
	if db.IsUniqueViolation(err) {
		return Rating{}, Summary{}, ErrAlreadyRated
	}
	if err != nil {
		return Rating{}, Summary{}, err
	}

	var summary Summary
	if err := tx.QueryRow(ctx, `
    SELECT COALESCE(ROUND(AVG(score)::numeric, 2), 0)::float8, COUNT(1)
    FROM ratings WHERE ratee_id = $1 AND ratee_role = $2
  `, r.RateeID, r.RateeRole).Scan(&summary.Average, &summary.Count); err != nil {
		return Rating{}, Summary{}, err
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
    UPDATE %s SET rating_avg = $2, rating_count = $3, updated_at = now() WHERE id = $1
  `, table), r.RateeID, summary.Average, summary.Count); err != nil {
		return Rating{}, Summary{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Rating{}, Summary{}, err
	}
	return r, summary, nil
}

func (s *Store) ListForRatee(ctx context.Context, rateeID, rateeRole string, limit, offset int) ([]Rating, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM ratings WHERE ratee_id = $1 AND ratee_role = $2`,
		rateeID, rateeRole).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.DB.Query(ctx, `
    SELECT r.id, r.gig_id, COALESCE(g.title, ''), r.rater_id, r.rater_role,
           COALESCE(e.company_name, TRIM(u.first_name || ' ' || LEFT(u.last_name, 1)), ''),
           r.ratee_id, r.ratee_role, r.score, r.comment, r.created_at
    FROM ratings r
    LEFT JOIN gigs g ON g.id = r.gig_id
    LEFT JOIN users u ON r.rater_role = 'user' AND u.id = r.rater_id
    LEFT JOIN employers e ON r.rater_role = 'employer' AND e.id = r.rater_id
    WHERE r.ratee_id = $1 AND r.ratee_role = $2
    ORDER BY r.created_at DESC
    LIMIT $3 OFFSET $4
  `, rateeID, rateeRole, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.ID, &r.GigID, &r.GigTitle, &r.RaterID, &r.RaterRole, &r.RaterName,
			&r.RateeID, &r.RateeRole, &r.Score, &r.Comment, &r.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// WorkedOnGig reports whether userID is on a completion for gigID; paidOnly requires a paid payout.
func (s *Store) WorkedOnGig(ctx context.Context, gigID, userID string, paidOnly bool) (bool, error) {
	var ok bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM completion_workers w
      JOIN gig_completions c ON c.id = w.completion_id
      WHERE c.gig_id = $1 AND w.user_id = $2 AND ($3 = false OR w.status = 'paid')
    )
  `, gigID, userID, paidOnly).Scan(&ok)
	return ok, err
}
