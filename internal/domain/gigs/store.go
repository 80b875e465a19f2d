package gigs

import (
	"context"
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

const gigColumns = `
    g.id, g.employer_id, COALESCE(e.company_name, ''), g.title, g.description, g.category, g.job_type,
    g.pay_amount, g.rate_type, g.address, g.city, g.lat, g.lng, g.required_skills,
    g.instant_apply_enabled, g.min_rating, g.status, g.created_at, g.updated_at`

const gigFrom = ` FROM gigs g LEFT JOIN employers e ON e.id = g.employer_id`

func scanGig(row pgx.Row) (Gig, error) {
	var g Gig
	err := row.Scan(
		&g.ID, &g.EmployerID, &g.EmployerName, &g.Title, &g.Description, &g.Category, &g.JobType,
		&g.PayRate.Amount, &g.PayRate.RateType, &g.Location.Address, &g.Location.City, &g.Location.Lat, &g.Location.Lng,
		&g.RequiredSkills, &g.InstantApplyEnabled, &g.MinRating, &g.Status, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Gig{}, ErrNotFound
	}
	return g, err
}

func (s *Store) Create(ctx context.Context, gig Gig) (Gig, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Gig{}, err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
    INSERT INTO gigs (employer_id, title, description, category, job_type, pay_amount, rate_type,
      address, city, lat, lng, required_skills, instant_apply_enabled, min_rating, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    RETURNING id
  `, gig.EmployerID, gig.Title, gig.Description, gig.Category, gig.JobType, gig.PayRate.Amount, gig.PayRate.RateType,
		gig.Location.Address, gig.Location.City, gig.Location.Lat, gig.Location.Lng, nonNil(gig.RequiredSkills),
		gig.InstantApplyEnabled, gig.MinRating, StatusOpen).Scan(&id)
	if err != nil {
		return Gig{}, err
	}
	if err := insertSlots(ctx, tx, id, gig.TimeSlots); err != nil {
		return Gig{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Gig{}, err
	}
	return s.Get(ctx, id)
}

func insertSlots(ctx context.Context, tx pgx.Tx, gigID string, slots []TimeSlot) error {
	for i, slot := range slots {
		if _, err := tx.Exec(ctx, `
      INSERT INTO gig_time_slots (gig_id, position, slot_date, start_time, end_time, workers_needed)
      VALUES ($1,$2,$3::date,$4,$5,$6)
    `, gigID, i, slot.Date, slot.StartTime, slot.EndTime, slot.WorkersNeeded); err != nil {
			return fmt.Errorf("insert slot %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Gig, error) {
	gig, err := scanGig(s.DB.QueryRow(ctx, `SELECT`+gigColumns+gigFrom+` WHERE g.id = $1`, id))
	if err != nil {
		return Gig{}, err
	}
	slots, err := s.loadSlots(ctx, []string{id})
	if err != nil {
		return Gig{}, err
	}
	gig.TimeSlots = slots[id]
	return gig, nil
}

func (s *Store) loadSlots(ctx context.Context, gigIDs []string) (map[string][]TimeSlot, error) {
	out := make(map[string][]TimeSlot, len(gigIDs))
	if len(gigIDs) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT gig_id, id, slot_date::text, start_time, end_time, workers_needed, workers_hired
    FROM gig_time_slots
    WHERE gig_id = ANY($1::uuid[])
    ORDER BY gig_id, position
  `, gigIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var gigID string
		var slot TimeSlot
		if err := rows.Scan(&gigID, &slot.ID, &slot.Date, &slot.StartTime, &slot.EndTime, &slot.WorkersNeeded, &slot.WorkersHired); err != nil {
			return nil, err
		}
		out[gigID] = append(out[gigID], slot)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, gig Gig, replaceSlots bool) (Gig, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Gig{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    UPDATE gigs
    SET title = $2, description = $3, category = $4, job_type = $5, pay_amount = $6, rate_type = $7,
        address = $8, city = $9, lat = $10, lng = $11, required_skills = $12,
        instant_apply_enabled = $13, min_rating = $14, updated_at = now()
    WHERE id = $1 AND status = 'open'
  `, gig.ID, gig.Title, gig.Description, gig.Category, gig.JobType, gig.PayRate.Amount, gig.PayRate.RateType,
		gig.Location.Address, gig.Location.City, gig.Location.Lat, gig.Location.Lng, nonNil(gig.RequiredSkills),
		gig.InstantApplyEnabled, gig.MinRating)
	if err != nil {
		return Gig{}, err
	}
	if tag.RowsAffected() == 0 {
		return Gig{}, ErrNotEditable
	}
	if replaceSlots {
		var hired int
		if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(workers_hired), 0) FROM gig_time_slots WHERE gig_id = $1`, gig.ID).Scan(&hired); err != nil {
			return Gig{}, err
		}
		if hired > 0 {
			return Gig{}, ErrNotEditable
		}
		if _, err := tx.Exec(ctx, `DELETE FROM gig_time_slots WHERE gig_id = $1`, gig.ID); err != nil {
			return Gig{}, err
		}
		if err := insertSlots(ctx, tx, gig.ID, gig.TimeSlots); err != nil {
			return Gig{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Gig{}, err
	}
	return s.Get(ctx, gig.ID)
}

func (s *Store) Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]Gig, int, error) {
	where := []string{"1=1"}
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("g.status = $%d", filter.Status)
	}
	if filter.EmployerID != "" {
		add("g.employer_id = $%d", filter.EmployerID)
	}
	if filter.Category != "" {
		add("lower(g.category) = lower($%d)", filter.Category)
	}
	if filter.JobType != "" {
		add("g.job_type = $%d", filter.JobType)
	}
	if filter.RateType != "" {
		add("g.rate_type = $%d", filter.RateType)
	}
	if filter.MinRate > 0 {
		add("g.pay_amount >= $%d", filter.MinRate)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		add("(lower(g.title) LIKE $%[1]d OR lower(g.description) LIKE $%[1]d)", "%"+strings.ToLower(q)+"%")
	}
	if box := filter.Box; box != nil {
		add("g.lat >= $%d", box.MinLat)
		add("g.lat <= $%d", box.MaxLat)
		args = append(args, box.MinLng, box.MaxLng)
		where = append(where, box.LngCondition("g.lng", len(args)-1, len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM gigs g WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT` + gigColumns + gigFrom + ` WHERE ` + clause + ` ORDER BY g.created_at DESC`
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Gig
	var ids []string
	for rows.Next() {
		g, err := scanGig(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, g)
		ids = append(ids, g.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	slots, err := s.loadSlots(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].TimeSlots = slots[out[i].ID]
	}
	return out, total, nil
}

func (s *Store) SetStatus(ctx context.Context, id, to string, from []string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE gigs SET status = $2, updated_at = now()
    WHERE id = $1 AND status = ANY($3)
  `, id, to, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrInvalid(ctx, id)
	}
	return nil
}

// Cancel rejects pending applications and returns every applicant that was pending or accepted.
func (s *Store) Cancel(ctx context.Context, id string, from []string) ([]string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    UPDATE gigs SET status = 'cancelled', updated_at = now()
    WHERE id = $1 AND status = ANY($2)
  `, id, from)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, s.missingOrInvalid(ctx, id)
	}

	rows, err := tx.Query(ctx, `
    SELECT user_id FROM gig_applications
    WHERE gig_id = $1 AND status IN ('pending', 'accepted')
  `, id)
	if err != nil {
		return nil, err
	}
	var applicants []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			rows.Close()
			return nil, err
		}
		applicants = append(applicants, userID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
    UPDATE gig_applications
    SET status = 'rejected', employer_note = 'gig cancelled', decided_at = now(), updated_at = now()
    WHERE gig_id = $1 AND status = 'pending'
  `, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return applicants, nil
}

// ExpireStale expires open gigs whose last slot ended before cutoff. Overnight slots end the next day.
func (s *Store) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE gigs g SET status = 'expired', updated_at = now()
    WHERE g.status = 'open'
      AND EXISTS (SELECT 1 FROM gig_time_slots t WHERE t.gig_id = g.id)
      AND (
        SELECT MAX(t.slot_date + t.end_time::time
          + CASE WHEN t.end_time::time <= t.start_time::time THEN interval '1 day' ELSE interval '0' END)
        FROM gig_time_slots t WHERE t.gig_id = g.id
      ) < $1::timestamp
  `, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) missingOrInvalid(ctx context.Context, id string) error {
	var exists bool
	if err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gigs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
