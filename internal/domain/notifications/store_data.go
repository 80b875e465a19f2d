package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"quickshift/internal/domain/gigs"
	"quickshift/internal/platform/geo"
)

func (s *Store) CreateNotification(ctx context.Context, n Notification) (Notification, error) {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return Notification{}, err
	}
	err = s.DB.QueryRow(ctx, `
    INSERT INTO notifications (recipient_id, recipient_role, type, title, body, data)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id, created_at
  `, n.RecipientID, n.RecipientRole, n.Type, n.Title, n.Body, data).Scan(&n.ID, &n.CreatedAt)
	return n, err
}

func (s *Store) Contact(ctx context.Context, recipient Recipient) (Contact, error) {
	var c Contact
	var err error
	switch recipient.Role {
	case RoleEmployer:
		c.NotifyEmail, c.NotifyInApp = true, true
		err = s.DB.QueryRow(ctx, `
      SELECT email, company_name FROM employers WHERE id = $1 AND status = 'active'
    `, recipient.ID).Scan(&c.Email, &c.Name)
	default:
		err = s.DB.QueryRow(ctx, `
      SELECT email, first_name, notify_email, notify_in_app FROM users WHERE id = $1 AND status = 'active'
    `, recipient.ID).Scan(&c.Email, &c.Name, &c.NotifyEmail, &c.NotifyInApp)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return c, err
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	where := "recipient_id = $1"
	if unreadOnly {
		where += " AND read_at IS NULL"
	}
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications WHERE "+where, recipientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
    SELECT id, recipient_id, recipient_role, type, title, body, data, read_at, created_at
    FROM notifications
    WHERE %s
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, where), recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var raw []byte
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.RecipientRole, &n.Type, &n.Title, &n.Body, &raw, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &n.Data)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (s *Store) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications WHERE recipient_id = $1 AND read_at IS NULL", recipientID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, now())
    WHERE recipient_id = $1 AND id = $2
  `, recipientID, notificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now() WHERE recipient_id = $1 AND read_at IS NULL
  `, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Delete(ctx context.Context, recipientID, notificationID string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM notifications WHERE recipient_id = $1 AND id = $2`, recipientID, notificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MatchCandidates narrows active users by preferences in SQL. When box is set, only users with
// coordinates inside it are returned; the exact radius check happens in Go.
func (s *Store) MatchCandidates(ctx context.Context, gig gigs.Gig, box *geo.BoundingBox, limit int) ([]Candidate, error) {
	query := `
    SELECT id, email, first_name, address, city, lat, lng,
           pref_categories, pref_job_types, pref_min_hourly_rate, pref_max_distance_km, notify_email, notify_in_app
    FROM users
    WHERE status = 'active'
      AND (notify_email OR notify_in_app)
      AND (cardinality(pref_categories) = 0 OR $1 = ANY(pref_categories))
      AND (cardinality(pref_job_types) = 0 OR $2 = ANY(pref_job_types))
      AND ($3 <> 'hourly' OR pref_min_hourly_rate <= $4)`
	args := []any{gig.Category, gig.JobType, gig.PayRate.RateType, gig.PayRate.Amount}
	if box != nil {
		args = append(args, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
		query += `
      AND lat BETWEEN $5 AND $6 AND ` + box.LngCondition("lng", 7, 8)
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Candidate
	for rows.Next() {
		var c Candidate
		p := &c.Preferences
		if err := rows.Scan(&c.ID, &c.Email, &c.FirstName, &c.Location.Address, &c.Location.City, &c.Location.Lat, &c.Location.Lng,
			&p.Categories, &p.JobTypes, &p.MinHourlyRate, &p.MaxDistanceKm, &p.NotifyEmail, &p.NotifyInApp); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
