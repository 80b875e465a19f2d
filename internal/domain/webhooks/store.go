package webhooks

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Claim(ctx context.Context, eventID, eventType string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO webhook_events (id, type) VALUES ($1, $2)
    ON CONFLICT (id) DO NOTHING
  `, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkProcessed(ctx context.Context, eventID string) error {
	_, err := s.DB.Exec(ctx, `UPDATE webhook_events SET processed_at = now() WHERE id = $1`, eventID)
	return err
}

func (s *Store) Release(ctx context.Context, eventID string) error {
	_, err := s.DB.Exec(ctx, `DELETE FROM webhook_events WHERE id = $1 AND processed_at IS NULL`, eventID)
	return err
}
