package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quickshift/internal/domain/auth"
	"quickshift/internal/platform/config"
)

// Seed makes sure the configured super admin exists. It never overwrites an existing account.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	email := strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail))
	if email == "" || cfg.SeedAdminPassword == "" {
		slog.Info("seed admin skipped, credentials not configured")
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM admins WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `
    INSERT INTO admins (email, password_hash, name, role)
    VALUES ($1,$2,$3,$4)
  `, email, hash, cfg.SeedAdminName, auth.AdminRoleSuper); err != nil {
		return err
	}
	slog.Info("seed admin created", "email", email)
	return nil
}
