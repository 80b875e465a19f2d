package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Column sets are fixed per role so the table name never comes from input.
var credentialQueries = map[string]struct {
	byEmail   string
	byID      string
	lastLogin string
	password  string
}{
	RoleUser: {
		byEmail:   "SELECT id, '', password_hash, status, false, NULL::bytea FROM users WHERE email = $1",
		byID:      "SELECT id, '', password_hash, status, false, NULL::bytea FROM users WHERE id = $1",
		lastLogin: "UPDATE users SET last_login_at = now() WHERE id = $1",
		password:  "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2",
	},
	RoleEmployer: {
		byEmail:   "SELECT id, '', password_hash, status, false, NULL::bytea FROM employers WHERE email = $1",
		byID:      "SELECT id, '', password_hash, status, false, NULL::bytea FROM employers WHERE id = $1",
		lastLogin: "UPDATE employers SET last_login_at = now() WHERE id = $1",
		password:  "UPDATE employers SET password_hash = $1, updated_at = now() WHERE id = $2",
	},
	RoleAdmin: {
		byEmail:   "SELECT id, role, password_hash, status, mfa_enabled, mfa_secret_enc FROM admins WHERE email = $1",
		byID:      "SELECT id, role, password_hash, status, mfa_enabled, mfa_secret_enc FROM admins WHERE id = $1",
		lastLogin: "UPDATE admins SET last_login_at = now() WHERE id = $1",
		password:  "UPDATE admins SET password_hash = $1 WHERE id = $2",
	},
}

func (s *Store) FindCredentials(ctx context.Context, role, email string) (Credentials, error) {
	q, ok := credentialQueries[role]
	if !ok {
		return Credentials{}, ErrUnknownRole
	}
	return scanCredentials(s.DB.QueryRow(ctx, q.byEmail, email), role)
}

func (s *Store) CredentialsByID(ctx context.Context, role, id string) (Credentials, error) {
	q, ok := credentialQueries[role]
	if !ok {
		return Credentials{}, ErrUnknownRole
	}
	return scanCredentials(s.DB.QueryRow(ctx, q.byID, id), role)
}

func scanCredentials(row pgx.Row, role string) (Credentials, error) {
	out := Credentials{Role: role}
	err := row.Scan(&out.ID, &out.AdminRole, &out.PasswordHash, &out.Status, &out.MFAEnabled, &out.MFASecretEnc)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credentials{}, ErrNotFound
	}
	return out, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, role, id string) error {
	q, ok := credentialQueries[role]
	if !ok {
		return ErrUnknownRole
	}
	_, err := s.DB.Exec(ctx, q.lastLogin, id)
	return err
}

func (s *Store) UpdatePassword(ctx context.Context, role, id, hash string) error {
	q, ok := credentialQueries[role]
	if !ok {
		return ErrUnknownRole
	}
	_, err := s.DB.Exec(ctx, q.password, hash, id)
	return err
}

func (s *Store) CreatePasswordReset(ctx context.Context, subjectID, role, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO password_resets (subject_id, role, token_hash, expires_at)
    VALUES ($1,$2,$3,$4)
  `, subjectID, role, tokenHash, expires)
	return err
}

func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash string) (string, string, error) {
	var subjectID, role string
	err := s.DB.QueryRow(ctx, `
    UPDATE password_resets SET used_at = now()
    WHERE token_hash = $1 AND expires_at > now() AND used_at IS NULL
    RETURNING subject_id, role
  `, tokenHash).Scan(&subjectID, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrInvalidResetToken
	}
	return subjectID, role, err
}

func (s *Store) UpdateMFASecret(ctx context.Context, adminID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE admins SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2", secretEnc, adminID)
	return err
}

func (s *Store) MFASecret(ctx context.Context, adminID string) ([]byte, error) {
	var secretEnc []byte
	err := s.DB.QueryRow(ctx, "SELECT mfa_secret_enc FROM admins WHERE id = $1", adminID).Scan(&secretEnc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return secretEnc, err
}

func (s *Store) SetMFAEnabled(ctx context.Context, adminID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE admins SET mfa_enabled = $1 WHERE id = $2", enabled, adminID)
	return err
}

func (s *Store) CreateRefreshToken(ctx context.Context, token RefreshToken) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO refresh_tokens (id, family_id, subject_id, role, admin_role, token_hash, expires_at, user_agent, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, token.ID, token.FamilyID, token.SubjectID, token.Role, token.AdminRole, token.TokenHash, token.ExpiresAt, token.UserAgent, token.IP)
	return err
}

func (s *Store) RefreshTokenByHash(ctx context.Context, tokenHash string) (RefreshToken, error) {
	var out RefreshToken
	var replacedBy *string
	err := s.DB.QueryRow(ctx, `
    SELECT id, family_id, subject_id, role, admin_role, token_hash, expires_at, revoked_at, replaced_by::text, user_agent, ip, created_at
    FROM refresh_tokens
    WHERE token_hash = $1
  `, tokenHash).Scan(&out.ID, &out.FamilyID, &out.SubjectID, &out.Role, &out.AdminRole, &out.TokenHash, &out.ExpiresAt, &out.RevokedAt, &replacedBy, &out.UserAgent, &out.IP, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshToken{}, ErrInvalidRefreshToken
	}
	if replacedBy != nil {
		out.ReplacedBy = *replacedBy
	}
	return out, err
}

func (s *Store) RotateRefreshToken(ctx context.Context, oldID string, next RefreshToken) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    UPDATE refresh_tokens SET revoked_at = now(), replaced_by = $1
    WHERE id = $2 AND revoked_at IS NULL
  `, next.ID, oldID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRefreshTokenReused
	}
	if _, err := tx.Exec(ctx, `
    INSERT INTO refresh_tokens (id, family_id, subject_id, role, admin_role, token_hash, expires_at, user_agent, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, next.ID, next.FamilyID, next.SubjectID, next.Role, next.AdminRole, next.TokenHash, next.ExpiresAt, next.UserAgent, next.IP); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, "UPDATE refresh_tokens SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL", id)
	return err
}

func (s *Store) RevokeFamily(ctx context.Context, familyID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE refresh_tokens SET revoked_at = now() WHERE family_id = $1 AND revoked_at IS NULL", familyID)
	return err
}

func (s *Store) RevokeSubjectTokens(ctx context.Context, subjectID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE refresh_tokens SET revoked_at = now() WHERE subject_id = $1 AND revoked_at IS NULL", subjectID)
	return err
}

func (s *Store) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM refresh_tokens WHERE expires_at < $1", before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
