package auth

import (
	"context"
	"time"
)

type StoreAPI interface {
	FindCredentials(ctx context.Context, role, email string) (Credentials, error)
	CredentialsByID(ctx context.Context, role, id string) (Credentials, error)
	UpdateLastLogin(ctx context.Context, role, id string) error
	UpdatePassword(ctx context.Context, role, id, hash string) error
	CreatePasswordReset(ctx context.Context, subjectID, role, tokenHash string, expires time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (string, string, error)
	UpdateMFASecret(ctx context.Context, adminID string, secretEnc []byte) error
	MFASecret(ctx context.Context, adminID string) ([]byte, error)
	SetMFAEnabled(ctx context.Context, adminID string, enabled bool) error
}

type TokenStore interface {
	CredentialsByID(ctx context.Context, role, id string) (Credentials, error)
	CreateRefreshToken(ctx context.Context, token RefreshToken) error
	RefreshTokenByHash(ctx context.Context, tokenHash string) (RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID string, next RefreshToken) error
	RevokeRefreshToken(ctx context.Context, id string) error
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeSubjectTokens(ctx context.Context, subjectID string) error
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}
