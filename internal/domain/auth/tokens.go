package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenService issues short lived access JWTs paired with rotating opaque refresh tokens.
// Each login starts a token family; presenting an already rotated token revokes the family.
type TokenService struct {
	store      TokenStore
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(store TokenStore, secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		store:      store,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *TokenService) Issue(ctx context.Context, subject UserContext, meta ClientMeta) (TokenPair, error) {
	return s.issue(ctx, subject, uuid.NewString(), "", meta)
}

func (s *TokenService) Refresh(ctx context.Context, raw string, meta ClientMeta) (TokenPair, UserContext, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TokenPair{}, UserContext{}, ErrInvalidRefreshToken
	}
	current, err := s.store.RefreshTokenByHash(ctx, HashToken(raw))
	if err != nil {
		return TokenPair{}, UserContext{}, err
	}
	if current.RevokedAt != nil {
		if current.ReplacedBy != "" {
			slog.Warn("refresh token reuse detected", "subjectId", current.SubjectID, "familyId", current.FamilyID)
			if err := s.store.RevokeFamily(ctx, current.FamilyID); err != nil {
				slog.Warn("revoke token family failed", "familyId", current.FamilyID, "err", err)
			}
			return TokenPair{}, UserContext{}, ErrRefreshTokenReused
		}
		return TokenPair{}, UserContext{}, ErrInvalidRefreshToken
	}
	if !s.now().Before(current.ExpiresAt) {
		return TokenPair{}, UserContext{}, ErrRefreshTokenExpired
	}

	creds, err := s.store.CredentialsByID(ctx, current.Role, current.SubjectID)
	if errors.Is(err, ErrNotFound) {
		return TokenPair{}, UserContext{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return TokenPair{}, UserContext{}, err
	}
	if creds.Status != StatusActive {
		_ = s.store.RevokeFamily(ctx, current.FamilyID)
		return TokenPair{}, UserContext{}, ErrAccountInactive
	}

	subject := UserContext{SubjectID: current.SubjectID, Role: current.Role, AdminRole: creds.AdminRole}
	pair, err := s.issue(ctx, subject, current.FamilyID, current.ID, meta)
	if errors.Is(err, ErrRefreshTokenReused) {
		_ = s.store.RevokeFamily(ctx, current.FamilyID)
	}
	if err != nil {
		return TokenPair{}, UserContext{}, err
	}
	return pair, subject, nil
}

func (s *TokenService) issue(ctx context.Context, subject UserContext, familyID, previousID string, meta ClientMeta) (TokenPair, error) {
	raw, err := GenerateOpaqueToken()
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	record := RefreshToken{
		ID:        uuid.NewString(),
		FamilyID:  familyID,
		SubjectID: subject.SubjectID,
		Role:      subject.Role,
		AdminRole: subject.AdminRole,
		TokenHash: HashToken(raw),
		ExpiresAt: s.now().Add(s.refreshTTL),
		UserAgent: truncate(meta.UserAgent, 255),
		IP:        meta.IP,
	}
	if previousID == "" {
		err = s.store.CreateRefreshToken(ctx, record)
	} else {
		err = s.store.RotateRefreshToken(ctx, previousID, record)
	}
	if err != nil {
		return TokenPair{}, err
	}

	access, err := GenerateToken(s.secret, Claims{
		SubjectID: subject.SubjectID,
		Role:      subject.Role,
		AdminRole: subject.AdminRole,
		SessionID: record.ID,
	}, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// Revoke invalidates the presented refresh token. Unknown tokens are ignored.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	current, err := s.store.RefreshTokenByHash(ctx, HashToken(strings.TrimSpace(raw)))
	if errors.Is(err, ErrInvalidRefreshToken) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.store.RevokeRefreshToken(ctx, current.ID)
}

func (s *TokenService) RevokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.RevokeRefreshToken(ctx, sessionID)
}

func (s *TokenService) RevokeSubject(ctx context.Context, subjectID string) error {
	return s.store.RevokeSubjectTokens(ctx, subjectID)
}

func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredRefreshTokens(ctx, s.now())
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
