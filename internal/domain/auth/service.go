package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	cryptoutil "quickshift/internal/platform/crypto"
)

const mfaIssuer = "QuickShift"

type Service struct {
	store    StoreAPI
	tokens   *TokenService
	crypto   *cryptoutil.Service
	resetTTL time.Duration
}

func NewService(store StoreAPI, tokens *TokenService, crypto *cryptoutil.Service, resetTTL time.Duration) *Service {
	if resetTTL <= 0 {
		resetTTL = 2 * time.Hour
	}
	return &Service{store: store, tokens: tokens, crypto: crypto, resetTTL: resetTTL}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks the password (and TOTP for admins with MFA on) and returns the account.
func (s *Service) Authenticate(ctx context.Context, role, email, password, mfaCode string) (Credentials, error) {
	if !ValidRole(role) {
		return Credentials{}, ErrUnknownRole
	}
	creds, err := s.store.FindCredentials(ctx, role, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return Credentials{}, ErrInvalidCredentials
	}
	if err != nil {
		return Credentials{}, err
	}
	if err := CheckPassword(creds.PasswordHash, password); err != nil {
		return Credentials{}, ErrInvalidCredentials
	}
	if creds.Status != StatusActive {
		return Credentials{}, ErrAccountInactive
	}
	if creds.MFAEnabled {
		if strings.TrimSpace(mfaCode) == "" {
			return Credentials{}, ErrMFARequired
		}
		secret, err := s.decryptSecret(creds.MFASecretEnc)
		if err != nil || secret == "" || !totp.Validate(mfaCode, secret) {
			return Credentials{}, ErrMFAInvalid
		}
	}
	if err := s.store.UpdateLastLogin(ctx, role, creds.ID); err != nil {
		slog.Warn("update last login failed", "role", role, "subjectId", creds.ID, "err", err)
	}
	return creds, nil
}

func (s *Service) ChangePassword(ctx context.Context, user UserContext, current, next string) error {
	creds, err := s.store.CredentialsByID(ctx, user.Role, user.SubjectID)
	if err != nil {
		return err
	}
	if err := CheckPassword(creds.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if err := ValidatePasswordStrength(next); err != nil {
		return err
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, user.Role, user.SubjectID, hash)
}

// RequestPasswordReset returns a zero PasswordReset when no active account matches so callers
// can respond identically either way.
func (s *Service) RequestPasswordReset(ctx context.Context, role, email string) (PasswordReset, error) {
	if !ValidRole(role) {
		return PasswordReset{}, ErrUnknownRole
	}
	creds, err := s.store.FindCredentials(ctx, role, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return PasswordReset{}, nil
	}
	if err != nil {
		return PasswordReset{}, err
	}
	if creds.Status != StatusActive {
		return PasswordReset{}, nil
	}
	token, err := GenerateOpaqueToken()
	if err != nil {
		return PasswordReset{}, err
	}
	expires := time.Now().Add(s.resetTTL)
	if err := s.store.CreatePasswordReset(ctx, creds.ID, role, HashToken(token), expires); err != nil {
		return PasswordReset{}, err
	}
	return PasswordReset{SubjectID: creds.ID, Role: role, Token: token, ExpiresAt: expires}, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	subjectID, role, err := s.store.ConsumePasswordReset(ctx, HashToken(strings.TrimSpace(token)))
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, role, subjectID, hash); err != nil {
		return err
	}
	if s.tokens != nil {
		if err := s.tokens.RevokeSubject(ctx, subjectID); err != nil {
			slog.Warn("revoke sessions after reset failed", "subjectId", subjectID, "err", err)
		}
	}
	return nil
}

func (s *Service) SetupMFA(ctx context.Context, adminID, accountName string) (string, string, error) {
	if s.crypto == nil || !s.crypto.Configured() {
		return "", "", ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp: %w", err)
	}
	encrypted, err := s.crypto.EncryptString(key.Secret())
	if err != nil {
		return "", "", fmt.Errorf("encrypt totp: %w", err)
	}
	if err := s.store.UpdateMFASecret(ctx, adminID, encrypted); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func (s *Service) EnableMFA(ctx context.Context, adminID, code string) error {
	return s.toggleMFA(ctx, adminID, code, true)
}

func (s *Service) DisableMFA(ctx context.Context, adminID, code string) error {
	return s.toggleMFA(ctx, adminID, code, false)
}

func (s *Service) toggleMFA(ctx context.Context, adminID, code string, enabled bool) error {
	if s.crypto == nil || !s.crypto.Configured() {
		return ErrMFAUnavailable
	}
	secretEnc, err := s.store.MFASecret(ctx, adminID)
	if err != nil {
		return err
	}
	if len(secretEnc) == 0 {
		return ErrMFANotConfigured
	}
	secret, err := s.decryptSecret(secretEnc)
	if err != nil {
		return ErrMFAInvalid
	}
	if !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return s.store.SetMFAEnabled(ctx, adminID, enabled)
}

func (s *Service) decryptSecret(secretEnc []byte) (string, error) {
	if s.crypto != nil && s.crypto.Configured() {
		return s.crypto.DecryptString(secretEnc)
	}
	return string(secretEnc), nil
}
