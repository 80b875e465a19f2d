package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quickshift/internal/domain/auth"
	"quickshift/internal/platform/payments"
)

const maxCoverLetter = 2000

// SessionRevoker ends every session of a subject.
type SessionRevoker interface {
	RevokeSubject(ctx context.Context, subjectID string) error
}

type Service struct {
	store    StoreAPI
	gateway  payments.Gateway
	sessions SessionRevoker
}

func NewService(store StoreAPI, gateway payments.Gateway, sessions SessionRevoker) *Service {
	return &Service{store: store, gateway: gateway, sessions: sessions}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	email := auth.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	return s.store.Create(ctx, User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
	})
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.Get(ctx, id)
}

// PublicProfile hides deleted accounts entirely.
func (s *Service) PublicProfile(ctx context.Context, id string) (PublicProfile, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return PublicProfile{}, err
	}
	if u.Status == auth.StatusDeleted {
		return PublicProfile{}, ErrNotFound
	}
	return u.Public(), nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if u.Status != auth.StatusActive {
		return User{}, ErrNotActive
	}
	if err := applyUpdate(&u, in); err != nil {
		return User{}, err
	}
	return s.store.Update(ctx, u)
}

func applyUpdate(u *User, in UpdateInput) error {
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Bio != nil {
		u.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Skills != nil {
		u.Skills = cleanList(in.Skills)
	}
	if in.Location != nil {
		if !in.Location.Valid() {
			return ErrInvalidLocation
		}
		u.Location = *in.Location
	}
	if in.Preferences != nil {
		p := *in.Preferences
		if p.MinHourlyRate < 0 || p.MaxDistanceKm < 0 {
			return fmt.Errorf("%w: preferences must not be negative", ErrInvalidInput)
		}
		p.Categories = cleanList(p.Categories)
		p.JobTypes = cleanList(p.JobTypes)
		u.Preferences = p
	}
	if in.InstantApply != nil {
		if len(in.InstantApply.CoverLetter) > maxCoverLetter {
			return fmt.Errorf("%w: cover letter too long", ErrInvalidInput)
		}
		u.InstantApply = *in.InstantApply
	}
	return nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]bool{}
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Anonymize implements account deletion: PII is scrubbed and every session ends.
func (s *Service) Anonymize(ctx context.Context, id string) error {
	if err := s.store.Anonymize(ctx, id, fmt.Sprintf("deleted+%s@quickshift.invalid", id)); err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeSubject(ctx, id); err != nil {
			slog.Warn("revoke sessions after anonymize failed", "userId", id, "err", err)
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]User, int, error) {
	return s.store.List(ctx, filter, limit, offset)
}

func (s *Service) SetStatus(ctx context.Context, id, status string) error {
	if status != auth.StatusActive && status != auth.StatusSuspended {
		return fmt.Errorf("%w: status", ErrInvalidInput)
	}
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		return err
	}
	if status == auth.StatusSuspended && s.sessions != nil {
		if err := s.sessions.RevokeSubject(ctx, id); err != nil {
			slog.Warn("revoke sessions after suspend failed", "userId", id, "err", err)
		}
	}
	return nil
}

// StartOnboarding creates the Express account on first use and returns a fresh onboarding link.
func (s *Service) StartOnboarding(ctx context.Context, id, refreshURL, returnURL string) (string, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if u.Status != auth.StatusActive {
		return "", ErrNotActive
	}
	accountID := u.StripeAccountID
	if accountID == "" {
		accountID, err = s.gateway.CreateConnectedAccount(ctx, u.Email)
		if err != nil {
			return "", err
		}
		if err := s.store.SetStripeAccount(ctx, id, accountID); err != nil {
			return "", err
		}
	}
	return s.gateway.CreateAccountLink(ctx, accountID, refreshURL, returnURL)
}

func (s *Service) RefreshPayoutStatus(ctx context.Context, id string) (PayoutStatus, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return PayoutStatus{}, err
	}
	if u.StripeAccountID == "" {
		return PayoutStatus{}, ErrNoPayoutAccount
	}
	acct, err := s.gateway.GetAccount(ctx, u.StripeAccountID)
	if err != nil {
		return PayoutStatus{}, err
	}
	if acct.PayoutsEnabled != u.PayoutsEnabled {
		if err := s.store.SetPayoutsEnabled(ctx, id, acct.PayoutsEnabled); err != nil {
			return PayoutStatus{}, err
		}
	}
	return PayoutStatus{
		AccountID:        acct.ID,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}, nil
}

// SyncPayoutsByAccount applies an account.updated webhook; it returns the owning user id.
func (s *Service) SyncPayoutsByAccount(ctx context.Context, accountID string, enabled bool) (string, error) {
	return s.store.SetPayoutsEnabledByAccount(ctx, accountID, enabled)
}

func (s *Service) Earnings(ctx context.Context, id string, limit, offset int) ([]EarningLine, int, EarningsSummary, error) {
	lines, total, err := s.store.ListEarnings(ctx, id, limit, offset)
	if err != nil {
		return nil, 0, EarningsSummary{}, err
	}
	summary, err := s.store.EarningsSummary(ctx, id)
	if err != nil {
		return nil, 0, EarningsSummary{}, err
	}
	return lines, total, summary, nil
}
