package employers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"quickshift/internal/domain/auth"
	"quickshift/internal/platform/payments"
)

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

func (s *Service) Register(ctx context.Context, in RegisterInput) (Employer, error) {
	email := auth.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return Employer{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	company := strings.TrimSpace(in.CompanyName)
	if company == "" {
		return Employer{}, fmt.Errorf("%w: companyName is required", ErrInvalidInput)
	}
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		return Employer{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Employer{}, err
	}
	return s.store.Create(ctx, Employer{
		Email:        email,
		PasswordHash: hash,
		CompanyName:  company,
		ContactName:  strings.TrimSpace(in.ContactName),
		Phone:        strings.TrimSpace(in.Phone),
	})
}

func (s *Service) Get(ctx context.Context, id string) (Employer, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) PublicProfile(ctx context.Context, id string) (PublicProfile, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return PublicProfile{}, err
	}
	return e.Public(), nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Employer, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return Employer{}, err
	}
	if e.Status != auth.StatusActive {
		return Employer{}, ErrNotActive
	}
	if in.CompanyName != nil {
		name := strings.TrimSpace(*in.CompanyName)
		if name == "" {
			return Employer{}, fmt.Errorf("%w: companyName must not be empty", ErrInvalidInput)
		}
		e.CompanyName = name
	}
	setTrimmed(&e.ContactName, in.ContactName)
	setTrimmed(&e.Phone, in.Phone)
	setTrimmed(&e.Industry, in.Industry)
	setTrimmed(&e.Description, in.Description)
	if in.Website != nil {
		site := strings.TrimSpace(*in.Website)
		if site != "" {
			u, err := url.Parse(site)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return Employer{}, fmt.Errorf("%w: website must be an http(s) URL", ErrInvalidInput)
			}
		}
		e.Website = site
	}
	if in.Location != nil {
		if !in.Location.Valid() {
			return Employer{}, ErrInvalidLocation
		}
		e.Location = *in.Location
	}
	return s.store.Update(ctx, e)
}

func setTrimmed(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Employer, int, error) {
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
			slog.Warn("revoke sessions after suspend failed", "employerId", id, "err", err)
		}
	}
	return nil
}

// EnsureStripeCustomer lazily creates the Stripe customer the employer's payments are attached to.
func (s *Service) EnsureStripeCustomer(ctx context.Context, id string) (string, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if e.StripeCustomerID != "" {
		return e.StripeCustomerID, nil
	}
	customerID, err := s.gateway.CreateCustomer(ctx, e.Email, e.CompanyName)
	if err != nil {
		return "", err
	}
	if err := s.store.SetStripeCustomer(ctx, id, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}

func (s *Service) Dashboard(ctx context.Context, id string) (Dashboard, error) {
	return s.store.Dashboard(ctx, id)
}
