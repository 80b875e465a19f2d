package admins

import (
	"context"
	"fmt"
	"strings"

	"quickshift/internal/domain/auth"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Admin, error) {
	email := auth.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return Admin{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = auth.AdminRoleStandard
	}
	if !auth.ValidAdminRole(role) {
		return Admin{}, fmt.Errorf("%w: role must be admin or super_admin", ErrInvalidInput)
	}
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		return Admin{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Admin{}, err
	}
	return s.store.Create(ctx, email, hash, strings.TrimSpace(in.Name), role)
}

func (s *Service) Get(ctx context.Context, id string) (Admin, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Admin, int, error) {
	return s.store.List(ctx, limit, offset)
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	return s.store.Dashboard(ctx)
}
