package admins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickshift/internal/domain/auth"
)

type fakeStore struct {
	created []Admin
}

func (f *fakeStore) Create(_ context.Context, email, hash, name, role string) (Admin, error) {
	for _, a := range f.created {
		if a.Email == email {
			return Admin{}, ErrEmailTaken
		}
	}
	if hash == "" {
		return Admin{}, ErrInvalidInput
	}
	a := Admin{ID: "a1", Email: email, Name: name, Role: role, Status: auth.StatusActive}
	f.created = append(f.created, a)
	return a, nil
}

func (f *fakeStore) Get(context.Context, string) (Admin, error) { return Admin{}, ErrNotFound }

func (f *fakeStore) List(context.Context, int, int) ([]Admin, int, error) {
	return f.created, len(f.created), nil
}

func (f *fakeStore) Dashboard(context.Context) (Dashboard, error) { return Dashboard{}, nil }

func TestCreate(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{Email: "Ops@QuickShift.app", Password: "Password123", Name: "Ops"})
	require.NoError(t, err)
	assert.Equal(t, "ops@quickshift.app", a.Email)
	assert.Equal(t, auth.AdminRoleStandard, a.Role)

	tests := []struct {
		name  string
		input CreateInput
		want  error
	}{
		{name: "duplicate", input: CreateInput{Email: "ops@quickshift.app", Password: "Password123"}, want: ErrEmailTaken},
		{name: "bad role", input: CreateInput{Email: "x@quickshift.app", Password: "Password123", Role: "root"}, want: ErrInvalidInput},
		{name: "weak password", input: CreateInput{Email: "y@quickshift.app", Password: "password"}, want: auth.ErrWeakPassword},
		{name: "bad email", input: CreateInput{Email: "nobody", Password: "Password123"}, want: ErrInvalidInput},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
