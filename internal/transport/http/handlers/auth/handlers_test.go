package authhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickshift/internal/domain/admins"
	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/employers"
	"quickshift/internal/domain/notifications"
	"quickshift/internal/domain/users"
	"quickshift/internal/transport/http/middleware"
)

type fakeAuth struct {
	creds    auth.Credentials
	err      error
	reset    auth.PasswordReset
	resetErr error
	gotRole  string
}

func (f *fakeAuth) Authenticate(_ context.Context, role, _, _, _ string) (auth.Credentials, error) {
	f.gotRole = role
	return f.creds, f.err
}
func (f *fakeAuth) ChangePassword(context.Context, auth.UserContext, string, string) error {
	return f.err
}
func (f *fakeAuth) RequestPasswordReset(_ context.Context, role, _ string) (auth.PasswordReset, error) {
	f.gotRole = role
	return f.reset, f.resetErr
}
func (f *fakeAuth) ResetPassword(context.Context, string, string) error { return f.err }
func (f *fakeAuth) SetupMFA(_ context.Context, adminID, _ string) (string, string, error) {
	return "SECRET", "otpauth://totp/QuickShift:" + adminID, f.err
}
func (f *fakeAuth) EnableMFA(context.Context, string, string) error  { return f.err }
func (f *fakeAuth) DisableMFA(context.Context, string, string) error { return f.err }

type fakeTokens struct {
	issued     []auth.UserContext
	refreshErr error
	revoked    []string
}

func (f *fakeTokens) Issue(_ context.Context, subject auth.UserContext, _ auth.ClientMeta) (auth.TokenPair, error) {
	f.issued = append(f.issued, subject)
	return auth.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", ExpiresIn: 900}, nil
}
func (f *fakeTokens) Refresh(context.Context, string, auth.ClientMeta) (auth.TokenPair, auth.UserContext, error) {
	if f.refreshErr != nil {
		return auth.TokenPair{}, auth.UserContext{}, f.refreshErr
	}
	return auth.TokenPair{AccessToken: "access2", RefreshToken: "refresh2"}, auth.UserContext{SubjectID: "u1", Role: auth.RoleUser}, nil
}
func (f *fakeTokens) Revoke(_ context.Context, raw string) error {
	f.revoked = append(f.revoked, raw)
	return nil
}
func (f *fakeTokens) RevokeSession(_ context.Context, id string) error {
	f.revoked = append(f.revoked, "session:"+id)
	return nil
}

type fakeUsers struct {
	err error
}

func (f *fakeUsers) Register(_ context.Context, in users.RegisterInput) (users.User, error) {
	if f.err != nil {
		return users.User{}, f.err
	}
	return users.User{ID: "u1", Email: in.Email, FirstName: in.FirstName}, nil
}
func (f *fakeUsers) Get(_ context.Context, id string) (users.User, error) {
	return users.User{ID: id, Email: "ana@example.com", FirstName: "Ana"}, f.err
}

type fakeEmployers struct{}

func (fakeEmployers) Register(_ context.Context, in employers.RegisterInput) (employers.Employer, error) {
	return employers.Employer{ID: "e1", Email: in.Email, CompanyName: in.CompanyName}, nil
}
func (fakeEmployers) Get(_ context.Context, id string) (employers.Employer, error) {
	return employers.Employer{ID: id, CompanyName: "Acme"}, nil
}

type fakeAdmins struct{}

func (fakeAdmins) Get(_ context.Context, id string) (admins.Admin, error) {
	return admins.Admin{ID: id, Email: "root@example.com", Name: "Root"}, nil
}

type sentMail struct {
	to  string
	msg notifications.Email
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) SendEmail(_ context.Context, to string, msg notifications.Email) error {
	f.sent = append(f.sent, sentMail{to: to, msg: msg})
	return nil
}

type testEnv struct {
	router http.Handler
	auth   *fakeAuth
	tokens *fakeTokens
	users  *fakeUsers
	mail   *fakeMailer
}

func newEnv(user *auth.UserContext) testEnv {
	env := testEnv{auth: &fakeAuth{}, tokens: &fakeTokens{}, users: &fakeUsers{}, mail: &fakeMailer{}}
	h := NewHandler(env.auth, env.tokens, env.users, fakeEmployers{}, fakeAdmins{}, env.mail, "https://app.example.com")
	r := chi.NewRouter()
	if user != nil {
		u := *user
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), u)))
			})
		})
	}
	h.RegisterRoutes(r)
	env.router = r
	return env
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestRegisterUserIssuesTokensAndSendsWelcome(t *testing.T) {
	env := newEnv(nil)
	rec, body := do(t, env.router, http.MethodPost, "/auth/users/register",
		`{"email":"ana@example.com","password":"Stronger123","firstName":"Ana","lastName":"Lopez"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var data struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		Role         string `json:"role"`
		Profile      struct {
			ID string `json:"id"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "access", data.AccessToken)
	assert.Equal(t, "refresh", data.RefreshToken)
	assert.Equal(t, auth.RoleUser, data.Role)
	assert.Equal(t, "u1", data.Profile.ID)
	require.Len(t, env.mail.sent, 1)
	assert.Equal(t, "ana@example.com", env.mail.sent[0].to)
	assert.Equal(t, "Welcome to QuickShift", env.mail.sent[0].msg.Subject)
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "missing fields", body: `{"email":"nope"}`, wantCode: http.StatusBadRequest, wantErr: "validation_error"},
		{name: "unknown field", body: `{"email":"a@b.co","admin":true}`, wantCode: http.StatusBadRequest, wantErr: "invalid_payload"},
		{
			name:     "duplicate email",
			body:     `{"email":"ana@example.com","password":"Stronger123","firstName":"Ana","lastName":"Lopez"}`,
			err:      users.ErrEmailTaken,
			wantCode: http.StatusConflict,
			wantErr:  "email_taken",
		},
		{
			name:     "weak password",
			body:     `{"email":"ana@example.com","password":"weak","firstName":"Ana","lastName":"Lopez"}`,
			err:      auth.ErrWeakPassword,
			wantCode: http.StatusBadRequest,
			wantErr:  "weak_password",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			env := newEnv(nil)
			env.users.err = tc.err
			rec, body := do(t, env.router, http.MethodPost, "/auth/users/register", tc.body)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantErr, body.Error.Code)
			assert.Empty(t, env.tokens.issued)
		})
	}
}

func TestLoginMapsAuthErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "bad password", err: auth.ErrInvalidCredentials, wantCode: http.StatusUnauthorized, wantErr: "invalid_credentials"},
		{name: "mfa required", err: auth.ErrMFARequired, wantCode: http.StatusUnauthorized, wantErr: "mfa_required"},
		{name: "suspended", err: auth.ErrAccountInactive, wantCode: http.StatusForbidden, wantErr: "account_inactive"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			env := newEnv(nil)
			env.auth.err = tc.err
			rec, body := do(t, env.router, http.MethodPost, "/auth/admins/login", `{"email":"root@example.com","password":"x"}`)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantErr, body.Error.Code)
			assert.Equal(t, auth.RoleAdmin, env.auth.gotRole)
		})
	}
}

func TestLoginCarriesAdminRole(t *testing.T) {
	env := newEnv(nil)
	env.auth.creds = auth.Credentials{ID: "a1", Role: auth.RoleAdmin, AdminRole: auth.AdminRoleSuper}
	rec, _ := do(t, env.router, http.MethodPost, "/auth/admins/login", `{"email":"root@example.com","password":"x","mfaCode":"123456"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.tokens.issued, 1)
	assert.Equal(t, auth.AdminRoleSuper, env.tokens.issued[0].AdminRole)
}

func TestLoginRejectsMFACodeForUsers(t *testing.T) {
	env := newEnv(nil)
	rec, _ := do(t, env.router, http.MethodPost, "/auth/users/login", `{"email":"a@b.co","password":"x","mfaCode":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgotPasswordAlwaysSucceeds(t *testing.T) {
	env := newEnv(nil)
	rec, _ := do(t, env.router, http.MethodPost, "/auth/password/forgot", `{"email":"ghost@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.mail.sent)

	env.auth.reset = auth.PasswordReset{SubjectID: "u1", Role: auth.RoleUser, Token: "tok123", ExpiresAt: time.Now().Add(2 * time.Hour)}
	rec, _ = do(t, env.router, http.MethodPost, "/auth/password/forgot", `{"email":"ana@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.mail.sent, 1)
	assert.Contains(t, env.mail.sent[0].msg.Body, "https://app.example.com/reset-password?token=tok123")
	assert.Contains(t, env.mail.sent[0].msg.Body, "Hi Ana")
	assert.Equal(t, auth.RoleUser, env.auth.gotRole)

	env.auth.resetErr = assert.AnError
	rec, _ = do(t, env.router, http.MethodPost, "/auth/password/forgot", `{"email":"ana@example.com","role":"employer"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.RoleEmployer, env.auth.gotRole)
}

func TestRefreshReuseIsUnauthorized(t *testing.T) {
	env := newEnv(nil)
	env.tokens.refreshErr = auth.ErrRefreshTokenReused
	rec, body := do(t, env.router, http.MethodPost, "/auth/refresh", `{"refreshToken":"old"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_refresh_token", body.Error.Code)

	rec, _ = do(t, env.router, http.MethodPost, "/auth/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutRevokes(t *testing.T) {
	env := newEnv(&auth.UserContext{SubjectID: "u1", Role: auth.RoleUser, SessionID: "s1"})
	rec, _ := do(t, env.router, http.MethodPost, "/auth/logout", `{"refreshToken":"r1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, env.router, http.MethodPost, "/auth/logout", ``)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"r1", "session:s1"}, env.tokens.revoked)
}

func TestMeRequiresAuth(t *testing.T) {
	env := newEnv(nil)
	rec, _ := do(t, env.router, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env = newEnv(&auth.UserContext{SubjectID: "e9", Role: auth.RoleEmployer})
	rec, body := do(t, env.router, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(string(body.Data), `"companyName":"Acme"`))
}

func TestMFARoutesAreAdminOnly(t *testing.T) {
	env := newEnv(&auth.UserContext{SubjectID: "u1", Role: auth.RoleUser})
	rec, _ := do(t, env.router, http.MethodPost, "/auth/admins/mfa/setup", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env = newEnv(&auth.UserContext{SubjectID: "a1", Role: auth.RoleAdmin})
	rec, body := do(t, env.router, http.MethodPost, "/auth/admins/mfa/setup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), "otpauth://totp/QuickShift:a1")

	env.auth.err = auth.ErrMFAInvalid
	rec, body = do(t, env.router, http.MethodPost, "/auth/admins/mfa/enable", `{"code":"000000"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "mfa_invalid", body.Error.Code)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour-10*time.Second))
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "45 minutes", humanDuration(45*time.Minute))
}
