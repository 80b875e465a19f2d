package usershandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickshift/internal/domain/audit"
	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/users"
	"quickshift/internal/platform/payments"
	"quickshift/internal/transport/http/middleware"
)

type fakeService struct {
	err          error
	updated      users.UpdateInput
	anonymized   string
	onboardURLs  []string
	earningLimit int
}

func (f *fakeService) Get(_ context.Context, id string) (users.User, error) {
	return users.User{ID: id, FirstName: "Ana"}, f.err
}
func (f *fakeService) PublicProfile(_ context.Context, id string) (users.PublicProfile, error) {
	return users.PublicProfile{ID: id, FirstName: "Ana", LastInitial: "L"}, f.err
}
func (f *fakeService) Update(_ context.Context, id string, in users.UpdateInput) (users.User, error) {
	f.updated = in
	u := users.User{ID: id}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	return u, f.err
}
func (f *fakeService) Anonymize(_ context.Context, id string) error {
	f.anonymized = id
	return f.err
}
func (f *fakeService) StartOnboarding(_ context.Context, _ string, refreshURL, returnURL string) (string, error) {
	f.onboardURLs = []string{refreshURL, returnURL}
	return "https://connect.stripe.com/setup/abc", f.err
}
func (f *fakeService) RefreshPayoutStatus(context.Context, string) (users.PayoutStatus, error) {
	return users.PayoutStatus{AccountID: "acct_1", PayoutsEnabled: true}, f.err
}
func (f *fakeService) Earnings(_ context.Context, _ string, limit, _ int) ([]users.EarningLine, int, users.EarningsSummary, error) {
	f.earningLimit = limit
	return []users.EarningLine{{CompletionID: "c1", Amount: 120}}, 7, users.EarningsSummary{Paid: 120, Gigs: 1}, f.err
}

type fakeAudit struct {
	entries []audit.Entry
}

func (f *fakeAudit) Record(_ context.Context, e audit.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func newRouter(t *testing.T, svc *fakeService, rec *fakeAudit, user *auth.UserContext) http.Handler {
	t.Helper()
	authz, err := auth.NewAuthorizer()
	require.NoError(t, err)
	var recorder AuditRecorder
	if rec != nil {
		recorder = rec
	}
	h := NewHandler(svc, authz, recorder, "https://app.example.com/")
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
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

var worker = &auth.UserContext{SubjectID: "u1", Role: auth.RoleUser}

func TestPublicProfileIsAnonymous(t *testing.T) {
	svc := &fakeService{}
	rec := serve(newRouter(t, svc, nil, nil), http.MethodGet, "/users/u7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lastInitial":"L"`)

	svc.err = users.ErrNotFound
	rec = serve(newRouter(t, svc, nil, nil), http.MethodGet, "/users/u7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMeRoutesAreForUsersOnly(t *testing.T) {
	svc := &fakeService{}
	rec := serve(newRouter(t, svc, nil, nil), http.MethodGet, "/users/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(newRouter(t, svc, nil, &auth.UserContext{SubjectID: "e1", Role: auth.RoleEmployer}), http.MethodGet, "/users/me", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(newRouter(t, svc, nil, worker), http.MethodGet, "/users/me", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"u1"`)
}

func TestUpdateProfile(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(t, svc, nil, worker)

	rec := serve(router, http.MethodPatch, "/users/me", `{"bio":"Barista","skills":["coffee"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"coffee"}, svc.updated.Skills)
	assert.Nil(t, svc.updated.FirstName)

	rec = serve(router, http.MethodPatch, "/users/me", `{"firstName":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))

	svc.err = users.ErrInvalidLocation
	rec = serve(router, http.MethodPatch, "/users/me", `{"location":{"lat":123,"lng":0}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAnonymizesAndAudits(t *testing.T) {
	svc := &fakeService{}
	trail := &fakeAudit{}
	rec := serve(newRouter(t, svc, trail, worker), http.MethodDelete, "/users/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", svc.anonymized)
	require.Len(t, trail.entries, 1)
	assert.Equal(t, audit.ActionUserAnonymize, trail.entries[0].Action)
	assert.Equal(t, "u1", trail.entries[0].EntityID)
}

func TestOnboardingLinks(t *testing.T) {
	svc := &fakeService{}
	rec := serve(newRouter(t, svc, nil, worker), http.MethodPost, "/users/me/stripe/onboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"https://app.example.com/payouts/refresh", "https://app.example.com/payouts/complete"}, svc.onboardURLs)
	assert.Contains(t, rec.Body.String(), "connect.stripe.com")

	svc.err = payments.ErrDisabled
	rec = serve(newRouter(t, svc, nil, worker), http.MethodPost, "/users/me/stripe/onboard", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	svc.err = users.ErrNoPayoutAccount
	rec = serve(newRouter(t, svc, nil, worker), http.MethodGet, "/users/me/stripe/status", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "payout_account_missing", errorCode(t, rec))
}

func TestEarningsPaginates(t *testing.T) {
	svc := &fakeService{}
	rec := serve(newRouter(t, svc, nil, worker), http.MethodGet, "/users/me/earnings?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, 5, svc.earningLimit)
	assert.Contains(t, rec.Body.String(), `"summary":{"paid":120`)
}
