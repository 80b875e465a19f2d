package employershandler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/employers"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/transport/http/middleware"
)

type fakeService struct {
	err     error
	updated employers.UpdateInput
}

func (f *fakeService) Get(_ context.Context, id string) (employers.Employer, error) {
	return employers.Employer{ID: id, CompanyName: "Acme", StripeCustomerID: "cus_secret"}, f.err
}
func (f *fakeService) PublicProfile(_ context.Context, id string) (employers.PublicProfile, error) {
	return employers.PublicProfile{ID: id, CompanyName: "Acme"}, f.err
}
func (f *fakeService) Update(_ context.Context, id string, in employers.UpdateInput) (employers.Employer, error) {
	f.updated = in
	return employers.Employer{ID: id}, f.err
}
func (f *fakeService) Dashboard(context.Context, string) (employers.Dashboard, error) {
	return employers.Dashboard{GigsByStatus: map[string]int{gigs.StatusOpen: 2}, TotalSpend: 310.5}, f.err
}

type fakeGigs struct {
	employerID string
	status     string
}

func (f *fakeGigs) ListByEmployer(_ context.Context, employerID, status string, _, _ int) ([]gigs.Gig, int, error) {
	f.employerID = employerID
	f.status = status
	return nil, 0, nil
}

func newRouter(svc *fakeService, lister *fakeGigs, user *auth.UserContext) http.Handler {
	r := chi.NewRouter()
	if user != nil {
		u := *user
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), u)))
			})
		})
	}
	NewHandler(svc, lister).RegisterRoutes(r)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
	return rec
}

var employer = &auth.UserContext{SubjectID: "e1", Role: auth.RoleEmployer}

func TestEmployerMeHidesStripeCustomer(t *testing.T) {
	rec := serve(newRouter(&fakeService{}, &fakeGigs{}, employer), http.MethodGet, "/employers/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"companyName":"Acme"`)
	assert.NotContains(t, rec.Body.String(), "cus_secret")
}

func TestEmployerRoutesRejectWorkers(t *testing.T) {
	worker := &auth.UserContext{SubjectID: "u1", Role: auth.RoleUser}
	rec := serve(newRouter(&fakeService{}, &fakeGigs{}, worker), http.MethodGet, "/employers/me/dashboard", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(newRouter(&fakeService{}, &fakeGigs{}, worker), http.MethodGet, "/employers/e1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEmployerUpdateValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{name: "ok", body: `{"industry":"hospitality","website":"https://acme.test"}`, wantCode: http.StatusOK},
		{name: "blank company", body: `{"companyName":""}`, wantCode: http.StatusBadRequest},
		{name: "bad website", body: `{"website":"acme.test"}`, wantCode: http.StatusBadRequest},
		{name: "bad location", body: `{"location":{"lat":95}}`, err: employers.ErrInvalidLocation, wantCode: http.StatusBadRequest},
		{name: "suspended", body: `{"industry":"x"}`, err: employers.ErrNotActive, wantCode: http.StatusForbidden},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{err: tc.err}
			rec := serve(newRouter(svc, &fakeGigs{}, employer), http.MethodPatch, "/employers/me", tc.body)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestEmployerDashboardAndGigs(t *testing.T) {
	lister := &fakeGigs{}
	router := newRouter(&fakeService{}, lister, employer)

	rec := serve(router, http.MethodGet, "/employers/me/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalSpend":310.5`)

	rec = serve(router, http.MethodGet, "/employers/me/gigs?status=filled", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "e1", lister.employerID)
	assert.Equal(t, gigs.StatusFilled, lister.status)
	assert.Equal(t, "0", rec.Header().Get("X-Total-Count"))
	assert.Contains(t, rec.Body.String(), `"data":[]`)

	rec = serve(router, http.MethodGet, "/employers/me/gigs?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
