package gigshandler

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

	"quickshift/internal/domain/applications"
	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/platform/config"
	"quickshift/internal/transport/http/middleware"
)

type fakeService struct {
	err        error
	filter     gigs.SearchFilter
	created    int
	transition string
	employerID string
}

func (f *fakeService) Create(_ context.Context, employerID string, input gigs.CreateInput) (gigs.Gig, error) {
	f.created++
	f.employerID = employerID
	return gigs.Gig{ID: "g1", EmployerID: employerID, Title: input.Title, Status: gigs.StatusOpen}, f.err
}
func (f *fakeService) Get(_ context.Context, id string) (gigs.Gig, error) {
	return gigs.Gig{ID: id, Status: gigs.StatusOpen}, f.err
}
func (f *fakeService) Search(_ context.Context, filter gigs.SearchFilter, _, _ int) ([]gigs.Gig, int, error) {
	f.filter = filter
	return []gigs.Gig{{ID: "g1"}}, 1, f.err
}
func (f *fakeService) Update(_ context.Context, employerID, id string, _ gigs.UpdateInput) (gigs.Gig, error) {
	f.employerID = employerID
	return gigs.Gig{ID: id}, f.err
}
func (f *fakeService) Cancel(_ context.Context, _, id string) (gigs.Gig, error) {
	f.transition = "cancel"
	return gigs.Gig{ID: id, Status: gigs.StatusCancelled}, f.err
}
func (f *fakeService) Start(_ context.Context, _, id string) (gigs.Gig, error) {
	f.transition = "start"
	return gigs.Gig{ID: id, Status: gigs.StatusInProgress}, f.err
}
func (f *fakeService) Complete(_ context.Context, _, id string) (gigs.Gig, error) {
	f.transition = "complete"
	return gigs.Gig{ID: id, Status: gigs.StatusCompleted}, f.err
}

type fakeApps struct {
	err error
}

func (f fakeApps) ListForGig(context.Context, string, string, string, int, int) ([]applications.Application, int, error) {
	return []applications.Application{{ID: "a1", Status: applications.StatusPending}}, 1, f.err
}

type memoryIdempotency struct {
	saved map[string]middleware.StoredResponse
}

func (m *memoryIdempotency) Check(_ context.Context, subjectID, endpoint, key, _ string) (middleware.StoredResponse, bool, error) {
	resp, ok := m.saved[subjectID+endpoint+key]
	return resp, ok, nil
}

func (m *memoryIdempotency) Save(_ context.Context, subjectID, endpoint, key, _ string, resp middleware.StoredResponse) error {
	m.saved[subjectID+endpoint+key] = resp
	return nil
}

var radius = config.Notifications{DefaultRadiusKm: 25, MaxRadiusKm: 100}

func newRouter(t *testing.T, svc *fakeService, apps fakeApps, user *auth.UserContext) http.Handler {
	t.Helper()
	authz, err := auth.NewAuthorizer()
	require.NoError(t, err)
	r := chi.NewRouter()
	if user != nil {
		u := *user
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), u)))
			})
		})
	}
	idem := &memoryIdempotency{saved: map[string]middleware.StoredResponse{}}
	NewHandler(svc, apps, authz, idem, radius).RegisterRoutes(r)
	return r
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var employer = &auth.UserContext{SubjectID: "e1", Role: auth.RoleEmployer}

func TestSearchParsesFilters(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantCode   int
		wantRadius float64
		check      func(t *testing.T, f gigs.SearchFilter)
	}{
		{
			name:     "plain filters",
			query:    "?category=Cleaning&jobType=one_time&rateType=hourly&minRate=15&q=bar",
			wantCode: http.StatusOK,
			check: func(t *testing.T, f gigs.SearchFilter) {
				assert.Equal(t, "cleaning", f.Category)
				assert.Equal(t, 15.0, f.MinRate)
				assert.Equal(t, "bar", f.Query)
				assert.Nil(t, f.Lat)
			},
		},
		{name: "default radius", query: "?lat=51.5&lng=-0.12", wantCode: http.StatusOK, wantRadius: 25},
		{name: "capped radius", query: "?lat=51.5&lng=-0.12&radiusKm=900", wantCode: http.StatusOK, wantRadius: 100},
		{name: "explicit radius", query: "?lat=51.5&lng=-0.12&radiusKm=5", wantCode: http.StatusOK, wantRadius: 5},
		{name: "lat without lng", query: "?lat=51.5", wantCode: http.StatusBadRequest},
		{name: "bad radius", query: "?lat=51.5&lng=1&radiusKm=-3", wantCode: http.StatusBadRequest},
		{name: "bad status", query: "?status=archived", wantCode: http.StatusBadRequest},
		{name: "bad job type", query: "?jobType=gig", wantCode: http.StatusBadRequest},
		{name: "bad min rate", query: "?minRate=abc", wantCode: http.StatusBadRequest},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{}
			rec := serve(newRouter(t, svc, fakeApps{}, nil), httptest.NewRequest(http.MethodGet, "/gigs"+tc.query, nil))
			require.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode != http.StatusOK {
				return
			}
			assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
			if tc.wantRadius > 0 {
				require.NotNil(t, svc.filter.Lat)
				assert.Equal(t, tc.wantRadius, svc.filter.RadiusKm)
			}
			if tc.check != nil {
				tc.check(t, svc.filter)
			}
		})
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(t, svc, fakeApps{}, employer)
	body := `{"title":"Bartender","description":"Evening shift"}`

	var first string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/gigs", bytes.NewBufferString(body))
		req.Header.Set(middleware.IdempotencyHeader, "create-1")
		rec := serve(router, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		if i == 0 {
			first = rec.Body.String()
		} else {
			assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
			assert.JSONEq(t, first, rec.Body.String())
		}
	}
	assert.Equal(t, 1, svc.created)
	assert.Equal(t, "e1", svc.employerID)
}

func TestCreateReturnsFieldErrors(t *testing.T) {
	svc := &fakeService{err: &gigs.ValidationError{Fields: map[string]string{"title": "is required", "payRate.amount": "must be greater than 0"}}}
	rec := serve(newRouter(t, svc, fakeApps{}, employer), httptest.NewRequest(http.MethodPost, "/gigs", bytes.NewBufferString(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var env struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []struct {
					Field string `json:"field"`
				} `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "validation_error", env.Error.Code)
	assert.Len(t, env.Error.Details.Fields, 2)
}

func TestWorkersCannotCreateGigs(t *testing.T) {
	worker := &auth.UserContext{SubjectID: "u1", Role: auth.RoleUser}
	rec := serve(newRouter(t, &fakeService{}, fakeApps{}, worker), httptest.NewRequest(http.MethodPost, "/gigs", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOwnerTransitions(t *testing.T) {
	tests := []struct {
		path     string
		err      error
		wantCode int
		want     string
	}{
		{path: "/gigs/g1/cancel", wantCode: http.StatusOK, want: "cancel"},
		{path: "/gigs/g1/start", wantCode: http.StatusOK, want: "start"},
		{path: "/gigs/g1/complete", err: gigs.ErrInvalidTransition, wantCode: http.StatusConflict, want: "complete"},
		{path: "/gigs/g1/start", err: gigs.ErrForbidden, wantCode: http.StatusForbidden, want: "start"},
		{path: "/gigs/g1/cancel", err: gigs.ErrNotFound, wantCode: http.StatusNotFound, want: "cancel"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.path, func(t *testing.T) {
			svc := &fakeService{err: tc.err}
			rec := serve(newRouter(t, svc, fakeApps{}, employer), httptest.NewRequest(http.MethodPost, tc.path, nil))
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.want, svc.transition)
		})
	}
}

func TestUpdateNotEditable(t *testing.T) {
	svc := &fakeService{err: gigs.ErrNotEditable}
	rec := serve(newRouter(t, svc, fakeApps{}, employer), httptest.NewRequest(http.MethodPatch, "/gigs/g1", bytes.NewBufferString(`{"title":"New"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListApplicationsForOwner(t *testing.T) {
	rec := serve(newRouter(t, &fakeService{}, fakeApps{}, employer), httptest.NewRequest(http.MethodGet, "/gigs/g1/applications", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"a1"`)

	rec = serve(newRouter(t, &fakeService{}, fakeApps{err: applications.ErrForbidden}, employer), httptest.NewRequest(http.MethodGet, "/gigs/g1/applications", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
