package employershandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/employers"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/transport/http/api"
	"quickshift/internal/transport/http/middleware"
	"quickshift/internal/transport/http/shared"
)

type Service interface {
	Get(ctx context.Context, id string) (employers.Employer, error)
	PublicProfile(ctx context.Context, id string) (employers.PublicProfile, error)
	Update(ctx context.Context, id string, in employers.UpdateInput) (employers.Employer, error)
	Dashboard(ctx context.Context, id string) (employers.Dashboard, error)
}

type GigLister interface {
	ListByEmployer(ctx context.Context, employerID, status string, limit, offset int) ([]gigs.Gig, int, error)
}

type Handler struct {
	Service Service
	Gigs    GigLister
}

func NewHandler(service Service, gigsSvc GigLister) *Handler {
	return &Handler{Service: service, Gigs: gigsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/employers/{employerID}", h.handlePublicProfile)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleEmployer))
		r.Get("/employers/me", h.handleMe)
		r.Patch("/employers/me", h.handleUpdate)
		r.Get("/employers/me/dashboard", h.handleDashboard)
		r.Get("/employers/me/gigs", h.handleListGigs)
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employer, err := h.Service.Get(r.Context(), user.SubjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, employer, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePublicProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.PublicProfile(r.Context(), chi.URLParam(r, "employerID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload employers.UpdateInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	if payload.CompanyName != nil {
		v.Required("companyName", *payload.CompanyName, "must not be empty")
		v.MaxLength("companyName", *payload.CompanyName, 200)
	}
	if payload.Description != nil {
		v.MaxLength("description", *payload.Description, 5000)
	}
	if payload.Website != nil {
		site := strings.TrimSpace(*payload.Website)
		if site != "" && !strings.HasPrefix(site, "https://") && !strings.HasPrefix(site, "http://") {
			v.Add("website", "must be an http(s) URL")
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	updated, err := h.Service.Update(r.Context(), user.SubjectID, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	dashboard, err := h.Service.Dashboard(r.Context(), user.SubjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListGigs(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	status := r.URL.Query().Get("status")
	if status != "" && !slices.Contains(gigs.Statuses, status) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown gig status", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.Page(r)
	items, total, err := h.Gigs.ListByEmployer(r.Context(), user.SubjectID, status, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []gigs.Gig{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, employers.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employer not found", requestID)
	case errors.Is(err, employers.ErrInvalidInput), errors.Is(err, employers.ErrInvalidLocation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, employers.ErrNotActive):
		api.Fail(w, http.StatusForbidden, "account_inactive", err.Error(), requestID)
	default:
		slog.Error("employer request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}
