package gigshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"quickshift/internal/domain/applications"
	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/platform/config"
	"quickshift/internal/transport/http/api"
	"quickshift/internal/transport/http/middleware"
	"quickshift/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, employerID string, input gigs.CreateInput) (gigs.Gig, error)
	Get(ctx context.Context, id string) (gigs.Gig, error)
	Search(ctx context.Context, filter gigs.SearchFilter, limit, offset int) ([]gigs.Gig, int, error)
	Update(ctx context.Context, employerID, id string, input gigs.UpdateInput) (gigs.Gig, error)
	Cancel(ctx context.Context, employerID, id string) (gigs.Gig, error)
	Start(ctx context.Context, employerID, id string) (gigs.Gig, error)
	Complete(ctx context.Context, employerID, id string) (gigs.Gig, error)
}

type ApplicationLister interface {
	ListForGig(ctx context.Context, employerID, gigID, status string, limit, offset int) ([]applications.Application, int, error)
}

type Handler struct {
	Service      Service
	Applications ApplicationLister
	Perms        middleware.PermissionStore
	Idempotency  middleware.IdempotencyStorer
	Radius       config.Notifications
}

func NewHandler(service Service, apps ApplicationLister, perms middleware.PermissionStore, idem middleware.IdempotencyStorer, radius config.Notifications) *Handler {
	return &Handler{Service: service, Applications: apps, Perms: perms, Idempotency: idem, Radius: radius}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/gigs", h.handleSearch)
	r.Get("/gigs/{gigID}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleEmployer))
		r.Use(middleware.RequirePermission(auth.PermGigsWrite, h.Perms))
		r.With(middleware.Idempotent(h.Idempotency)).Post("/gigs", h.handleCreate)
		r.Patch("/gigs/{gigID}", h.handleUpdate)
		r.Post("/gigs/{gigID}/cancel", h.handleCancel)
		r.Post("/gigs/{gigID}/start", h.handleStart)
		r.Post("/gigs/{gigID}/complete", h.handleComplete)
		r.With(middleware.RequirePermission(auth.PermApplicationsReview, h.Perms)).Get("/gigs/{gigID}/applications", h.handleListApplications)
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseSearch(w, r)
	if !ok {
		return
	}
	page := shared.Page(r)
	items, total, err := h.Service.Search(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []gigs.Gig{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) parseSearch(w http.ResponseWriter, r *http.Request) (gigs.SearchFilter, bool) {
	q := r.URL.Query()
	filter := gigs.SearchFilter{
		Category: strings.ToLower(strings.TrimSpace(q.Get("category"))),
		JobType:  q.Get("jobType"),
		RateType: q.Get("rateType"),
		Query:    strings.TrimSpace(q.Get("q")),
		Status:   q.Get("status"),
	}

	v := shared.NewValidator()
	if filter.JobType != "" {
		v.Enum("jobType", filter.JobType, gigs.JobTypes, "must be one of "+strings.Join(gigs.JobTypes, ", "))
	}
	if filter.RateType != "" {
		v.Enum("rateType", filter.RateType, gigs.RateTypes, "must be one of "+strings.Join(gigs.RateTypes, ", "))
	}
	if filter.Status != "" && !slices.Contains(gigs.Statuses, filter.Status) {
		v.Add("status", "unknown gig status")
	}
	if raw := q.Get("minRate"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate < 0 {
			v.Add("minRate", "must be a non-negative number")
		}
		filter.MinRate = rate
	}

	lat, hasLat := parseFloat(q.Get("lat"))
	lng, hasLng := parseFloat(q.Get("lng"))
	switch {
	case hasLat && hasLng:
		filter.Lat, filter.Lng = &lat, &lng
		filter.RadiusKm = h.Radius.DefaultRadiusKm
		if raw := q.Get("radiusKm"); raw != "" {
			radius, err := strconv.ParseFloat(raw, 64)
			if err != nil || radius <= 0 {
				v.Add("radiusKm", "must be a positive number")
			}
			filter.RadiusKm = radius
		}
		if h.Radius.MaxRadiusKm > 0 && filter.RadiusKm > h.Radius.MaxRadiusKm {
			filter.RadiusKm = h.Radius.MaxRadiusKm
		}
	case q.Get("lat") != "" || q.Get("lng") != "":
		v.Add("lat", "lat and lng must both be valid numbers")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return gigs.SearchFilter{}, false
	}
	return filter, true
}

func parseFloat(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	gig, err := h.Service.Get(r.Context(), chi.URLParam(r, "gigID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, gig, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload gigs.CreateInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	gig, err := h.Service.Create(r.Context(), user.SubjectID, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, gig, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload gigs.UpdateInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	gig, err := h.Service.Update(r.Context(), user.SubjectID, chi.URLParam(r, "gigID"), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, gig, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Cancel)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Start)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Complete)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, string) (gigs.Gig, error)) {
	user, _ := middleware.GetUser(r.Context())
	gig, err := apply(r.Context(), user.SubjectID, chi.URLParam(r, "gigID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, gig, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListApplications(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.Page(r)
	items, total, err := h.Applications.ListForGig(r.Context(), user.SubjectID, chi.URLParam(r, "gigID"), r.URL.Query().Get("status"), page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []applications.Application{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	var verr *gigs.ValidationError
	switch {
	case errors.As(err, &verr):
		v := shared.NewValidator()
		v.AddFields(verr.Fields)
		v.Reject(w, requestID)
	case errors.Is(err, gigs.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "gig not found", requestID)
	case errors.Is(err, gigs.ErrForbidden), errors.Is(err, applications.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, gigs.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, gigs.ErrNotEditable):
		api.Fail(w, http.StatusConflict, "not_editable", err.Error(), requestID)
	default:
		slog.Error("gig request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}
