package ratingshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/domain/ratings"
	"quickshift/internal/transport/http/api"
	"quickshift/internal/transport/http/middleware"
	"quickshift/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, rater auth.UserContext, input ratings.CreateInput) (ratings.Rating, ratings.Summary, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]ratings.Rating, int, error)
	ListForEmployer(ctx context.Context, employerID string, limit, offset int) ([]ratings.Rating, int, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userID}/ratings", h.handleListForUser)
	r.Get("/employers/{employerID}/ratings", h.handleListForEmployer)
	r.With(middleware.RequirePermission(auth.PermRatingsWrite, h.Perms)).Post("/ratings", h.handleCreate)
}

type createResponse struct {
	Rating  ratings.Rating  `json:"rating"`
	Summary ratings.Summary `json:"summary"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload ratings.CreateInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("gigId", payload.GigID, "is required")
	v.Range("score", float64(payload.Score), 1, 5, "must be between 1 and 5")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rating, summary, err := h.Service.Create(r.Context(), user, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, createResponse{Rating: rating, Summary: summary}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListForUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "userID"), h.Service.ListForUser)
}

func (h *Handler) handleListForEmployer(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "employerID"), h.Service.ListForEmployer)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, rateeID string, fetch func(context.Context, string, int, int) ([]ratings.Rating, int, error)) {
	page := shared.Page(r)
	items, total, err := fetch(r.Context(), rateeID, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []ratings.Rating{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, ratings.ErrInvalidScore), errors.Is(err, ratings.ErrCommentLength), errors.Is(err, ratings.ErrSelfRating):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, gigs.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "gig not found", requestID)
	case errors.Is(err, ratings.ErrNotEligible), errors.Is(err, ratings.ErrUnsupportedRole):
		api.Fail(w, http.StatusForbidden, "not_eligible", err.Error(), requestID)
	case errors.Is(err, ratings.ErrAlreadyRated):
		api.Fail(w, http.StatusConflict, "already_rated", err.Error(), requestID)
	default:
		slog.Error("rating request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}
