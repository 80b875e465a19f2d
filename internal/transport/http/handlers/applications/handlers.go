package applicationshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"quickshift/internal/domain/applications"
	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/domain/users"
	"quickshift/internal/transport/http/api"
	"quickshift/internal/transport/http/middleware"
	"quickshift/internal/transport/http/shared"
)

const maxNote = 1000

var statuses = []string{applications.StatusPending, applications.StatusAccepted, applications.StatusRejected, applications.StatusWithdrawn}

type Service interface {
	Apply(ctx context.Context, userID, gigID string, input applications.ApplyInput) (applications.Application, error)
	Eligibility(ctx context.Context, userID, gigID string) (applications.Eligibility, error)
	InstantApply(ctx context.Context, userID, gigID string) (applications.Application, error)
	Withdraw(ctx context.Context, userID, id string) (applications.Application, error)
	Accept(ctx context.Context, employerID, id, note string) (applications.Application, error)
	Reject(ctx context.Context, employerID, id, note string) (applications.Application, error)
	ListMine(ctx context.Context, userID, status string, limit, offset int) ([]applications.Application, int, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleUser))
		r.Use(middleware.RequirePermission(auth.PermApplicationsApply, h.Perms))
		r.Post("/gigs/{gigID}/apply", h.handleApply)
		r.Get("/gigs/{gigID}/instant-apply", h.handleEligibility)
		r.Post("/gigs/{gigID}/instant-apply", h.handleInstantApply)
		r.Get("/applications/me", h.handleListMine)
		r.Post("/applications/{applicationID}/withdraw", h.handleWithdraw)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleEmployer))
		r.Use(middleware.RequirePermission(auth.PermApplicationsReview, h.Perms))
		r.Post("/applications/{applicationID}/accept", h.handleAccept)
		r.Post("/applications/{applicationID}/reject", h.handleReject)
	})
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload applications.ApplyInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	app, err := h.Service.Apply(r.Context(), user.SubjectID, chi.URLParam(r, "gigID"), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, app, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEligibility(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	verdict, err := h.Service.Eligibility(r.Context(), user.SubjectID, chi.URLParam(r, "gigID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, verdict, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleInstantApply(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	app, err := h.Service.InstantApply(r.Context(), user.SubjectID, chi.URLParam(r, "gigID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, app, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	status := r.URL.Query().Get("status")
	if status != "" && !slices.Contains(statuses, status) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown application status", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.Page(r)
	items, total, err := h.Service.ListMine(r.Context(), user.SubjectID, status, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []applications.Application{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	app, err := h.Service.Withdraw(r.Context(), user.SubjectID, chi.URLParam(r, "applicationID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, app, middleware.GetRequestID(r.Context()))
}

type decisionRequest struct {
	Note string `json:"note"`
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Accept)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, string, string) (applications.Application, error)) {
	user, _ := middleware.GetUser(r.Context())
	var payload decisionRequest
	if err := shared.DecodeOptionalJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.MaxLength("note", payload.Note, maxNote)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	app, err := apply(r.Context(), user.SubjectID, chi.URLParam(r, "applicationID"), payload.Note)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, app, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	var ineligible *applications.IneligibleError
	switch {
	case errors.As(err, &ineligible):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "not_eligible", applications.ErrNotEligible.Error(),
			map[string]any{"reasons": ineligible.Reasons}, requestID)
	case errors.Is(err, applications.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "application not found", requestID)
	case errors.Is(err, gigs.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "gig not found", requestID)
	case errors.Is(err, users.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", requestID)
	case errors.Is(err, applications.ErrForbidden), errors.Is(err, gigs.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, applications.ErrUserNotActive):
		api.Fail(w, http.StatusForbidden, "account_inactive", err.Error(), requestID)
	case errors.Is(err, applications.ErrNoSlots), errors.Is(err, applications.ErrCoverLetterLength), errors.Is(err, gigs.ErrSlotNotFound):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, applications.ErrAlreadyApplied):
		api.Fail(w, http.StatusConflict, "already_applied", err.Error(), requestID)
	case errors.Is(err, applications.ErrGigNotOpen):
		api.Fail(w, http.StatusConflict, "gig_not_open", err.Error(), requestID)
	case errors.Is(err, applications.ErrSlotUnavailable), errors.Is(err, applications.ErrSlotFull), errors.Is(err, gigs.ErrSlotFull):
		api.Fail(w, http.StatusConflict, "slot_unavailable", err.Error(), requestID)
	case errors.Is(err, applications.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	default:
		slog.Error("application request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}
