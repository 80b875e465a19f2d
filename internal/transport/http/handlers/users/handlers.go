package usershandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"quickshift/internal/domain/audit"
	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/users"
	"quickshift/internal/platform/payments"
	"quickshift/internal/transport/http/api"
	"quickshift/internal/transport/http/middleware"
	"quickshift/internal/transport/http/shared"
)

type Service interface {
	Get(ctx context.Context, id string) (users.User, error)
	PublicProfile(ctx context.Context, id string) (users.PublicProfile, error)
	Update(ctx context.Context, id string, in users.UpdateInput) (users.User, error)
	Anonymize(ctx context.Context, id string) error
	StartOnboarding(ctx context.Context, id, refreshURL, returnURL string) (string, error)
	RefreshPayoutStatus(ctx context.Context, id string) (users.PayoutStatus, error)
	Earnings(ctx context.Context, id string, limit, offset int) ([]users.EarningLine, int, users.EarningsSummary, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

type Handler struct {
	Service     Service
	Perms       middleware.PermissionStore
	Audit       AuditRecorder
	FrontendURL string
}

func NewHandler(service Service, perms middleware.PermissionStore, auditSvc AuditRecorder, frontendURL string) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, FrontendURL: frontendURL}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userID}", h.handlePublicProfile)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleUser))
		r.Get("/users/me", h.handleMe)
		r.Patch("/users/me", h.handleUpdate)
		r.Delete("/users/me", h.handleDelete)
		r.Get("/users/me/earnings", h.handleEarnings)
		r.With(middleware.RequirePermission(auth.PermPayoutsOnboard, h.Perms)).Post("/users/me/stripe/onboard", h.handleOnboard)
		r.With(middleware.RequirePermission(auth.PermPayoutsOnboard, h.Perms)).Get("/users/me/stripe/status", h.handlePayoutStatus)
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	profile, err := h.Service.Get(r.Context(), user.SubjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePublicProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.PublicProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload users.UpdateInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	if payload.FirstName != nil {
		v.Required("firstName", *payload.FirstName, "must not be empty")
		v.MaxLength("firstName", *payload.FirstName, 100)
	}
	if payload.LastName != nil {
		v.Required("lastName", *payload.LastName, "must not be empty")
		v.MaxLength("lastName", *payload.LastName, 100)
	}
	if payload.Bio != nil {
		v.MaxLength("bio", *payload.Bio, 2000)
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

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Service.Anonymize(r.Context(), user.SubjectID); err != nil {
		h.fail(w, r, err)
		return
	}
	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), audit.Entry{
			ActorID:    user.SubjectID,
			ActorRole:  user.Role,
			Action:     audit.ActionUserAnonymize,
			EntityType: "user",
			EntityID:   user.SubjectID,
			RequestID:  middleware.GetRequestID(r.Context()),
			IP:         shared.ClientIP(r),
		}); err != nil {
			slog.Warn("audit user.anonymize failed", "userId", user.SubjectID, "err", err)
		}
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOnboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	base := strings.TrimRight(h.FrontendURL, "/")
	link, err := h.Service.StartOnboarding(r.Context(), user.SubjectID, base+"/payouts/refresh", base+"/payouts/complete")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"url": link}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePayoutStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	status, err := h.Service.RefreshPayoutStatus(r.Context(), user.SubjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, status, middleware.GetRequestID(r.Context()))
}

type earningsResponse struct {
	Summary users.EarningsSummary `json:"summary"`
	Items   []users.EarningLine   `json:"items"`
}

func (h *Handler) handleEarnings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.Page(r)
	lines, total, summary, err := h.Service.Earnings(r.Context(), user.SubjectID, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if lines == nil {
		lines = []users.EarningLine{}
	}
	api.List(w, earningsResponse{Summary: summary, Items: lines}, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, users.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", requestID)
	case errors.Is(err, users.ErrInvalidLocation), errors.Is(err, users.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, users.ErrNotActive):
		api.Fail(w, http.StatusForbidden, "account_inactive", err.Error(), requestID)
	case errors.Is(err, users.ErrNoPayoutAccount):
		api.Fail(w, http.StatusConflict, "payout_account_missing", err.Error(), requestID)
	case errors.Is(err, payments.ErrDisabled):
		api.Fail(w, http.StatusServiceUnavailable, "payments_unavailable", err.Error(), requestID)
	default:
		slog.Error("user request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}
