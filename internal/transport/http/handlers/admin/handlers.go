package adminhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"quickshift/internal/domain/admins"
	"quickshift/internal/domain/audit"
	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/completions"
	"quickshift/internal/domain/employers"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/domain/users"
	"quickshift/internal/platform/payments"
	"quickshift/internal/transport/http/api"
	"quickshift/internal/transport/http/middleware"
	"quickshift/internal/transport/http/shared"
)

var accountStatuses = []string{auth.StatusActive, auth.StatusSuspended}

type Users interface {
	List(ctx context.Context, filter users.Filter, limit, offset int) ([]users.User, int, error)
	SetStatus(ctx context.Context, id, status string) error
}

type Employers interface {
	List(ctx context.Context, filter employers.Filter, limit, offset int) ([]employers.Employer, int, error)
	SetStatus(ctx context.Context, id, status string) error
}

type Gigs interface {
	ListAll(ctx context.Context, filter gigs.SearchFilter, limit, offset int) ([]gigs.Gig, int, error)
	Cancel(ctx context.Context, employerID, id string) (gigs.Gig, error)
}

type Completions interface {
	List(ctx context.Context, viewer auth.UserContext, filter completions.Filter, limit, offset int) ([]completions.Completion, int, error)
	RetryFailed(ctx context.Context, id string) (completions.DistributionResult, error)
	Refund(ctx context.Context, id string) (completions.Completion, error)
	ResolveDispute(ctx context.Context, id, action string) (completions.Completion, error)
}

type Admins interface {
	Create(ctx context.Context, in admins.CreateInput) (admins.Admin, error)
	List(ctx context.Context, limit, offset int) ([]admins.Admin, int, error)
	Dashboard(ctx context.Context) (admins.Dashboard, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Snapshotter exposes in-process HTTP counters for the dashboard.
type Snapshotter interface {
	Snapshot() map[string]any
}

type Handler struct {
	Users       Users
	Employers   Employers
	Gigs        Gigs
	Completions Completions
	Admins      Admins
	Audit       AuditRecorder
	Metrics     Snapshotter
	Perms       middleware.PermissionStore
}

func NewHandler(usersSvc Users, employersSvc Employers, gigsSvc Gigs, completionsSvc Completions, adminsSvc Admins, auditSvc AuditRecorder, snap Snapshotter, perms middleware.PermissionStore) *Handler {
	return &Handler{
		Users:       usersSvc,
		Employers:   employersSvc,
		Gigs:        gigsSvc,
		Completions: completionsSvc,
		Admins:      adminsSvc,
		Audit:       auditSvc,
		Metrics:     snap,
		Perms:       perms,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin))

		r.With(middleware.RequirePermission(auth.PermDashboardRead, h.Perms)).Get("/dashboard", h.handleDashboard)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(auth.PermUsersManage, h.Perms))
			r.Get("/users", h.handleListUsers)
			r.Post("/users/{userID}/suspend", h.handleUserStatus(auth.StatusSuspended))
			r.Post("/users/{userID}/activate", h.handleUserStatus(auth.StatusActive))
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(auth.PermEmployersManage, h.Perms))
			r.Get("/employers", h.handleListEmployers)
			r.Post("/employers/{employerID}/suspend", h.handleEmployerStatus(auth.StatusSuspended))
			r.Post("/employers/{employerID}/activate", h.handleEmployerStatus(auth.StatusActive))
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(auth.PermGigsManage, h.Perms))
			r.Get("/gigs", h.handleListGigs)
			r.Post("/gigs/{gigID}/cancel", h.handleCancelGig)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(auth.PermPaymentsManage, h.Perms))
			r.Get("/completions", h.handleListCompletions)
			r.Post("/completions/{completionID}/retry-transfers", h.handleRetryTransfers)
			r.Post("/completions/{completionID}/refund", h.handleRefund)
			r.Post("/completions/{completionID}/resolve-dispute", h.handleResolveDispute)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(auth.PermAdminsManage, h.Perms))
			r.Get("/admins", h.handleListAdmins)
			r.Post("/admins", h.handleCreateAdmin)
		})
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Admins.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.Metrics != nil {
		dash.HTTP = h.Metrics.Snapshot()
	}
	api.Success(w, dash, middleware.GetRequestID(r.Context()))
}

// statusFilter validates the optional ?status= against account statuses.
func statusFilter(w http.ResponseWriter, r *http.Request) (string, bool) {
	status := r.URL.Query().Get("status")
	if status != "" && !slices.Contains(accountStatuses, status) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "status must be active or suspended", middleware.GetRequestID(r.Context()))
		return "", false
	}
	return status, true
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r)
	if !ok {
		return
	}
	page := shared.Page(r)
	items, total, err := h.Users.List(r.Context(), users.Filter{Query: strings.TrimSpace(r.URL.Query().Get("q")), Status: status}, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []users.User{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUserStatus(status string) http.HandlerFunc {
	action := audit.ActionUserActivate
	if status == auth.StatusSuspended {
		action = audit.ActionUserSuspend
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "userID")
		if err := h.Users.SetStatus(r.Context(), id, status); err != nil {
			h.fail(w, r, err)
			return
		}
		h.record(r, action, "user", id, nil, map[string]string{"status": status})
		api.Success(w, map[string]string{"id": id, "status": status}, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleListEmployers(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r)
	if !ok {
		return
	}
	page := shared.Page(r)
	items, total, err := h.Employers.List(r.Context(), employers.Filter{Query: strings.TrimSpace(r.URL.Query().Get("q")), Status: status}, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []employers.Employer{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEmployerStatus(status string) http.HandlerFunc {
	action := audit.ActionEmployerActivate
	if status == auth.StatusSuspended {
		action = audit.ActionEmployerSuspend
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "employerID")
		if err := h.Employers.SetStatus(r.Context(), id, status); err != nil {
			h.fail(w, r, err)
			return
		}
		h.record(r, action, "employer", id, nil, map[string]string{"status": status})
		api.Success(w, map[string]string{"id": id, "status": status}, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleListGigs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := gigs.SearchFilter{
		Status:     q.Get("status"),
		EmployerID: q.Get("employerId"),
		Query:      strings.TrimSpace(q.Get("q")),
	}
	if filter.Status != "" && !slices.Contains(gigs.Statuses, filter.Status) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown gig status", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.Page(r)
	items, total, err := h.Gigs.ListAll(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []gigs.Gig{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelGig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gigID")
	gig, err := h.Gigs.Cancel(r.Context(), "", id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, audit.ActionGigCancel, "gig", id, nil, map[string]string{"status": gig.Status})
	api.Success(w, gig, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListCompletions(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	q := r.URL.Query()
	page := shared.Page(r)
	filter := completions.Filter{EmployerID: q.Get("employerId"), Status: q.Get("status")}
	items, total, err := h.Completions.List(r.Context(), user, filter, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []completions.Completion{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRetryTransfers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "completionID")
	result, err := h.Completions.RetryFailed(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, audit.ActionTransfersRetry, "completion", id, nil, result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRefund(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "completionID")
	c, err := h.Completions.Refund(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, audit.ActionRefund, "completion", id, nil, map[string]string{"status": c.Status})
	api.Success(w, c, middleware.GetRequestID(r.Context()))
}

type resolveRequest struct {
	Action string `json:"action"`
}

func (h *Handler) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	var payload resolveRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Enum("action", payload.Action, []string{completions.ResolveRelease, completions.ResolveRefund}, "must be release or refund")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	id := chi.URLParam(r, "completionID")
	c, err := h.Completions.ResolveDispute(r.Context(), id, payload.Action)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, audit.ActionDisputeResolve, "completion", id, map[string]string{"status": completions.StatusDisputed},
		map[string]string{"status": c.Status, "action": payload.Action})
	api.Success(w, c, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	page := shared.Page(r)
	items, total, err := h.Admins.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []admins.Admin{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var payload admins.CreateInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Email("email", payload.Email)
	v.Required("password", payload.Password, "is required")
	v.Required("name", payload.Name, "is required")
	if payload.Role != "" {
		v.Enum("role", payload.Role, []string{auth.AdminRoleStandard, auth.AdminRoleSuper}, "must be admin or super_admin")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	created, err := h.Admins.Create(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, audit.ActionAdminCreate, "admin", created.ID, nil, map[string]string{"email": created.Email, "role": created.Role})
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

// record writes the audit entry for a successful mutation. Failures are logged, not surfaced.
func (h *Handler) record(r *http.Request, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	err := h.Audit.Record(r.Context(), audit.Entry{
		ActorID:    user.SubjectID,
		ActorRole:  user.Subject(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		Before:     before,
		After:      after,
	})
	if err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, users.ErrNotFound), errors.Is(err, employers.ErrNotFound), errors.Is(err, gigs.ErrNotFound),
		errors.Is(err, completions.ErrNotFound), errors.Is(err, admins.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, users.ErrInvalidInput), errors.Is(err, employers.ErrInvalidInput), errors.Is(err, admins.ErrInvalidInput),
		errors.Is(err, auth.ErrWeakPassword), errors.Is(err, completions.ErrInvalidResolution):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, admins.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", err.Error(), requestID)
	case errors.Is(err, completions.ErrTransfersSucceeded):
		api.Fail(w, http.StatusConflict, "transfers_succeeded", err.Error(), requestID)
	case errors.Is(err, completions.ErrPaymentIncomplete), errors.Is(err, completions.ErrNoPaymentIntent):
		api.Fail(w, http.StatusConflict, "payment_incomplete", err.Error(), requestID)
	case errors.Is(err, gigs.ErrInvalidTransition), errors.Is(err, completions.ErrInvalidTransition),
		errors.Is(err, completions.ErrDistributionRunning):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, payments.ErrDisabled):
		api.Fail(w, http.StatusServiceUnavailable, "payments_unavailable", err.Error(), requestID)
	default:
		slog.Error("admin request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}
