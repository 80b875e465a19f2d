package completionshandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/completions"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/platform/payments"
	"quickshift/internal/transport/http/api"
	"quickshift/internal/transport/http/middleware"
	"quickshift/internal/transport/http/shared"
)

const maxDisputeReason = 2000

var statuses = []string{
	completions.StatusPendingPayment, completions.StatusPaid, completions.StatusDistributing,
	completions.StatusCompleted, completions.StatusPartiallyPaid, completions.StatusDisputed, completions.StatusRefunded,
}

type Service interface {
	Create(ctx context.Context, employerID, gigID string, input completions.CreateInput) (completions.Completion, error)
	Get(ctx context.Context, viewer auth.UserContext, id string) (completions.Completion, error)
	List(ctx context.Context, viewer auth.UserContext, filter completions.Filter, limit, offset int) ([]completions.Completion, int, error)
	Pay(ctx context.Context, employerID, id string) (completions.PaymentSession, error)
	Confirm(ctx context.Context, employerID, id string) (completions.Completion, error)
	Dispute(ctx context.Context, viewer auth.UserContext, id, reason string) (completions.Completion, error)
	Receipt(ctx context.Context, viewer auth.UserContext, id string) ([]byte, error)
}

type Handler struct {
	Service     Service
	Perms       middleware.PermissionStore
	Idempotency middleware.IdempotencyStorer
}

func NewHandler(service Service, perms middleware.PermissionStore, idem middleware.IdempotencyStorer) *Handler {
	return &Handler{Service: service, Perms: perms, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermCompletionsRead, h.Perms))
		r.Get("/completions", h.handleList)
		r.Get("/completions/{completionID}", h.handleGet)
		r.Get("/completions/{completionID}/receipt", h.handleReceipt)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleEmployer))
		r.Use(middleware.RequirePermission(auth.PermCompletionsWrite, h.Perms))
		r.Use(middleware.Idempotent(h.Idempotency))
		r.Post("/gigs/{gigID}/completion", h.handleCreate)
		r.Post("/completions/{completionID}/pay", h.handlePay)
		r.Post("/completions/{completionID}/confirm", h.handleConfirm)
	})
	r.With(middleware.RequirePermission(auth.PermCompletionsDispute, h.Perms)).Post("/completions/{completionID}/dispute", h.handleDispute)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload completions.CreateInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	if len(payload.Workers) == 0 {
		v.Add("workers", "at least one worker is required")
	}
	for i, worker := range payload.Workers {
		v.Required(fmt.Sprintf("workers[%d].userId", i), worker.UserID, "is required")
		if len(worker.TimeEntries) == 0 {
			v.Add(fmt.Sprintf("workers[%d].timeEntries", i), "at least one time entry is required")
		}
	}
	v.MaxLength("notes", payload.Notes, 2000)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), user.SubjectID, chi.URLParam(r, "gigID"), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	filter := completions.Filter{Status: r.URL.Query().Get("status")}
	if filter.Status != "" && !slices.Contains(statuses, filter.Status) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown completion status", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.Page(r)
	items, total, err := h.Service.List(r.Context(), user, filter, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []completions.Completion{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	c, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "completionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, c, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	session, err := h.Service.Pay(r.Context(), user.SubjectID, chi.URLParam(r, "completionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, session, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	c, err := h.Service.Confirm(r.Context(), user.SubjectID, chi.URLParam(r, "completionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, c, middleware.GetRequestID(r.Context()))
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleDispute(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload disputeRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("reason", payload.Reason, "is required")
	v.MaxLength("reason", payload.Reason, maxDisputeReason)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	c, err := h.Service.Dispute(r.Context(), user, chi.URLParam(r, "completionID"), payload.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, c, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "completionID")
	pdf, err := h.Service.Receipt(r.Context(), user, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"receipt-%s.pdf\"", id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		slog.Warn("write receipt failed", "completionId", id, "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, completions.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "completion not found", requestID)
	case errors.Is(err, gigs.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "gig not found", requestID)
	case errors.Is(err, completions.ErrForbidden), errors.Is(err, gigs.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, completions.ErrNoWorkers),
		errors.Is(err, completions.ErrDuplicateWorker),
		errors.Is(err, completions.ErrWorkerNotHired),
		errors.Is(err, completions.ErrInvalidTimeEntry),
		errors.Is(err, completions.ErrNegativeAdjustment),
		errors.Is(err, completions.ErrDisputeReason):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, completions.ErrGigNotCompletable):
		api.Fail(w, http.StatusConflict, "gig_not_completable", err.Error(), requestID)
	case errors.Is(err, completions.ErrNoPaymentIntent), errors.Is(err, completions.ErrPaymentIncomplete):
		api.Fail(w, http.StatusConflict, "payment_incomplete", err.Error(), requestID)
	case errors.Is(err, completions.ErrDisputed):
		api.Fail(w, http.StatusConflict, "disputed", err.Error(), requestID)
	case errors.Is(err, completions.ErrInvalidTransition), errors.Is(err, completions.ErrDistributionRunning):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, payments.ErrDisabled):
		api.Fail(w, http.StatusServiceUnavailable, "payments_unavailable", err.Error(), requestID)
	default:
		slog.Error("completion request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}
