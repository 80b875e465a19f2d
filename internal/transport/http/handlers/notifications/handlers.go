package notificationshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/notifications"
	"quickshift/internal/transport/http/api"
	"quickshift/internal/transport/http/middleware"
	"quickshift/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]notifications.Notification, int, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, recipientID, notificationID string) error
}

// Streamer upgrades a request into a live notification feed for one recipient.
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, recipientID string) error
}

type Handler struct {
	Service Service
	Hub     Streamer
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, hub Streamer, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Hub: hub, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermNotificationsRead, h.Perms))
		r.Get("/notifications", h.handleList)
		r.Get("/notifications/unread-count", h.handleUnreadCount)
		r.Post("/notifications/read-all", h.handleMarkAllRead)
		r.Post("/notifications/{notificationID}/read", h.handleMarkRead)
		r.Delete("/notifications/{notificationID}", h.handleDelete)
		r.Get("/notifications/ws", h.handleStream)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.Page(r)
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"
	items, total, err := h.Service.List(r.Context(), user.SubjectID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}
	api.List(w, items, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	count, err := h.Service.UnreadCount(r.Context(), user.SubjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]int{"count": count}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Service.MarkRead(r.Context(), user.SubjectID, chi.URLParam(r, "notificationID")); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	updated, err := h.Service.MarkAllRead(r.Context(), user.SubjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]int64{"updated": updated}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Service.Delete(r.Context(), user.SubjectID, chi.URLParam(r, "notificationID")); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

// handleStream hands the connection to the hub. The upgrader writes its own error response.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if h.Hub == nil {
		api.Fail(w, http.StatusServiceUnavailable, "realtime_unavailable", "live notifications are disabled", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Hub.Serve(w, r, user.SubjectID); err != nil {
		slog.Debug("notification stream ended", "subjectId", user.SubjectID, "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, notifications.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "notification not found", requestID)
	default:
		slog.Error("notification request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}
