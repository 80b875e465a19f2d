package webhookshandler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quickshift/internal/domain/webhooks"
	"quickshift/internal/platform/payments"
	"quickshift/internal/transport/http/api"
	"quickshift/internal/transport/http/middleware"
)

const signatureHeader = "Stripe-Signature"

type Processor interface {
	Handle(ctx context.Context, payload []byte, signature string) (webhooks.Result, error)
}

type Handler struct {
	Processor Processor
}

func NewHandler(processor Processor) *Handler {
	return &Handler{Processor: processor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/stripe", h.handleStripe)
}

type receipt struct {
	Received  bool   `json:"received"`
	EventID   string `json:"eventId,omitempty"`
	Type      string `json:"type,omitempty"`
	Duplicate bool   `json:"duplicate"`
	Ignored   bool   `json:"ignored"`
}

// handleStripe must see the raw body; the signature covers the exact bytes sent.
func (h *Handler) handleStripe(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "unable to read webhook body", requestID)
		return
	}

	result, err := h.Processor.Handle(r.Context(), payload, r.Header.Get(signatureHeader))
	switch {
	case errors.Is(err, payments.ErrInvalidSignature):
		api.Fail(w, http.StatusBadRequest, "invalid_signature", err.Error(), requestID)
		return
	case errors.Is(err, payments.ErrDisabled):
		api.Fail(w, http.StatusServiceUnavailable, "payments_unavailable", err.Error(), requestID)
		return
	case err != nil:
		// Non-2xx makes Stripe redeliver the event.
		slog.Error("stripe webhook failed", "eventId", result.EventID, "type", result.Type, "err", err)
		api.Fail(w, http.StatusInternalServerError, "webhook_failed", "webhook processing failed", requestID)
		return
	}

	api.Success(w, receipt{
		Received:  true,
		EventID:   result.EventID,
		Type:      result.Type,
		Duplicate: result.Duplicate,
		Ignored:   result.Ignored,
	}, requestID)
}
