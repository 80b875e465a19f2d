package webhookshandler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickshift/internal/domain/webhooks"
	"quickshift/internal/platform/payments"
)

type fakeProcessor struct {
	result    webhooks.Result
	err       error
	payload   []byte
	signature string
}

func (f *fakeProcessor) Handle(_ context.Context, payload []byte, signature string) (webhooks.Result, error) {
	f.payload, f.signature = payload, signature
	return f.result, f.err
}

func post(t *testing.T, p *fakeProcessor, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(p).RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPassesRawBodyAndSignature(t *testing.T) {
	p := &fakeProcessor{result: webhooks.Result{EventID: "evt_1", Type: "payment_intent.succeeded"}}
	body := `{"id":"evt_1",  "type":"payment_intent.succeeded"}`
	rec := post(t, p, body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, string(p.payload))
	assert.Equal(t, "t=1,v1=abc", p.signature)
	assert.Contains(t, rec.Body.String(), `"received":true`)
	assert.Contains(t, rec.Body.String(), `"duplicate":false`)
}

func TestResponses(t *testing.T) {
	tests := []struct {
		name     string
		result   webhooks.Result
		err      error
		wantCode int
		want     string
	}{
		{name: "duplicate", result: webhooks.Result{EventID: "evt_1", Duplicate: true}, wantCode: http.StatusOK, want: `"duplicate":true`},
		{name: "ignored", result: webhooks.Result{EventID: "evt_2", Ignored: true}, wantCode: http.StatusOK, want: `"ignored":true`},
		{name: "bad signature", err: payments.ErrInvalidSignature, wantCode: http.StatusBadRequest, want: "invalid_signature"},
		{name: "disabled", err: payments.ErrDisabled, wantCode: http.StatusServiceUnavailable, want: "payments_unavailable"},
		{name: "processing error", err: errors.New("db down"), wantCode: http.StatusInternalServerError, want: "webhook_failed"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, &fakeProcessor{result: tc.result, err: tc.err}, `{}`)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}
