package payments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
)

// ExponentialBackoff doubles Base per attempt, capped at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Next returns the delay before the given 1-based attempt.
func (b ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base << (attempt - 1)
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}

type retryPolicy struct {
	attempts int
	backoff  ExponentialBackoff
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		attempts: 3,
		backoff:  ExponentialBackoff{Base: 200 * time.Millisecond, Max: 2 * time.Second},
	}
}

func withRetry[T any](ctx context.Context, policy retryPolicy, op string, call func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= policy.attempts; attempt++ {
		out, err = call()
		if err == nil || !retryable(err) || attempt == policy.attempts {
			return out, err
		}
		delay := policy.backoff.Next(attempt)
		slog.Warn("stripe call failed, retrying", "op", op, "attempt", attempt, "delay", delay, "err", err)
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-time.After(delay):
		}
	}
	return out, err
}

func retryable(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
		stripeErr.HTTPStatusCode == http.StatusTooManyRequests
}

// Declined reports whether Stripe definitely refused the request, so nothing was created and a
// new idempotency key is safe. Network failures, 5xx, 409 and 429 are ambiguous and return false.
func Declined(err error) bool {
	if errors.Is(err, ErrDisabled) {
		return true
	}
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	code := stripeErr.HTTPStatusCode
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError &&
		code != http.StatusConflict && code != http.StatusTooManyRequests
}
