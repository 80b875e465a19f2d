// Package paymentstest provides an in-memory payments.Gateway for service tests.
package paymentstest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"quickshift/internal/platform/payments"
)

type Gateway struct {
	mu sync.Mutex

	Intents   map[string]payments.PaymentIntent
	Accounts  map[string]payments.Account
	Transfers []payments.TransferParams
	Refunds   []string
	Customers []string

	// FailTransfersTo makes CreateTransfer fail for the listed destination accounts.
	FailTransfersTo map[string]error
	RefundErr       error
	Events          map[string]payments.Event

	byKey map[string]payments.Transfer
	seq   int
}

func New() *Gateway {
	return &Gateway{
		Intents:         map[string]payments.PaymentIntent{},
		Accounts:        map[string]payments.Account{},
		FailTransfersTo: map[string]error{},
		Events:          map[string]payments.Event{},
		byKey:           map[string]payments.Transfer{},
	}
}

func (g *Gateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq)
}

func (g *Gateway) CreatePaymentIntent(_ context.Context, in payments.IntentParams) (payments.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next("pi")
	pi := payments.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		AmountCents:  in.AmountCents,
		Currency:     in.Currency,
	}
	g.Intents[id] = pi
	return pi, nil
}

func (g *Gateway) GetPaymentIntent(_ context.Context, id string) (payments.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pi, ok := g.Intents[id]
	if !ok {
		return payments.PaymentIntent{}, errors.New("no such payment intent")
	}
	return pi, nil
}

// SetIntentStatus simulates the client confirming the intent.
func (g *Gateway) SetIntentStatus(id, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pi := g.Intents[id]
	pi.Status = status
	g.Intents[id] = pi
}

func (g *Gateway) CreateCustomer(_ context.Context, email, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Customers = append(g.Customers, email)
	return g.next("cus"), nil
}

func (g *Gateway) CreateConnectedAccount(_ context.Context, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next("acct")
	g.Accounts[id] = payments.Account{ID: id}
	return id, nil
}

func (g *Gateway) CreateAccountLink(_ context.Context, accountID, _, _ string) (string, error) {
	return "https://connect.stripe.test/onboarding/" + accountID, nil
}

func (g *Gateway) GetAccount(_ context.Context, accountID string) (payments.Account, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	acct, ok := g.Accounts[accountID]
	if !ok {
		return payments.Account{}, errors.New("no such account")
	}
	return acct, nil
}

func (g *Gateway) CreateTransfer(_ context.Context, in payments.TransferParams) (payments.Transfer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	// A repeated idempotency key returns the original transfer, as Stripe does.
	if tr, ok := g.byKey[in.IdempotencyKey]; ok && in.IdempotencyKey != "" {
		return tr, nil
	}
	if err, ok := g.FailTransfersTo[in.Destination]; ok {
		return payments.Transfer{}, err
	}
	g.Transfers = append(g.Transfers, in)
	tr := payments.Transfer{ID: g.next("tr"), AmountCents: in.AmountCents}
	if in.IdempotencyKey != "" {
		g.byKey[in.IdempotencyKey] = tr
	}
	return tr, nil
}

func (g *Gateway) CreateRefund(_ context.Context, paymentIntentID string) (payments.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RefundErr != nil {
		return payments.Refund{}, g.RefundErr
	}
	g.Refunds = append(g.Refunds, paymentIntentID)
	return payments.Refund{ID: g.next("re"), Status: "succeeded"}, nil
}

// ParseWebhook treats the signature as a key into Events.
func (g *Gateway) ParseWebhook(_ []byte, signature string) (payments.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	evt, ok := g.Events[signature]
	if !ok {
		return payments.Event{}, payments.ErrInvalidSignature
	}
	return evt, nil
}

// TransfersTo counts the transfers sent to one connected account.
func (g *Gateway) TransfersTo(destination string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, tr := range g.Transfers {
		if tr.Destination == destination {
			n++
		}
	}
	return n
}

func (g *Gateway) TransferCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Transfers)
}
