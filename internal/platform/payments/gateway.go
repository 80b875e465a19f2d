// Package payments wraps Stripe: employer PaymentIntents, Express accounts for workers,
// payout transfers, refunds and signed webhook events.
package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrDisabled         = errors.New("payments are not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

const (
	IntentSucceeded      = "succeeded"
	IntentProcessing     = "processing"
	IntentRequiresAction = "requires_action"
	IntentCanceled       = "canceled"
)

type Gateway interface {
	CreatePaymentIntent(ctx context.Context, params IntentParams) (PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (PaymentIntent, error)
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreateConnectedAccount(ctx context.Context, email string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	GetAccount(ctx context.Context, accountID string) (Account, error)
	CreateTransfer(ctx context.Context, params TransferParams) (Transfer, error)
	CreateRefund(ctx context.Context, paymentIntentID string) (Refund, error)
	ParseWebhook(payload []byte, signature string) (Event, error)
}

type IntentParams struct {
	AmountCents    int64
	Currency       string
	CustomerID     string
	TransferGroup  string
	Description    string
	ReceiptEmail   string
	IdempotencyKey string
	Metadata       map[string]string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
	Currency     string
}

type Account struct {
	ID               string
	PayoutsEnabled   bool
	ChargesEnabled   bool
	DetailsSubmitted bool
}

type TransferParams struct {
	AmountCents    int64
	Currency       string
	Destination    string
	TransferGroup  string
	IdempotencyKey string
	Metadata       map[string]string
}

type Transfer struct {
	ID          string
	AmountCents int64
}

type Refund struct {
	ID     string
	Status string
}

var hundred = decimal.NewFromInt(100)

// ToCents rounds half away from zero.
func ToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

func FromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}
