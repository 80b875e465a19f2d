package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

type Stripe struct {
	api           *client.API
	webhookSecret string
	retry         retryPolicy
}

func NewStripe(secretKey, webhookSecret string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api, webhookSecret: webhookSecret, retry: defaultRetryPolicy()}
}

// New returns Disabled when no secret key is configured.
func New(secretKey, webhookSecret string) Gateway {
	if secretKey == "" {
		return Disabled{}
	}
	return NewStripe(secretKey, webhookSecret)
}

func (s *Stripe) CreatePaymentIntent(ctx context.Context, in IntentParams) (PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.AmountCents),
		Currency: stripe.String(in.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if in.CustomerID != "" {
		params.Customer = stripe.String(in.CustomerID)
	}
	if in.TransferGroup != "" {
		params.TransferGroup = stripe.String(in.TransferGroup)
	}
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	if in.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(in.ReceiptEmail)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	params.Context = ctx

	pi, err := withRetry(ctx, s.retry, "payment_intent.create", func() (*stripe.PaymentIntent, error) {
		return s.api.PaymentIntents.New(params)
	})
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return toPaymentIntent(pi), nil
}

func (s *Stripe) GetPaymentIntent(ctx context.Context, id string) (PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := withRetry(ctx, s.retry, "payment_intent.get", func() (*stripe.PaymentIntent, error) {
		return s.api.PaymentIntents.Get(id, params)
	})
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("get payment intent: %w", err)
	}
	return toPaymentIntent(pi), nil
}

func (s *Stripe) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	cust, err := withRetry(ctx, s.retry, "customer.create", func() (*stripe.Customer, error) {
		return s.api.Customers.New(params)
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return cust.ID, nil
}

func (s *Stripe) CreateConnectedAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	acct, err := withRetry(ctx, s.retry, "account.create", func() (*stripe.Account, error) {
		return s.api.Accounts.New(params)
	})
	if err != nil {
		return "", fmt.Errorf("create connected account: %w", err)
	}
	return acct.ID, nil
}

func (s *Stripe) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx
	link, err := withRetry(ctx, s.retry, "account_link.create", func() (*stripe.AccountLink, error) {
		return s.api.AccountLinks.New(params)
	})
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}
	return link.URL, nil
}

func (s *Stripe) GetAccount(ctx context.Context, accountID string) (Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := withRetry(ctx, s.retry, "account.get", func() (*stripe.Account, error) {
		return s.api.Accounts.GetByID(accountID, params)
	})
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return Account{
		ID:               acct.ID,
		PayoutsEnabled:   acct.PayoutsEnabled,
		ChargesEnabled:   acct.ChargesEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}, nil
}

func (s *Stripe) CreateTransfer(ctx context.Context, in TransferParams) (Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(in.AmountCents),
		Currency:    stripe.String(in.Currency),
		Destination: stripe.String(in.Destination),
	}
	if in.TransferGroup != "" {
		params.TransferGroup = stripe.String(in.TransferGroup)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	params.Context = ctx
	tr, err := withRetry(ctx, s.retry, "transfer.create", func() (*stripe.Transfer, error) {
		return s.api.Transfers.New(params)
	})
	if err != nil {
		return Transfer{}, fmt.Errorf("create transfer: %w", err)
	}
	return Transfer{ID: tr.ID, AmountCents: tr.Amount}, nil
}

func (s *Stripe) CreateRefund(ctx context.Context, paymentIntentID string) (Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.SetIdempotencyKey("refund-" + paymentIntentID)
	params.Context = ctx
	r, err := withRetry(ctx, s.retry, "refund.create", func() (*stripe.Refund, error) {
		return s.api.Refunds.New(params)
	})
	if err != nil {
		return Refund{}, fmt.Errorf("create refund: %w", err)
	}
	return Refund{ID: r.ID, Status: string(r.Status)}, nil
}

func (s *Stripe) ParseWebhook(payload []byte, signature string) (Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data != nil {
		out.Object = evt.Data.Raw
	}
	return out, nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) PaymentIntent {
	return PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}
}
