package payments

import "context"

// Disabled is used when STRIPE_SECRET_KEY is unset; every call fails with ErrDisabled.
type Disabled struct{}

func (Disabled) CreatePaymentIntent(context.Context, IntentParams) (PaymentIntent, error) {
	return PaymentIntent{}, ErrDisabled
}

func (Disabled) GetPaymentIntent(context.Context, string) (PaymentIntent, error) {
	return PaymentIntent{}, ErrDisabled
}

func (Disabled) CreateCustomer(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) CreateConnectedAccount(context.Context, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) CreateAccountLink(context.Context, string, string, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) GetAccount(context.Context, string) (Account, error) {
	return Account{}, ErrDisabled
}

func (Disabled) CreateTransfer(context.Context, TransferParams) (Transfer, error) {
	return Transfer{}, ErrDisabled
}

func (Disabled) CreateRefund(context.Context, string) (Refund, error) {
	return Refund{}, ErrDisabled
}

func (Disabled) ParseWebhook([]byte, string) (Event, error) {
	return Event{}, ErrDisabled
}
