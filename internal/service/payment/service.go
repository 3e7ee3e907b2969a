package payment

import (
	"context"
	"errors"
	"strings"
)

// Currency is the single settlement currency of the platform.
const Currency = "usd"

var (
	// ErrInvalidAmount indicates a zero or negative intent amount.
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrCurrencyRequired indicates a missing currency code.
	ErrCurrencyRequired = errors.New("amount and currency are required")
)

// Intent is the client-relevant slice of a provider payment intent.
type Intent struct {
	ID           string
	ClientSecret string
}

// Provider is the payment-provider capability the service needs. Stripe
// implements it in production; tests stub it.
type Provider interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
	Refund(ctx context.Context, paymentIntentID string) (string, error)
}

type Service struct {
	provider Provider
}

func New(provider Provider) *Service {
	return &Service{provider: provider}
}

// CreateIntent validates the request and asks the provider for a payment
// intent. Amount is in minor units (cents).
func (s *Service) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	if strings.TrimSpace(currency) == "" {
		return nil, ErrCurrencyRequired
	}
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.provider.CreateIntent(ctx, amountMinor, currency, metadata)
}

// Refund refunds the full amount of a previously confirmed intent and
// returns the provider refund id.
func (s *Service) Refund(ctx context.Context, paymentIntentID string) (string, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return "", errors.New("paymentIntentId required")
	}
	return s.provider.Refund(ctx, paymentIntentID)
}
