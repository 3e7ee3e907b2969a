package payment

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	intent       *Intent
	err          error
	lastAmount   int64
	lastCurrency string
	lastMetadata map[string]string
	refundID     string
	refundErr    error
	calls        int
}

func (s *stubProvider) CreateIntent(_ context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	s.calls++
	s.lastAmount = amountMinor
	s.lastCurrency = currency
	s.lastMetadata = metadata
	return s.intent, s.err
}

func (s *stubProvider) Refund(_ context.Context, _ string) (string, error) {
	return s.refundID, s.refundErr
}

func TestCreateIntentValidation(t *testing.T) {
	svc := New(&stubProvider{})

	if _, err := svc.CreateIntent(context.Background(), 0, Currency, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.CreateIntent(context.Background(), -500, Currency, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative amount, got %v", err)
	}
	if _, err := svc.CreateIntent(context.Background(), 2500, "  ", nil); !errors.Is(err, ErrCurrencyRequired) {
		t.Fatalf("expected ErrCurrencyRequired, got %v", err)
	}
}

func TestCreateIntentPassesThrough(t *testing.T) {
	provider := &stubProvider{intent: &Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}}
	svc := New(provider)

	meta := map[string]string{"collaborativePurchaseId": "p1"}
	intent, err := svc.CreateIntent(context.Background(), 2500, Currency, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.ClientSecret != "pi_1_secret" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
	if provider.lastAmount != 2500 || provider.lastCurrency != Currency {
		t.Fatalf("provider got amount=%d currency=%q", provider.lastAmount, provider.lastCurrency)
	}
	if provider.lastMetadata["collaborativePurchaseId"] != "p1" {
		t.Fatalf("metadata not forwarded: %+v", provider.lastMetadata)
	}
}

func TestRefundRequiresIntentID(t *testing.T) {
	svc := New(&stubProvider{refundID: "re_1"})
	if _, err := svc.Refund(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty intent id")
	}
	id, err := svc.Refund(context.Background(), "pi_1")
	if err != nil || id != "re_1" {
		t.Fatalf("expected re_1, got %q err %v", id, err)
	}
}
