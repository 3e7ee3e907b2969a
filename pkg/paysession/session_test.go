package paysession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubConfirmer struct {
	result *ConfirmResult
	err    error

	mu      sync.Mutex
	calls   int
	secret  string
	billing BillingDetails
	block   chan struct{}
}

func (s *stubConfirmer) ConfirmCardPayment(_ context.Context, clientSecret string, _ Card, billing BillingDetails) (*ConfirmResult, error) {
	s.mu.Lock()
	s.calls++
	s.secret = clientSecret
	s.billing = billing
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	return s.result, s.err
}

type backend struct {
	mu          sync.Mutex
	envelope    sessionEnvelope
	sessionGets int
	intentPosts int
	intentBody  map[string]any
	intentFail  int32
	reports     []map[string]string
	declines    int
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /collaborative-purchases/payment/{link}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.sessionGets++
		env := b.envelope
		b.mu.Unlock()
		json.NewEncoder(w).Encode(env)
	})
	mux.HandleFunc("POST /collaborative-purchases/payment/{link}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.reports = append(b.reports, body)
		env := b.envelope
		b.mu.Unlock()
		json.NewEncoder(w).Encode(env.CollaborativePurchase)
	})
	mux.HandleFunc("POST /collaborative-purchases/decline/{link}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.declines++
		env := b.envelope
		b.mu.Unlock()
		json.NewEncoder(w).Encode(env.CollaborativePurchase)
	})
	mux.HandleFunc("POST /payments/create-intent", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&b.intentFail) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"message": "payment provider error"})
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.intentPosts++
		b.intentBody = body
		n := b.intentPosts
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{
			"paymentIntentId": fmt.Sprintf("pi_%d", n),
			"clientSecret":    fmt.Sprintf("pi_%d_secret", n),
		})
	})
	return mux
}

func testEnvelope() sessionEnvelope {
	return sessionEnvelope{
		CollaborativePurchase: Purchase{
			ID:          "cp1",
			ProductName: "Gift Box",
			TotalAmount: 70.10,
			ShareAmount: 23.37,
			Status:      "pending",
			Deadline:    time.Now().Add(48 * time.Hour),
			UpdatedAt:   time.Now(),
		},
		Participant: Participant{
			ID:            "pp1",
			Email:         "alice@example.com",
			PaymentStatus: "pending",
			PaymentLink:   "link-a",
		},
		TimeRemaining: (48 * time.Hour).Milliseconds(),
	}
}

func newTestSession(t *testing.T, b *backend, confirmer CardConfirmer) *Session {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, confirmer)
	s, err := client.LoadSession(context.Background(), "link-a")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return s
}

func TestLoadSession(t *testing.T) {
	b := &backend{envelope: testEnvelope()}
	s := newTestSession(t, b, &stubConfirmer{})

	if got := s.Purchase().ProductName; got != "Gift Box" {
		t.Errorf("product name = %q", got)
	}
	if got := s.Participant().Email; got != "alice@example.com" {
		t.Errorf("participant email = %q", got)
	}
	remaining := s.Remaining()
	if remaining <= 47*time.Hour || remaining > 48*time.Hour {
		t.Errorf("remaining = %v, want about 48h", remaining)
	}
	if !s.Payable() {
		t.Error("fresh pending session should be payable")
	}
}

func TestShareCentsRoundsToNearestCent(t *testing.T) {
	cases := []struct {
		dollars float64
		want    int64
	}{
		{23.37, 2337},
		{10, 1000},
		{0.1, 10},
		{19.995, 2000},
	}
	for _, tc := range cases {
		p := Purchase{ShareAmount: tc.dollars}
		if got := p.ShareCents(); got != tc.want {
			t.Errorf("ShareCents(%v) = %d, want %d", tc.dollars, got, tc.want)
		}
	}
}

func TestPayableFalseWhenExpired(t *testing.T) {
	env := testEnvelope()
	env.TimeRemaining = 0
	b := &backend{envelope: env}
	s := newTestSession(t, b, &stubConfirmer{})

	if s.Payable() {
		t.Error("expired session must not be payable")
	}
	if s.Remaining() != 0 {
		t.Errorf("remaining = %v, want 0", s.Remaining())
	}
}

func TestPayableFalseWhenAlreadyPaid(t *testing.T) {
	env := testEnvelope()
	env.Participant.PaymentStatus = "paid"
	b := &backend{envelope: env}
	s := newTestSession(t, b, &stubConfirmer{})

	if s.Payable() {
		t.Error("paid participant must not be payable")
	}
}

func TestPayableFalseWhenPurchaseCancelled(t *testing.T) {
	env := testEnvelope()
	env.CollaborativePurchase.Status = "cancelled"
	b := &backend{envelope: env}
	s := newTestSession(t, b, &stubConfirmer{})

	if s.Payable() {
		t.Error("cancelled purchase must not be payable")
	}
}

func TestEnsureIntentSendsShareInCents(t *testing.T) {
	b := &backend{envelope: testEnvelope()}
	s := newTestSession(t, b, &stubConfirmer{})

	secret, err := s.EnsureIntent(context.Background())
	if err != nil {
		t.Fatalf("ensure intent: %v", err)
	}
	if secret != "pi_1_secret" {
		t.Fatalf("secret = %q", secret)
	}

	b.mu.Lock()
	body := b.intentBody
	b.mu.Unlock()
	if got := body["amount"].(float64); got != 2337 {
		t.Errorf("amount = %v, want 2337", got)
	}
	if got := body["currency"].(string); got != "usd" {
		t.Errorf("currency = %q", got)
	}
	meta := body["metadata"].(map[string]any)
	if meta["collaborativePurchaseId"] != "cp1" || meta["participantEmail"] != "alice@example.com" || meta["paymentLink"] != "link-a" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestEnsureIntentIsSingleFlight(t *testing.T) {
	b := &backend{envelope: testEnvelope()}
	s := newTestSession(t, b, &stubConfirmer{})

	var wg sync.WaitGroup
	secrets := make([]string, 10)
	for i := range secrets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			secret, err := s.EnsureIntent(context.Background())
			if err != nil {
				t.Errorf("ensure intent: %v", err)
				return
			}
			secrets[i] = secret
		}(i)
	}
	wg.Wait()

	b.mu.Lock()
	posts := b.intentPosts
	b.mu.Unlock()
	if posts != 1 {
		t.Fatalf("expected a single create-intent call, got %d", posts)
	}
	for _, secret := range secrets {
		if secret != secrets[0] {
			t.Fatalf("callers saw different secrets: %v", secrets)
		}
	}
}

func TestEnsureIntentRetriesAfterFailure(t *testing.T) {
	b := &backend{envelope: testEnvelope()}
	atomic.StoreInt32(&b.intentFail, 1)
	s := newTestSession(t, b, &stubConfirmer{})

	if _, err := s.EnsureIntent(context.Background()); err == nil {
		t.Fatal("expected failure from backend")
	}

	atomic.StoreInt32(&b.intentFail, 0)
	secret, err := s.EnsureIntent(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if secret == "" {
		t.Fatal("expected a secret on retry")
	}
}

func TestEnsureIntentRefusesUnpayableSession(t *testing.T) {
	env := testEnvelope()
	env.TimeRemaining = 0
	b := &backend{envelope: env}
	s := newTestSession(t, b, &stubConfirmer{})

	if _, err := s.EnsureIntent(context.Background()); !errors.Is(err, ErrNotPayable) {
		t.Fatalf("expected ErrNotPayable, got %v", err)
	}
}

func TestPayRequiresIntent(t *testing.T) {
	b := &backend{envelope: testEnvelope()}
	s := newTestSession(t, b, &stubConfirmer{})

	if err := s.Pay(context.Background(), Card{}); !errors.Is(err, ErrNoClientSecret) {
		t.Fatalf("expected ErrNoClientSecret, got %v", err)
	}
}

func TestPayConfirmsAndReports(t *testing.T) {
	b := &backend{envelope: testEnvelope()}
	confirmer := &stubConfirmer{result: &ConfirmResult{IntentID: "pi_1", Status: "succeeded"}}
	s := newTestSession(t, b, confirmer)

	if _, err := s.EnsureIntent(context.Background()); err != nil {
		t.Fatalf("ensure intent: %v", err)
	}
	if err := s.Pay(context.Background(), Card{Number: "4242424242424242"}); err != nil {
		t.Fatalf("pay: %v", err)
	}

	confirmer.mu.Lock()
	billing := confirmer.billing
	secret := confirmer.secret
	confirmer.mu.Unlock()
	if secret != "pi_1_secret" {
		t.Errorf("confirmed with secret %q", secret)
	}
	if billing.Name != "alice" || billing.Email != "alice@example.com" {
		t.Errorf("billing = %+v, want name from email local part", billing)
	}

	b.mu.Lock()
	reports := b.reports
	gets := b.sessionGets
	b.mu.Unlock()
	if len(reports) != 1 || reports[0]["paymentIntentId"] != "pi_1" || reports[0]["email"] != "alice@example.com" {
		t.Fatalf("reports = %v", reports)
	}
	// Initial load plus the refresh after reporting.
	if gets < 2 {
		t.Errorf("expected a refresh after payment, gets = %d", gets)
	}
}

func TestPayStopsOnUnsuccessfulConfirmation(t *testing.T) {
	b := &backend{envelope: testEnvelope()}
	confirmer := &stubConfirmer{result: &ConfirmResult{IntentID: "pi_1", Status: "requires_action"}}
	s := newTestSession(t, b, confirmer)

	if _, err := s.EnsureIntent(context.Background()); err != nil {
		t.Fatalf("ensure intent: %v", err)
	}
	if err := s.Pay(context.Background(), Card{}); err == nil {
		t.Fatal("expected error for unconfirmed payment")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.reports) != 0 {
		t.Fatalf("no report expected, got %v", b.reports)
	}
}

func TestPayRejectsConcurrentAttempts(t *testing.T) {
	b := &backend{envelope: testEnvelope()}
	block := make(chan struct{})
	confirmer := &stubConfirmer{result: &ConfirmResult{IntentID: "pi_1", Status: "succeeded"}, block: block}
	s := newTestSession(t, b, confirmer)

	if _, err := s.EnsureIntent(context.Background()); err != nil {
		t.Fatalf("ensure intent: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Pay(context.Background(), Card{}) }()

	// Wait until the first attempt is inside the confirmer.
	deadline := time.After(2 * time.Second)
	for {
		confirmer.mu.Lock()
		started := confirmer.calls > 0
		confirmer.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first payment attempt never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := s.Pay(context.Background(), Card{}); !errors.Is(err, ErrPaymentInFlight) {
		t.Fatalf("expected ErrPaymentInFlight, got %v", err)
	}

	close(block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first payment failed: %v", err)
	}
}

func TestDeclineWithoutConfirmationDoesNothing(t *testing.T) {
	b := &backend{envelope: testEnvelope()}
	s := newTestSession(t, b, &stubConfirmer{})

	declined, err := s.Decline(context.Background(), func() bool { return false })
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined {
		t.Fatal("decline must not proceed without confirmation")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.declines != 0 {
		t.Fatalf("expected no decline call, got %d", b.declines)
	}
}

func TestDeclineRefusesUnpayableSession(t *testing.T) {
	env := testEnvelope()
	env.Participant.PaymentStatus = "paid"
	b := &backend{envelope: env}
	s := newTestSession(t, b, &stubConfirmer{})

	if _, err := s.Decline(context.Background(), func() bool { return true }); !errors.Is(err, ErrNotPayable) {
		t.Fatalf("expected ErrNotPayable, got %v", err)
	}
}

func TestDeclineConfirmed(t *testing.T) {
	b := &backend{envelope: testEnvelope()}
	s := newTestSession(t, b, &stubConfirmer{})

	declined, err := s.Decline(context.Background(), func() bool { return true })
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if !declined {
		t.Fatal("expected decline to proceed")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.declines != 1 {
		t.Fatalf("declines = %d", b.declines)
	}
}
