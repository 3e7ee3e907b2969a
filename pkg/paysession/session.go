package paysession

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Currency for every collaborative purchase share.
const Currency = "usd"

var (
	// ErrNoClientSecret means Pay was called before EnsureIntent succeeded.
	ErrNoClientSecret = errors.New("payment intent has not been created")
	// ErrPaymentInFlight means another Pay call is still running.
	ErrPaymentInFlight = errors.New("a payment attempt is already in progress")
	// ErrNotPayable means the session no longer accepts a payment: the
	// deadline passed, the purchase left the pending state or this
	// participant already paid or declined.
	ErrNotPayable = errors.New("this share can no longer be paid")
)

// Purchase is the client-side view of a collaborative purchase. Amounts are
// dollars as served on the wire.
type Purchase struct {
	ID           string        `json:"id"`
	ProductID    string        `json:"productId"`
	ProductName  string        `json:"productName"`
	ProductImage string        `json:"productImage"`
	Quantity     int           `json:"quantity"`
	TotalAmount  float64       `json:"totalAmount"`
	ShareAmount  float64       `json:"shareAmount"`
	CreatorEmail string        `json:"creatorEmail"`
	CreatorName  string        `json:"creatorName"`
	Status       string        `json:"status"`
	Deadline     time.Time     `json:"deadline"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Participants []Participant `json:"participants"`
}

// ShareCents converts the dollar share into the currency's minor unit,
// rounding to the nearest cent.
func (p Purchase) ShareCents() int64 {
	return decimal.NewFromFloat(p.ShareAmount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Participant is the invitee the payment link belongs to.
type Participant struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	PaymentStatus string `json:"paymentStatus"`
	PaymentLink   string `json:"paymentLink"`
}

type sessionEnvelope struct {
	CollaborativePurchase Purchase    `json:"collaborativePurchase"`
	Participant           Participant `json:"participant"`
	TimeRemaining         int64       `json:"timeRemaining"`
}

// Session is one invitee's live view of a payment link: the purchase
// snapshot, their participant record and the time left on the deadline.
// All methods are safe for concurrent use.
type Session struct {
	client *Client
	link   string

	mu          sync.Mutex
	purchase    Purchase
	participant Participant
	remaining   time.Duration
	fetchedAt   time.Time

	intentMu     sync.Mutex
	intentID     string
	clientSecret string

	paying atomic.Bool
}

// LoadSession fetches the payment session behind a payment link.
func (c *Client) LoadSession(ctx context.Context, link string) (*Session, error) {
	s := &Session{client: c, link: link}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh re-fetches the session from the backend.
func (s *Session) Refresh(ctx context.Context) error {
	var env sessionEnvelope
	if err := s.client.getJSON(ctx, s.paymentPath(), &env); err != nil {
		return err
	}
	s.mu.Lock()
	s.purchase = env.CollaborativePurchase
	s.participant = env.Participant
	s.remaining = time.Duration(env.TimeRemaining) * time.Millisecond
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// Purchase returns the latest purchase snapshot.
func (s *Session) Purchase() Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purchase
}

// Participant returns this invitee's latest participant record.
func (s *Session) Participant() Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

// Remaining returns the time left on the deadline, adjusted for the time
// elapsed since the last refresh and floored at zero.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	left := s.remaining - time.Since(s.fetchedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Payable reports whether this share can still be paid: time remains, the
// purchase is pending and the participant has neither paid nor declined.
func (s *Session) Payable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remaining-time.Since(s.fetchedAt) <= 0 {
		return false
	}
	return s.purchase.Status == "pending" && s.participant.PaymentStatus == "pending"
}

// EnsureIntent creates the payment intent for this share if one has not been
// created yet and returns its client secret. Concurrent callers share a
// single intent: only one request reaches the backend, later calls return
// the stored secret. A failed attempt leaves no state behind, so it can be
// retried.
func (s *Session) EnsureIntent(ctx context.Context) (string, error) {
	s.intentMu.Lock()
	defer s.intentMu.Unlock()
	if s.clientSecret != "" {
		return s.clientSecret, nil
	}
	if !s.Payable() {
		return "", ErrNotPayable
	}

	s.mu.Lock()
	purchase, participant := s.purchase, s.participant
	s.mu.Unlock()

	req := map[string]any{
		"amount":   purchase.ShareCents(),
		"currency": Currency,
		"metadata": map[string]string{
			"collaborativePurchaseId": purchase.ID,
			"participantEmail":        participant.Email,
			"paymentLink":             s.link,
		},
	}
	var resp struct {
		PaymentIntentID string `json:"paymentIntentId"`
		ClientSecret    string `json:"clientSecret"`
	}
	if err := s.client.postJSON(ctx, "/payments/create-intent", req, &resp); err != nil {
		return "", err
	}
	s.intentID = resp.PaymentIntentID
	s.clientSecret = resp.ClientSecret
	return s.clientSecret, nil
}

// Pay confirms the card payment for this share and reports the result to the
// backend. EnsureIntent must have succeeded first. Only one Pay attempt may
// run at a time.
func (s *Session) Pay(ctx context.Context, card Card) error {
	if !s.paying.CompareAndSwap(false, true) {
		return ErrPaymentInFlight
	}
	defer s.paying.Store(false)

	s.intentMu.Lock()
	secret := s.clientSecret
	s.intentMu.Unlock()
	if secret == "" {
		return ErrNoClientSecret
	}

	email := s.Participant().Email
	result, err := s.client.confirmer.ConfirmCardPayment(ctx, secret, card, BillingDetails{
		Name:  billingName(email),
		Email: email,
	})
	if err != nil {
		return fmt.Errorf("confirm card payment: %w", err)
	}
	if result.Status != "succeeded" {
		return fmt.Errorf("payment did not complete: status %s", result.Status)
	}

	report := map[string]string{
		"paymentIntentId": result.IntentID,
		"email":           email,
	}
	if err := s.client.postJSON(ctx, s.paymentPath(), report, nil); err != nil {
		return fmt.Errorf("report payment: %w", err)
	}
	return s.Refresh(ctx)
}

// Decline turns down this share after the confirm callback approves it. When
// confirm is nil or returns false nothing is sent and Decline reports false.
// Declining is only possible while the share is still payable, and it
// cancels the whole purchase for everyone.
func (s *Session) Decline(ctx context.Context, confirm func() bool) (bool, error) {
	if !s.Payable() {
		return false, ErrNotPayable
	}
	if confirm == nil || !confirm() {
		return false, nil
	}
	path := "/collaborative-purchases/decline/" + url.PathEscape(s.link)
	body := map[string]string{"email": s.Participant().Email}
	if err := s.client.postJSON(ctx, path, body, nil); err != nil {
		return false, err
	}
	if err := s.Refresh(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Session) paymentPath() string {
	return "/collaborative-purchases/payment/" + url.PathEscape(s.link)
}

// billingName derives a display name from the invitee's email local part.
func billingName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
