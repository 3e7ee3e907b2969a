package domain

import "time"

// PurchaseStatus is the purchase-level lifecycle state. Transitions are
// driven server-side only: all participants paid moves a pending purchase to
// completed; a decline or a creator cancellation moves it to cancelled; a
// missed deadline moves it to expired; refunds after cancellation move it to
// refunded.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseCancelled PurchaseStatus = "cancelled"
	PurchaseExpired   PurchaseStatus = "expired"
	PurchaseRefunded  PurchaseStatus = "refunded"
)

// ParticipantStatus tracks one invitee's payment state within a purchase.
type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantPaid     ParticipantStatus = "paid"
	ParticipantDeclined ParticipantStatus = "declined"
	ParticipantRefunded ParticipantStatus = "refunded"
)

type CollaborativePurchase struct {
	ID             string
	ProductID      string
	ProductName    string
	ProductImage   string
	UnitPriceCents int64
	Quantity       int
	TotalCents     int64
	ShareCents     int64
	CreatedBy      string
	CreatorEmail   string
	CreatorName    string
	Participants   []Participant
	Status         PurchaseStatus
	Deadline       time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	OrderID        *string
}

// Participant is owned by exactly one CollaborativePurchase; the email is its
// identity within the purchase and PaymentLink is the opaque token mailed to
// the invitee.
type Participant struct {
	ID              string
	PurchaseID      string
	Email           string
	Status          ParticipantStatus
	PaymentLink     string
	PaidAt          *time.Time
	PaymentIntentID string
	RefundID        string
}

// Active reports whether the purchase still accepts payments or declines.
func (p *CollaborativePurchase) Active() bool {
	return p.Status == PurchasePending
}

// AllPaid reports whether every participant has paid their share.
func (p *CollaborativePurchase) AllPaid() bool {
	if len(p.Participants) == 0 {
		return false
	}
	for _, part := range p.Participants {
		if part.Status != ParticipantPaid {
			return false
		}
	}
	return true
}

// ParticipantByLink returns the participant holding the payment-link token.
func (p *CollaborativePurchase) ParticipantByLink(link string) *Participant {
	for i := range p.Participants {
		if p.Participants[i].PaymentLink == link {
			return &p.Participants[i]
		}
	}
	return nil
}

// TimeRemaining returns the duration until the deadline, floored at zero.
func (p *CollaborativePurchase) TimeRemaining(now time.Time) time.Duration {
	d := p.Deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
