package httpserver

import (
	"time"

	"bestwishes/internal/domain"
)

// Amounts are stored as integer cents and exposed on the wire as dollar
// floats, matching what the storefront renders.
type purchaseJSON struct {
	ID           string            `json:"id"`
	ProductID    string            `json:"productId"`
	ProductName  string            `json:"productName"`
	ProductImage string            `json:"productImage,omitempty"`
	UnitPrice    float64           `json:"unitPrice"`
	Quantity     int               `json:"quantity"`
	TotalAmount  float64           `json:"totalAmount"`
	ShareAmount  float64           `json:"shareAmount"`
	CreatedBy    string            `json:"createdBy"`
	CreatorEmail string            `json:"creatorEmail"`
	CreatorName  string            `json:"creatorName,omitempty"`
	Status       string            `json:"status"`
	Deadline     time.Time         `json:"deadline"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	CancelledAt  *time.Time        `json:"cancelledAt,omitempty"`
	OrderID      *string           `json:"orderId,omitempty"`
	Participants []participantJSON `json:"participants"`
}

type participantJSON struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	PaymentStatus   string     `json:"paymentStatus"`
	PaymentLink     string     `json:"paymentLink"`
	PaidAt          *time.Time `json:"paidAt,omitempty"`
	PaymentIntentID string     `json:"paymentIntentId,omitempty"`
	RefundID        string     `json:"refundId,omitempty"`
}

func toPurchaseJSON(p *domain.CollaborativePurchase) purchaseJSON {
	out := purchaseJSON{
		ID:           p.ID,
		ProductID:    p.ProductID,
		ProductName:  p.ProductName,
		ProductImage: p.ProductImage,
		UnitPrice:    dollars(p.UnitPriceCents),
		Quantity:     p.Quantity,
		TotalAmount:  dollars(p.TotalCents),
		ShareAmount:  dollars(p.ShareCents),
		CreatedBy:    p.CreatedBy,
		CreatorEmail: p.CreatorEmail,
		CreatorName:  p.CreatorName,
		Status:       string(p.Status),
		Deadline:     p.Deadline,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		CompletedAt:  p.CompletedAt,
		CancelledAt:  p.CancelledAt,
		OrderID:      p.OrderID,
		Participants: make([]participantJSON, 0, len(p.Participants)),
	}
	for _, part := range p.Participants {
		out.Participants = append(out.Participants, toParticipantJSON(part))
	}
	return out
}

func toParticipantJSON(p domain.Participant) participantJSON {
	return participantJSON{
		ID:              p.ID,
		Email:           p.Email,
		PaymentStatus:   string(p.Status),
		PaymentLink:     p.PaymentLink,
		PaidAt:          p.PaidAt,
		PaymentIntentID: p.PaymentIntentID,
		RefundID:        p.RefundID,
	}
}

func dollars(cents int64) float64 {
	return float64(cents) / 100
}
