package purchase

import (
	"context"
	"time"

	"bestwishes/internal/domain"
)

type CreateParticipantInput struct {
	Email       string
	PaymentLink string
}

type CreatePurchaseInput struct {
	ProductID      string
	ProductName    string
	ProductImage   string
	UnitPriceCents int64
	Quantity       int
	TotalCents     int64
	ShareCents     int64
	CreatedBy      string
	Deadline       time.Time
	Participants   []CreateParticipantInput
}

type Repository interface {
	Create(ctx context.Context, in CreatePurchaseInput) (*domain.CollaborativePurchase, error)
	GetByID(ctx context.Context, id string) (*domain.CollaborativePurchase, error)
	GetByPaymentLink(ctx context.Context, link string) (*domain.CollaborativePurchase, error)
	ListForUser(ctx context.Context, userID, email string) ([]domain.CollaborativePurchase, error)
	// MarkPaid records a participant payment and, when it is the last unpaid
	// share, creates the order and completes the purchase in the same
	// transaction.
	MarkPaid(ctx context.Context, purchaseID, link, intentID string) (*domain.CollaborativePurchase, error)
	// Decline marks the participant declined and cancels the whole purchase.
	Decline(ctx context.Context, purchaseID, link string) (*domain.CollaborativePurchase, error)
	SetStatus(ctx context.Context, purchaseID string, status domain.PurchaseStatus) error
	MarkRefunded(ctx context.Context, participantID, refundID string) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}
