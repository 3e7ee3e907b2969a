package purchase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bestwishes/internal/domain"
	"bestwishes/internal/mailer"
	purchaserepo "bestwishes/internal/repository/purchase"
)

// Flat shipping charged on every collaborative purchase, in cents.
const shippingCents = 1000

const maxParticipants = 3

// ErrValidation wraps request-shape problems so callers can map them to a
// client error instead of a server one.
var ErrValidation = errors.New("invalid request")

type purchaseRepo interface {
	Create(ctx context.Context, in purchaserepo.CreatePurchaseInput) (*domain.CollaborativePurchase, error)
	GetByID(ctx context.Context, id string) (*domain.CollaborativePurchase, error)
	GetByPaymentLink(ctx context.Context, link string) (*domain.CollaborativePurchase, error)
	ListForUser(ctx context.Context, userID, email string) ([]domain.CollaborativePurchase, error)
	MarkPaid(ctx context.Context, purchaseID, link, intentID string) (*domain.CollaborativePurchase, error)
	Decline(ctx context.Context, purchaseID, link string) (*domain.CollaborativePurchase, error)
	SetStatus(ctx context.Context, purchaseID string, status domain.PurchaseStatus) error
	MarkRefunded(ctx context.Context, participantID, refundID string) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type refunder interface {
	Refund(ctx context.Context, paymentIntentID string) (string, error)
}

type Service struct {
	repo          purchaseRepo
	products      productRepo
	mail          mailer.Mailer
	refunder      refunder
	logger        *slog.Logger
	paymentWindow time.Duration
	now           func() time.Time
}

func New(repo purchaserepo.Repository, products productRepo, mail mailer.Mailer, refunder refunder, logger *slog.Logger, paymentWindow time.Duration) *Service {
	return &Service{
		repo:          repo,
		products:      products,
		mail:          mail,
		refunder:      refunder,
		logger:        logger,
		paymentWindow: paymentWindow,
		now:           time.Now,
	}
}

type CreateInput struct {
	ProductID    string   `json:"productId"`
	Quantity     int      `json:"quantity"`
	Participants []string `json:"participants"`
}

// Create validates the request, computes the equal split, mints one payment
// link per participant and persists the purchase, then mails the invitations.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.CollaborativePurchase, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, fmt.Errorf("%w: productId is required", ErrValidation)
	}
	if len(in.Participants) == 0 || len(in.Participants) > maxParticipants {
		return nil, fmt.Errorf("%w: participants must be an array with 1-%d emails", ErrValidation, maxParticipants)
	}
	emails := make([]string, 0, len(in.Participants))
	for _, raw := range in.Participants {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: invalid participant email %s", ErrValidation, raw)
		}
		emails = append(emails, email)
	}
	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	product, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", in.ProductID, domain.ErrNotFound)
		}
		return nil, err
	}

	unitPrice := product.EffectivePriceCents()
	total := unitPrice*int64(quantity) + shippingCents
	// The creator pays a share too.
	share := EqualShare(total, len(emails)+1)

	participants := make([]purchaserepo.CreateParticipantInput, 0, len(emails))
	for _, email := range emails {
		link, err := paymentLinkToken()
		if err != nil {
			return nil, fmt.Errorf("mint payment link: %w", err)
		}
		participants = append(participants, purchaserepo.CreateParticipantInput{Email: email, PaymentLink: link})
	}

	created, err := s.repo.Create(ctx, purchaserepo.CreatePurchaseInput{
		ProductID:      product.ID,
		ProductName:    product.Name,
		ProductImage:   product.ImageURL,
		UnitPriceCents: unitPrice,
		Quantity:       quantity,
		TotalCents:     total,
		ShareCents:     share,
		CreatedBy:      userID,
		Deadline:       s.now().Add(s.paymentWindow),
		Participants:   participants,
	})
	if err != nil {
		return nil, err
	}

	for _, part := range created.Participants {
		if err := s.mail.SendInvitation(ctx, part.Email, part.PaymentLink, *created); err != nil {
			s.logger.Warn("send invitation failed", "email", part.Email, "error", err)
		}
	}
	if err := s.mail.SendCreatorConfirmation(ctx, created.CreatorEmail, *created); err != nil {
		s.logger.Warn("send creator confirmation failed", "email", created.CreatorEmail, "error", err)
	}

	return created, nil
}

// GetByPaymentLink resolves the purchase and the participant addressed by the
// payment-link token, plus the time remaining until the deadline (floored at
// zero).
func (s *Service) GetByPaymentLink(ctx context.Context, link string) (*domain.CollaborativePurchase, *domain.Participant, time.Duration, error) {
	p, err := s.repo.GetByPaymentLink(ctx, link)
	if err != nil {
		return nil, nil, 0, err
	}
	part := p.ParticipantByLink(link)
	if part == nil {
		return nil, nil, 0, domain.ErrNotFound
	}
	return p, part, p.TimeRemaining(s.now()), nil
}

// RecordPayment marks the participant paid after a provider-confirmed
// payment. Completing the last outstanding share creates the creator's order
// and transitions the purchase to completed.
func (s *Service) RecordPayment(ctx context.Context, link, paymentIntentID string) (*domain.CollaborativePurchase, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, fmt.Errorf("%w: paymentIntentId is required", ErrValidation)
	}

	p, err := s.repo.GetByPaymentLink(ctx, link)
	if err != nil {
		return nil, err
	}
	part := p.ParticipantByLink(link)
	if part == nil {
		return nil, domain.ErrNotFound
	}
	if part.Status == domain.ParticipantPaid {
		return nil, domain.ErrAlreadyPaid
	}
	if p.Status != domain.PurchasePending && p.Status != domain.PurchaseCompleted {
		return nil, domain.ErrPurchaseNotActive
	}
	if s.now().After(p.Deadline) {
		// Lazy expiry: the sweep may not have run yet.
		if err := s.repo.SetStatus(ctx, p.ID, domain.PurchaseExpired); err != nil {
			s.logger.Warn("mark purchase expired failed", "purchase", p.ID, "error", err)
		}
		return nil, domain.ErrDeadlinePassed
	}

	updated, err := s.repo.MarkPaid(ctx, p.ID, link, paymentIntentID)
	if err != nil {
		return nil, err
	}

	if updated.Status == domain.PurchaseCompleted {
		s.notifyAll(ctx, updated, s.mail.SendCompletion)
	}
	return updated, nil
}

// Decline abandons the participant's share and cancels the purchase for all
// parties.
func (s *Service) Decline(ctx context.Context, link string) (*domain.CollaborativePurchase, error) {
	p, err := s.repo.GetByPaymentLink(ctx, link)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Decline(ctx, p.ID, link)
	if err != nil {
		return nil, err
	}
	s.notifyAll(ctx, updated, s.mail.SendCancellation)
	return updated, nil
}

// Cancel lets the creator abort an active purchase; paid participants are
// refunded through the payment provider.
func (s *Service) Cancel(ctx context.Context, purchaseID, userID string) (*domain.CollaborativePurchase, error) {
	p, err := s.repo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if p.CreatedBy != userID {
		return nil, domain.ErrNotCreator
	}
	if p.Status != domain.PurchasePending && p.Status != domain.PurchaseCompleted {
		return nil, domain.ErrPurchaseNotActive
	}

	if err := s.repo.SetStatus(ctx, p.ID, domain.PurchaseCancelled); err != nil {
		return nil, err
	}

	refunded := false
	for _, part := range p.Participants {
		if part.Status != domain.ParticipantPaid {
			continue
		}
		refundID, err := s.refunder.Refund(ctx, part.PaymentIntentID)
		if err != nil {
			s.logger.Error("refund failed", "purchase", p.ID, "participant", part.Email, "error", err)
			continue
		}
		if err := s.repo.MarkRefunded(ctx, part.ID, refundID); err != nil {
			s.logger.Error("record refund failed", "purchase", p.ID, "participant", part.Email, "error", err)
			continue
		}
		refunded = true
	}
	if refunded {
		if err := s.repo.SetStatus(ctx, p.ID, domain.PurchaseRefunded); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.notifyAll(ctx, updated, s.mail.SendCancellation)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.CollaborativePurchase, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListForUser(ctx context.Context, userID, email string) ([]domain.CollaborativePurchase, error) {
	return s.repo.ListForUser(ctx, userID, email)
}

// ExpireOverdue transitions pending purchases past their deadline to
// expired. Called periodically from the API process.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.repo.ExpireOverdue(ctx, s.now())
}

func (s *Service) notifyAll(ctx context.Context, p *domain.CollaborativePurchase, send func(context.Context, string, domain.CollaborativePurchase) error) {
	recipients := make([]string, 0, len(p.Participants)+1)
	if p.CreatorEmail != "" {
		recipients = append(recipients, p.CreatorEmail)
	}
	for _, part := range p.Participants {
		recipients = append(recipients, part.Email)
	}
	for _, to := range recipients {
		if err := send(ctx, to, *p); err != nil {
			s.logger.Warn("send notification failed", "email", to, "purchase", p.ID, "error", err)
		}
	}
}

// paymentLinkToken mints the opaque token participants use to reach their
// payment page. The format is part of emailed URLs, so it stays hex.
func paymentLinkToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
