// Package mailer sends transactional email for the collaborative purchase
// flow. All sends are best-effort: callers log failures and never abort the
// triggering operation on a mail error.
package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"bestwishes/internal/domain"
)

// Mailer is the notification surface the purchase service depends on.
type Mailer interface {
	SendInvitation(ctx context.Context, to, paymentLink string, p domain.CollaborativePurchase) error
	SendCreatorConfirmation(ctx context.Context, to string, p domain.CollaborativePurchase) error
	SendCompletion(ctx context.Context, to string, p domain.CollaborativePurchase) error
	SendCancellation(ctx context.Context, to string, p domain.CollaborativePurchase) error
}

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

type smtpMailer struct {
	client      *mail.Client
	from        string
	frontendURL string
}

// NewSMTP builds a Mailer backed by an SMTP server.
func NewSMTP(cfg Config) (Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("init smtp client: %w", err)
	}
	return &smtpMailer{client: client, from: cfg.From, frontendURL: cfg.FrontendURL}, nil
}

func (m *smtpMailer) SendInvitation(ctx context.Context, to, paymentLink string, p domain.CollaborativePurchase) error {
	subject := "You're invited to a collaborative purchase"
	payURL := fmt.Sprintf("%s/collaborative-payment/%s", m.frontendURL, paymentLink)
	body := invitationBody(p, payURL)
	return m.send(ctx, to, subject, body)
}

func (m *smtpMailer) SendCreatorConfirmation(ctx context.Context, to string, p domain.CollaborativePurchase) error {
	subject := "Collaborative purchase created"
	return m.send(ctx, to, subject, creatorConfirmationBody(p))
}

func (m *smtpMailer) SendCompletion(ctx context.Context, to string, p domain.CollaborativePurchase) error {
	subject := "Collaborative purchase completed"
	return m.send(ctx, to, subject, completionBody(p))
}

func (m *smtpMailer) SendCancellation(ctx context.Context, to string, p domain.CollaborativePurchase) error {
	subject := "Collaborative purchase cancelled"
	return m.send(ctx, to, subject, cancellationBody(p))
}

func (m *smtpMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
