package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adiwibawa/emailgate/pkg/mail"
)

// VerificationNotifier dispatches a single-use verification link to a
// pending address. Implementations must not be handed an open database
// transaction; delivery runs after the record write completes.
type VerificationNotifier interface {
	Send(ctx context.Context, email, token string) error
}

// VerificationMailer composes verification links and transmits them over the
// configured SMTP relay.
type VerificationMailer struct {
	mailer  mail.Mailer
	baseURL string
}

// NewVerificationMailer builds a notifier that links back to baseURL/verify.
func NewVerificationMailer(mailer mail.Mailer, baseURL string) (*VerificationMailer, error) {
	if mailer == nil {
		return nil, errors.New("verification mailer: mailer is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("verification mailer: base url is required")
	}
	return &VerificationMailer{
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Link returns the verification URL a visitor must open to consume the token.
func (m *VerificationMailer) Link(token string) string {
	return fmt.Sprintf("%s/verify?token=%s", m.baseURL, token)
}

// Send transmits the verification link. A disabled SMTP relay is not a
// delivery failure; local and test deployments run without one.
func (m *VerificationMailer) Send(ctx context.Context, email, token string) error {
	msg := mail.Message{
		To:      email,
		Subject: "Confirm your email to get online",
		Body:    m.body(m.Link(token)),
	}

	if err := m.mailer.Send(ctx, msg); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		return fmt.Errorf("verification mailer: send: %w", err)
	}
	return nil
}

func (m *VerificationMailer) body(link string) string {
	return fmt.Sprintf("Thanks for connecting!\n\nOpen the link below to confirm your email address and unlock internet access:\n%s\n\nIf you did not request this, you can ignore this message.\n", link)
}
