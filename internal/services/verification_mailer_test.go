package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adiwibawa/emailgate/internal/services"
	"github.com/adiwibawa/emailgate/pkg/mail"
)

type stubMailer struct {
	sent []mail.Message
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestVerificationMailerLink(t *testing.T) {
	notifier, err := services.NewVerificationMailer(&stubMailer{}, "https://gate.example.com/")
	require.NoError(t, err)

	require.Equal(t, "https://gate.example.com/verify?token=abc123", notifier.Link("abc123"))
}

func TestVerificationMailerSend(t *testing.T) {
	mailer := &stubMailer{}
	notifier, err := services.NewVerificationMailer(mailer, "https://gate.example.com")
	require.NoError(t, err)

	require.NoError(t, notifier.Send(context.Background(), "guest@example.com", "abc123"))
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	require.Equal(t, "guest@example.com", msg.To)
	require.NotEmpty(t, msg.Subject)
	require.Contains(t, msg.Body, "https://gate.example.com/verify?token=abc123")
}

func TestVerificationMailerDisabledRelayIsNotAFailure(t *testing.T) {
	mailer := &stubMailer{err: mail.ErrSMTPDisabled}
	notifier, err := services.NewVerificationMailer(mailer, "https://gate.example.com")
	require.NoError(t, err)

	require.NoError(t, notifier.Send(context.Background(), "guest@example.com", "abc123"))
}

func TestVerificationMailerPropagatesTransportError(t *testing.T) {
	mailer := &stubMailer{err: errors.New("connection refused")}
	notifier, err := services.NewVerificationMailer(mailer, "https://gate.example.com")
	require.NoError(t, err)

	err = notifier.Send(context.Background(), "guest@example.com", "abc123")
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
}

func TestNewVerificationMailerValidation(t *testing.T) {
	_, err := services.NewVerificationMailer(nil, "https://gate.example.com")
	require.Error(t, err)

	_, err = services.NewVerificationMailer(&stubMailer{}, "  ")
	require.Error(t, err)
}
