package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSMTPClient struct {
	mailFrom string
	rcptTo   []string
	data     bytes.Buffer
	quit     bool
	authed   bool
}

func (c *fakeSMTPClient) Mail(from string) error { c.mailFrom = from; return nil }
func (c *fakeSMTPClient) Rcpt(to string) error   { c.rcptTo = append(c.rcptTo, to); return nil }
func (c *fakeSMTPClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{&c.data}, nil
}
func (c *fakeSMTPClient) Quit() error                     { c.quit = true; return nil }
func (c *fakeSMTPClient) Close() error                    { return nil }
func (c *fakeSMTPClient) StartTLS(*tls.Config) error      { return nil }
func (c *fakeSMTPClient) Auth(smtp.Auth) error            { c.authed = true; return nil }
func (c *fakeSMTPClient) Extension(string) (bool, string) { return false, "" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newFakeMailer(cfg SMTPSettings, client *fakeSMTPClient) *smtpMailer {
	server, _ := net.Pipe()
	return &smtpMailer{
		cfg: cfg,
		dialFn: func(context.Context, SMTPSettings) (net.Conn, smtpClient, error) {
			return server, client, nil
		},
		authFn: defaultAuthFunc,
	}
}

func TestSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: "guest@example.com"})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestNewSMTPMailerValidation(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587})
	require.NoError(t, err)
}

func TestSendDeliversMessage(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newFakeMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "gate@example.com",
	}, client)

	err := mailer.Send(context.Background(), Message{
		To:      "guest@example.com",
		Subject: "Confirm your email",
		Body:    "Open the link.",
	})
	require.NoError(t, err)

	require.Equal(t, "gate@example.com", client.mailFrom)
	require.Equal(t, []string{"guest@example.com"}, client.rcptTo)
	require.True(t, client.quit)

	payload := client.data.String()
	require.Contains(t, payload, "From: gate@example.com\r\n")
	require.Contains(t, payload, "To: guest@example.com\r\n")
	require.Contains(t, payload, "Subject: Confirm your email\r\n")
	require.Contains(t, payload, "\r\n\r\nOpen the link.")
}

func TestSendExplicitFromOverridesDefault(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newFakeMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "gate@example.com",
	}, client)

	err := mailer.Send(context.Background(), Message{
		From: "noreply@example.com",
		To:   "guest@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "noreply@example.com", client.mailFrom)
}

func TestSendRejectsBadAddresses(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newFakeMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "gate@example.com",
	}, client)

	require.Error(t, mailer.Send(context.Background(), Message{To: ""}))
	require.Error(t, mailer.Send(context.Background(), Message{To: "not an address"}))
	require.Error(t, mailer.Send(context.Background(), Message{From: "broken", To: "guest@example.com"}))
	require.Empty(t, client.rcptTo)
}

func TestSendAuthenticatesWhenConfigured(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newFakeMailer(SMTPSettings{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     587,
		From:     "gate@example.com",
		Username: "relay-user",
		Password: "relay-pass",
	}, client)

	require.NoError(t, mailer.Send(context.Background(), Message{To: "guest@example.com"}))
	require.True(t, client.authed)

	client = &fakeSMTPClient{}
	mailer = newFakeMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "gate@example.com",
	}, client)

	require.NoError(t, mailer.Send(context.Background(), Message{To: "guest@example.com"}))
	require.False(t, client.authed)
}

func TestFormatMessageSeparatesHeadersFromBody(t *testing.T) {
	formatted := formatMessage("a@example.com", "b@example.com", "Hi", "Body text")

	parts := strings.SplitN(formatted, "\r\n\r\n", 2)
	require.Len(t, parts, 2)
	require.Equal(t, "Body text", parts[1])
}

func TestEscapeHeaderStripsNewlines(t *testing.T) {
	require.Equal(t, "a b c", escapeHeader("a\rb\nc"))
}
