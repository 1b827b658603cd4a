package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adiwibawa/emailgate/internal/auth"
)

func TestSessionIssueAndValidate(t *testing.T) {
	svc, err := auth.NewSessionService(auth.SessionConfig{Secret: "unit-test-secret"})
	require.NoError(t, err)

	token, err := svc.Issue()
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, svc.Validate(token))
}

func TestSessionRejectsGarbage(t *testing.T) {
	svc, err := auth.NewSessionService(auth.SessionConfig{Secret: "unit-test-secret"})
	require.NoError(t, err)

	require.False(t, svc.Validate(""))
	require.False(t, svc.Validate("not.a.jwt"))
	require.False(t, svc.Validate("eyJhbGciOiJIUzI1NiJ9.e30.invalid"))
}

func TestSessionRejectsForeignSecret(t *testing.T) {
	issuer, err := auth.NewSessionService(auth.SessionConfig{Secret: "secret-a"})
	require.NoError(t, err)
	validator, err := auth.NewSessionService(auth.SessionConfig{Secret: "secret-b"})
	require.NoError(t, err)

	token, err := issuer.Issue()
	require.NoError(t, err)
	require.False(t, validator.Validate(token))
}

func TestSessionExpiry(t *testing.T) {
	current := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	svc, err := auth.NewSessionService(auth.SessionConfig{
		Secret: "unit-test-secret",
		TTL:    time.Hour,
		Clock:  func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := svc.Issue()
	require.NoError(t, err)
	require.True(t, svc.Validate(token))

	current = current.Add(2 * time.Hour)
	require.False(t, svc.Validate(token))
}

func TestSessionDefaultTTL(t *testing.T) {
	svc, err := auth.NewSessionService(auth.SessionConfig{Secret: "unit-test-secret"})
	require.NoError(t, err)
	require.Equal(t, auth.DefaultSessionTTL, svc.TTL())
}

func TestSessionRequiresSecret(t *testing.T) {
	_, err := auth.NewSessionService(auth.SessionConfig{})
	require.Error(t, err)
}
