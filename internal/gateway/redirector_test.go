package gateway_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adiwibawa/emailgate/internal/gateway"
)

func TestLoginURL(t *testing.T) {
	redirector, err := gateway.NewRedirector(gateway.Config{
		IP:       "172.19.20.1",
		Username: "user",
		Password: "user",
		DstURL:   "https://nuanu.com/",
	})
	require.NoError(t, err)

	require.Equal(t,
		"http://172.19.20.1/login?dst=https%3A%2F%2Fnuanu.com%2F&password=user&username=user",
		redirector.LoginURL())
}

func TestLoginURLWithoutDestination(t *testing.T) {
	redirector, err := gateway.NewRedirector(gateway.Config{
		IP:       "10.0.0.1",
		Username: "hotspot",
		Password: "s3cret",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(redirector.LoginURL())
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", parsed.Host)
	require.Equal(t, "/login", parsed.Path)

	query := parsed.Query()
	require.Equal(t, "hotspot", query.Get("username"))
	require.Equal(t, "s3cret", query.Get("password"))
	require.False(t, query.Has("dst"))
}

func TestLoginURLEscapesCredentials(t *testing.T) {
	redirector, err := gateway.NewRedirector(gateway.Config{
		IP:       "192.168.88.1",
		Username: "user name",
		Password: "p&ss=word",
		DstURL:   "https://example.com/welcome?x=1",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(redirector.LoginURL())
	require.NoError(t, err)

	query := parsed.Query()
	require.Equal(t, "user name", query.Get("username"))
	require.Equal(t, "p&ss=word", query.Get("password"))
	require.Equal(t, "https://example.com/welcome?x=1", query.Get("dst"))
}

func TestNewRedirectorValidation(t *testing.T) {
	_, err := gateway.NewRedirector(gateway.Config{Username: "user", Password: "user"})
	require.Error(t, err)

	_, err = gateway.NewRedirector(gateway.Config{IP: "172.19.20.1", Password: "user"})
	require.Error(t, err)

	_, err = gateway.NewRedirector(gateway.Config{IP: "172.19.20.1", Username: "user"})
	require.Error(t, err)
}
