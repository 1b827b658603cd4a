package gateway

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Config holds the static hotspot login parameters. Every verified visitor
// receives the same bootstrap credential; verification gates who sees the
// URL, not a per-user capability.
type Config struct {
	IP       string
	Username string
	Password string
	DstURL   string
}

// Redirector assembles the hotspot gateway login URL from deployment
// configuration. It performs no I/O; handlers issue the actual redirect.
type Redirector struct {
	cfg Config
}

// NewRedirector validates the gateway configuration and returns a Redirector.
func NewRedirector(cfg Config) (*Redirector, error) {
	if strings.TrimSpace(cfg.IP) == "" {
		return nil, errors.New("gateway: ip is required")
	}
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, errors.New("gateway: hotspot username and password are required")
	}
	return &Redirector{cfg: cfg}, nil
}

// LoginURL returns the captive-portal login endpoint with the shared
// credentials and post-login destination embedded in the query string.
func (r *Redirector) LoginURL() string {
	query := url.Values{}
	query.Set("username", r.cfg.Username)
	query.Set("password", r.cfg.Password)
	if r.cfg.DstURL != "" {
		query.Set("dst", r.cfg.DstURL)
	}

	return fmt.Sprintf("http://%s/login?%s", r.cfg.IP, query.Encode())
}
