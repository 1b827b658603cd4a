package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL defines the fallback validity period for dashboard sessions.
const DefaultSessionTTL = 12 * time.Hour

const sessionSubject = "dashboard"

// SessionConfig bundles the configuration required to build a SessionService.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Clock  func() time.Time
}

// SessionService issues and validates the signed cookie that gates the admin
// dashboard. There are no per-admin accounts; a valid cookie simply proves
// the shared password was presented recently.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionService constructs a SessionService from the signing secret.
func NewSessionService(cfg SessionConfig) (*SessionService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session: signing secret must be provided")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &SessionService{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
	}, nil
}

// TTL returns the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue returns a signed session token.
func (s *SessionService) Issue() (string, error) {
	now := s.now()

	claims := jwt.RegisteredClaims{
		Subject:   sessionSubject,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}

	return signed, nil
}

// Validate reports whether the supplied token is a live dashboard session.
func (s *SessionService) Validate(tokenString string) bool {
	if tokenString == "" {
		return false
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("session: unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithSubject(sessionSubject))
	if err != nil {
		return false
	}

	return token.Valid
}
