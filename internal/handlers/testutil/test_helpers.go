package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adiwibawa/emailgate/internal/api"
	"github.com/adiwibawa/emailgate/internal/auth"
	"github.com/adiwibawa/emailgate/internal/database"
	"github.com/adiwibawa/emailgate/internal/gateway"
	"github.com/adiwibawa/emailgate/internal/services"
)

// Fixed deployment parameters shared by all handler tests.
const (
	GatewayIP     = "172.19.20.1"
	GatewayUser   = "user"
	GatewayPass   = "user"
	GatewayDst    = "https://nuanu.com/"
	AdminPassword = "letmein-operator"
	SessionSecret = "test-suite-session-signing-secret"
)

// RecordingNotifier captures verification mail instead of transmitting it.
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []SentMail
	Err  error
}

// SentMail is one captured verification dispatch.
type SentMail struct {
	Email string
	Token string
}

// Send implements services.VerificationNotifier.
func (n *RecordingNotifier) Send(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Sent = append(n.Sent, SentMail{Email: email, Token: token})
	return nil
}

// Last returns the most recently captured mail.
func (n *RecordingNotifier) Last(t *testing.T) SentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.Sent, "expected at least one verification mail")
	return n.Sent[len(n.Sent)-1]
}

// Count returns how many mails were captured.
func (n *RecordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}

// Env encapsulates a fully-wired gate backed by an in-memory database.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Notifier *RecordingNotifier
}

// Option adjusts the environment before the router is built.
type Option func(*envConfig)

type envConfig struct {
	policy   services.Policy
	verifier auth.IdentityVerifier
}

// WithPolicy selects the admission policy (default deferred).
func WithPolicy(policy services.Policy) Option {
	return func(cfg *envConfig) { cfg.policy = policy }
}

// WithVerifier mounts the Google SSO routes backed by the given verifier.
func WithVerifier(verifier auth.IdentityVerifier) Option {
	return func(cfg *envConfig) { cfg.verifier = verifier }
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := envConfig{policy: services.PolicyDeferred}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := MustOpenTestDB(t)

	redirector, err := gateway.NewRedirector(gateway.Config{
		IP:       GatewayIP,
		Username: GatewayUser,
		Password: GatewayPass,
		DstURL:   GatewayDst,
	})
	require.NoError(t, err)

	notifier := &RecordingNotifier{}

	admission, err := services.NewAdmissionService(db, cfg.policy, notifier)
	require.NoError(t, err)

	reports, err := services.NewReportService(db)
	require.NoError(t, err)

	credentials, err := services.NewCredentialLogService(db)
	require.NoError(t, err)

	sessions, err := auth.NewSessionService(auth.SessionConfig{Secret: SessionSecret})
	require.NoError(t, err)

	router, err := api.NewRouter(api.Deps{
		DB:            db,
		Admission:     admission,
		Reports:       reports,
		Credentials:   credentials,
		Sessions:      sessions,
		Redirector:    redirector,
		Verifier:      cfg.verifier,
		AdminPassword: AdminPassword,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Notifier: notifier,
	}
}

// MustOpenTestDB opens an isolated in-memory database with migrations applied.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    "file:" + t.Name() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// PostJSON performs a JSON POST against the router.
func (e *Env) PostJSON(path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	payload, err := json.Marshal(body)
	require.NoError(e.T, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

// PostForm performs a form-encoded POST against the router.
func (e *Env) PostForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

// Get performs a GET against the router.
func (e *Env) Get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals a JSON response body into dest.
func (e *Env) Decode(rec *httptest.ResponseRecorder, dest any) {
	e.T.Helper()
	require.NoError(e.T, json.Unmarshal(rec.Body.Bytes(), dest))
}

// DashboardLogin authenticates against the dashboard and returns the session cookie.
func (e *Env) DashboardLogin() *http.Cookie {
	e.T.Helper()

	rec := e.PostForm("/dashboard", url.Values{"password": {AdminPassword}})
	require.Equal(e.T, http.StatusFound, rec.Code)

	res := rec.Result()
	defer res.Body.Close()
	for _, cookie := range res.Cookies() {
		if cookie.Name == "dashboard_session" && cookie.Value != "" {
			return cookie
		}
	}

	e.T.Fatal("dashboard session cookie not set")
	return nil
}
