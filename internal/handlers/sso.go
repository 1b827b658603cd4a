package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adiwibawa/emailgate/internal/auth"
	"github.com/adiwibawa/emailgate/internal/gateway"
	"github.com/adiwibawa/emailgate/internal/services"
	"github.com/adiwibawa/emailgate/pkg/crypto"
	appErrors "github.com/adiwibawa/emailgate/pkg/errors"
	"github.com/adiwibawa/emailgate/pkg/logger"
	"github.com/adiwibawa/emailgate/pkg/metrics"
	"github.com/adiwibawa/emailgate/pkg/response"
)

const (
	ssoStateCookie = "sso_state"
	ssoStateMaxAge = 600 // seconds
	ssoStateBytes  = 24
)

// SSOHandler implements the Google identity entry path. A provider-attested
// email is admitted as verified immediately, bypassing the mailed token.
type SSOHandler struct {
	verifier   auth.IdentityVerifier
	admission  *services.AdmissionService
	redirector *gateway.Redirector
}

// NewSSOHandler wires the identity verifier into the admission flow.
func NewSSOHandler(verifier auth.IdentityVerifier, admission *services.AdmissionService, redirector *gateway.Redirector) (*SSOHandler, error) {
	if verifier == nil {
		return nil, errors.New("sso handler: identity verifier is required")
	}
	if admission == nil {
		return nil, errors.New("sso handler: admission service is required")
	}
	if redirector == nil {
		return nil, errors.New("sso handler: redirector is required")
	}
	return &SSOHandler{verifier: verifier, admission: admission, redirector: redirector}, nil
}

// Login handles GET /auth/google/login: anchor a state cookie, then send the
// visitor to the consent screen.
func (h *SSOHandler) Login(c *gin.Context) {
	state, err := crypto.GenerateToken(ssoStateBytes)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ssoStateCookie, state, ssoStateMaxAge, "/", "", false, true)
	c.Redirect(http.StatusFound, h.verifier.AuthCodeURL(state))
}

// Callback handles GET /auth/google/callback: validate state, redeem the
// code for a verified email, admit it, and hand off to the gateway.
func (h *SSOHandler) Callback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		logger.WithModule("sso").Warn("provider returned error", zap.String("error", providerErr))
		response.Error(c, appErrors.ErrAuthFailed)
		return
	}

	state := c.Query("state")
	cookieState, err := c.Cookie(ssoStateCookie)
	if err != nil || state == "" || !crypto.SecureCompare(state, cookieState) {
		response.Error(c, appErrors.ErrAuthFailed)
		return
	}
	c.SetCookie(ssoStateCookie, "", -1, "/", "", false, true)

	email, err := h.verifier.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		logger.WithModule("sso").Warn("exchange failed", zap.Error(err))
		response.Error(c, appErrors.ErrAuthFailed)
		return
	}

	if err := h.admission.AdmitVerified(c.Request.Context(), email); err != nil {
		logger.WithModule("sso").Error("admit failed", zap.Error(err))
		response.Error(c, appErrors.ErrStoreUnavailable.WithInternal(err))
		return
	}

	metrics.GatewayRedirects.WithLabelValues("google").Inc()
	logger.WithModule("sso").Info("google login admitted", zap.String("email", email))

	c.Redirect(http.StatusFound, h.redirector.LoginURL())
}
