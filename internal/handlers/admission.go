package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adiwibawa/emailgate/internal/gateway"
	"github.com/adiwibawa/emailgate/internal/services"
	appErrors "github.com/adiwibawa/emailgate/pkg/errors"
	"github.com/adiwibawa/emailgate/pkg/logger"
	"github.com/adiwibawa/emailgate/pkg/metrics"
	"github.com/adiwibawa/emailgate/pkg/response"
)

// AdmissionHandler exposes the submit/check/verify operations of the email gate.
type AdmissionHandler struct {
	admission  *services.AdmissionService
	redirector *gateway.Redirector
}

// NewAdmissionHandler wires the admission service and gateway redirector.
func NewAdmissionHandler(admission *services.AdmissionService, redirector *gateway.Redirector) (*AdmissionHandler, error) {
	if admission == nil {
		return nil, errors.New("admission handler: admission service is required")
	}
	if redirector == nil {
		return nil, errors.New("admission handler: redirector is required")
	}
	return &AdmissionHandler{admission: admission, redirector: redirector}, nil
}

// SaveTrialEmail handles POST /save_trial_email.
func (h *AdmissionHandler) SaveTrialEmail(c *gin.Context) {
	email, ok := bindEmail(c)
	if !ok {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return
	}

	outcome, err := h.admission.Submit(c.Request.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEmail):
			metrics.Submissions.WithLabelValues("invalid").Inc()
			response.Error(c, appErrors.ErrInvalidInput)
		case errors.Is(err, services.ErrDeliveryFailed):
			metrics.Submissions.WithLabelValues("error").Inc()
			logger.WithModule("admission").Warn("verification mail failed", zap.String("email", email), zap.Error(err))
			response.Error(c, appErrors.ErrDeliveryFailed)
		default:
			metrics.Submissions.WithLabelValues("error").Inc()
			logger.WithModule("admission").Error("submit failed", zap.Error(err))
			response.Error(c, appErrors.ErrStoreUnavailable.WithInternal(err))
		}
		return
	}

	switch outcome {
	case services.OutcomeVerified:
		metrics.Submissions.WithLabelValues("verified").Inc()
		response.OKWithMessage(c, response.StatusExists, "Auto-verified")
	default:
		metrics.Submissions.WithLabelValues("pending").Inc()
		response.OKWithMessage(c, response.StatusPending, "Verification link sent")
	}
}

// CheckEmail handles POST /check_email.
func (h *AdmissionHandler) CheckEmail(c *gin.Context) {
	email, ok := bindEmail(c)
	if !ok {
		return
	}

	outcome, err := h.admission.Check(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, services.ErrInvalidEmail) {
			response.Error(c, appErrors.ErrInvalidInput)
			return
		}
		logger.WithModule("admission").Error("check failed", zap.Error(err))
		response.Error(c, appErrors.ErrStoreUnavailable.WithInternal(err))
		return
	}

	if outcome == services.CheckVerified {
		response.OK(c, response.StatusExists)
		return
	}
	response.OK(c, response.StatusNotVerified)
}

// Verify handles GET /verify?token=T. A redeemed token answers with a
// redirect to the hotspot gateway login endpoint.
func (h *AdmissionHandler) Verify(c *gin.Context) {
	token := c.Query("token")

	record, err := h.admission.Verify(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrTokenInvalid) {
			metrics.Verifications.WithLabelValues("invalid").Inc()
			response.Error(c, appErrors.ErrInvalidToken)
			return
		}
		logger.WithModule("admission").Error("verify failed", zap.Error(err))
		response.Error(c, appErrors.ErrStoreUnavailable.WithInternal(err))
		return
	}

	metrics.Verifications.WithLabelValues("success").Inc()
	metrics.GatewayRedirects.WithLabelValues("token").Inc()
	logger.WithModule("admission").Info("email verified", zap.String("email", record.Email))

	c.Redirect(http.StatusFound, h.redirector.LoginURL())
}
