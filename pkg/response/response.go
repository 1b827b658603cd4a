package response

import (
	"net/http"

	appErrors "github.com/adiwibawa/emailgate/pkg/errors"
	"github.com/gin-gonic/gin"
)

// Payload is the flat wire format consumed by the hotspot front-end.
// Every JSON endpoint answers with a status keyword plus an optional message.
type Payload struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Well-known status keywords.
const (
	StatusSuccess     = "success"
	StatusPending     = "pending"
	StatusExists      = "exists"
	StatusNotVerified = "not_verified"
	StatusError       = "error"
)

// OK writes a 200 response with the given status keyword.
func OK(c *gin.Context, status string) {
	c.JSON(http.StatusOK, Payload{Status: status})
}

// OKWithMessage writes a 200 response with a status keyword and message.
func OKWithMessage(c *gin.Context, status, message string) {
	c.JSON(http.StatusOK, Payload{Status: status, Message: message})
}

// Error writes an error payload derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Payload{
		Status:  StatusError,
		Message: appErr.Message,
	})
}
