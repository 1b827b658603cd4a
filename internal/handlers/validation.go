package handlers

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/adiwibawa/emailgate/pkg/errors"
	"github.com/adiwibawa/emailgate/pkg/response"
	appValidator "github.com/adiwibawa/emailgate/pkg/validator"
)

// emailPayload is accepted as JSON or form-encoded; the hotspot splash pages
// post both shapes depending on firmware. The syntax rule is deliberately
// loose: present and containing an "@".
type emailPayload struct {
	Email string `json:"email" form:"email" validate:"required,contains=@"`
}

// bindEmail extracts and validates the submitted address. On failure an
// error response is written and ok is false.
func bindEmail(c *gin.Context) (string, bool) {
	var payload emailPayload
	if err := c.ShouldBind(&payload); err != nil {
		response.Error(c, appErrors.ErrInvalidInput)
		return "", false
	}

	if err := appValidator.ValidateStruct(&payload); err != nil {
		response.Error(c, appErrors.ErrInvalidInput)
		return "", false
	}

	return payload.Email, true
}
