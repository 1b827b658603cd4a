package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/adiwibawa/emailgate/pkg/response"
)

// Health reports process liveness and store reachability.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, response.Payload{
				Status:  response.StatusError,
				Message: "store unreachable",
			})
			return
		}

		c.JSON(http.StatusOK, response.Payload{Status: "ok"})
	}
}
