package httpapi

import (
	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/logging"
	"github.com/gin-gonic/gin"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the failure envelope. It never carries internals.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < 400,
	})
}

// fail renders err as an ErrorResponse and aborts the chain. Server-side
// failures are logged with their cause.
func fail(c *gin.Context, log logging.Logger, err error) {
	apiErr := common.AsAPIError(err)
	status := apiErr.StatusCode()

	if status >= 500 {
		log.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"error", err,
		)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		StatusCode: status,
		Message:    apiErr.Message,
		Success:    false,
	})
}
