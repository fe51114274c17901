package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/pkg/api"
)

// ErrorHandler converts errors collected during the request into the
// canonical envelope. In development the originating error is exposed in
// the stack field; in production it is only logged.
func ErrorHandler(logger *zap.Logger, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			if apiErr.Log != nil {
				logger.Error("request failed",
					zap.String("code", apiErr.Code),
					zap.Error(apiErr.Log))
			}

			envelope := apiErr.Envelope()
			if dev && apiErr.Log != nil {
				envelope.Error.Stack = fmt.Sprintf("%+v", apiErr.Log)
			}
			c.JSON(apiErr.Status, envelope)
			c.Abort()
			return
		}

		logger.Error("unhandled error", zap.Error(err))
		envelope := api.NewError(http.StatusInternalServerError, api.CodeInternalError,
			"An unexpected error occurred.").Envelope()
		if dev {
			envelope.Error.Stack = fmt.Sprintf("%+v", err)
		}
		c.JSON(http.StatusInternalServerError, envelope)
		c.Abort()
	}
}
