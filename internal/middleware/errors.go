package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"echo-service/internal/apperrors"
)

// ErrorHandler renders the last error pushed with c.Error as
// {"error": message, "code": kind}. Causes of 5xx responses are logged and
// never returned.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := apperrors.HTTPStatusFromError(err)
		if status >= 500 {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.String("request_id", RequestID(c)),
				zap.Error(err),
			)
		}

		c.JSON(status, gin.H{
			"error": apperrors.PublicMessage(err),
			"code":  apperrors.KindOf(err),
		})
	}
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
