package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/logger"
)

// ErrorHandler returns a Gin middleware that converts errors set on the Gin
// context into the response envelope. AppErrors are returned with their code,
// message and details; unexpected errors are logged and return a generic
// internal error to avoid leaking details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// Process the last error (most relevant in a middleware chain)
		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			if appErr.Internal != nil {
				logger.Get().Errorw("app error",
					"code", appErr.Code,
					"message", appErr.Message,
					"internal", appErr.Internal.Error(),
					"path", c.Request.URL.Path,
				)
			}
			writeError(c, appErr)
			return
		}

		// Unexpected error: log full details, return generic message
		logger.Get().Errorw("unexpected error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		writeError(c, apperrors.ErrInternalServer)
	}
}

// abortWithError stops the chain and writes appErr in the response envelope.
func abortWithError(c *gin.Context, appErr *apperrors.AppError) {
	writeError(c, appErr)
	c.Abort()
}

func writeError(c *gin.Context, appErr *apperrors.AppError) {
	errBody := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != nil {
		errBody["details"] = appErr.Details
	}
	c.JSON(appErr.StatusCode, gin.H{
		"success":    false,
		"message":    appErr.Message,
		"statusCode": appErr.StatusCode,
		"timestamp":  time.Now().UTC(),
		"error":      errBody,
	})
}
