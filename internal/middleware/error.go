package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-directory/internal/handler"
	apperrors "github.com/jwalitptl/patient-directory/pkg/errors"
)

// ErrorHandler renders errors attached with c.Error as the error envelope.
// Handlers that already wrote a response are left alone.
func ErrorHandler(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := TraceID(c)
		lastErr := c.Errors.Last().Err

		status := http.StatusInternalServerError
		if err, ok := lastErr.(interface{ StatusCode() int }); ok {
			status = err.StatusCode()
		}

		event := logger.Warn()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.Err(lastErr).
			Str("request_id", requestID).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Int("status", status).
			Msg("Request error")

		if c.Writer.Written() {
			return
		}

		message := http.StatusText(status)
		var appErr *apperrors.AppError
		if errors.As(lastErr, &appErr) {
			message = appErr.Message
		}
		c.JSON(status, handler.NewErrorResponse(message))
	}
}
