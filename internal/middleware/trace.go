package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceHeader carries the per-request trace id in both directions.
const TraceHeader = "X-Request-ID"

const (
	traceKey         = "request_id"
	maxTraceIDLength = 128
)

// Trace echoes a client trace id back or mints a uuid. Empty or oversized
// ids from the client are replaced.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceHeader)
		if id == "" || len(id) > maxTraceIDLength {
			id = uuid.NewString()
		}

		c.Set(traceKey, id)
		c.Header(TraceHeader, id)
		c.Next()
	}
}

// TraceID returns the id Trace stored on c, or "" outside the middleware.
func TraceID(c *gin.Context) string {
	return c.GetString(traceKey)
}
