package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
)

const TraceIDHeader = "X-Trace-ID"

// Caller-supplied ids end up in every log line, so only short tokens are
// accepted.
var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// TraceID puts a trace id on the response and into the request context,
// where the invocation handler and the logger pick it up. A well-formed
// caller X-Trace-ID is reused; anything else is replaced with a new UUID.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if !traceIDPattern.MatchString(traceID) {
			traceID = uuid.New().String()
		}

		c.Header(TraceIDHeader, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))

		c.Next()
	}
}
