package mw

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"carretometro-backend/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an ID, makes a request-scoped logger
// available through logger.FromContext and writes one access log line.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Set("request_id", requestID)

		entry := log.WithField("request_id", requestID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), entry))

		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(started).String(),
			"ip":      c.ClientIP(),
		}
		if user, ok := CurrentUser(c); ok {
			fields["user"] = user.Name
		}
		line := entry.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			line.Error("request failed")
		case status >= 400:
			line.Warn("request rejected")
		default:
			line.Info("request served")
		}
	}
}
