// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
)

// RequestIDHeader is echoed back on every response so clients can correlate
// log lines with their calls.
const RequestIDHeader = "X-Request-ID"

// slowThreshold flags requests worth a warning even when they succeed.
const slowThreshold = 3 * time.Second

// skipPaths are high-frequency probe paths kept out of the request log.
var skipPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// RequestLogging logs every completed request and, when metrics is non-nil,
// records it on the HTTP metric surface.  Probe paths are skipped in the log
// but still counted.
func RequestLogging(logger logging.Logger, metrics *prometheus.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if metrics != nil {
			metrics.ObserveHTTPRequest(c.Request.Method, path, status, elapsed)
		}
		if skipPaths[path] {
			return
		}

		fields := []logging.Field{
			logging.String("request_id", requestID),
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", status),
			logging.Duration("elapsed", elapsed),
			logging.Int64("bytes", int64(c.Writer.Size())),
		}
		switch {
		case status >= 500:
			logger.Error("request failed", fields...)
		case status >= 400:
			logger.Warn("request rejected", fields...)
		case elapsed > slowThreshold:
			logger.Warn("slow request", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// Recovery converts panics into 500 responses without killing the process.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					logging.String("path", c.Request.URL.Path),
					logging.Any("panic", r))
				c.AbortWithStatusJSON(500, gin.H{
					"error": gin.H{"code": "COMMON_001", "message": "internal server error"},
				})
			}
		}()
		c.Next()
	}
}
