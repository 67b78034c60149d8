package middleware

import (
	"time"

	"erpadmin/internal/metrics"
	"erpadmin/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

func RequestID(logg *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		c.Header(requestIDHeader, reqID)

		if logg != nil {
			c.Request = c.Request.WithContext(logg.WithRequestID(c.Request.Context(), reqID))
		}
		c.Next()
	}
}

// Logging writes request.start and request.complete entries and records latency.
func Logging(logg *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			})
			logg.Info(ctx, "request.start")
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		m.ObserveHTTP(c.Request.Method, c.FullPath(), status, elapsed)

		if logg != nil {
			// handlers may have added fields such as user_id
			ctx = logg.WithFields(c.Request.Context(), map[string]any{
				"method":      c.Request.Method,
				"path":        c.Request.URL.Path,
				"status":      status,
				"duration_ms": elapsed.Milliseconds(),
			})
			if len(c.Errors) > 0 {
				logg.Error(ctx, "request.failed", c.Errors.Last().Err)
			}
			logg.Info(ctx, "request.complete")
		}
	}
}
