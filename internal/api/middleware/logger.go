package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/metrics"
)

// Logger creates a gin middleware for logging HTTP requests
func Logger(logger logging.Logger, apiMetrics *metrics.APIMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method

		c.Next()

		// Route templates keep label cardinality bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		duration := time.Since(start)
		status := c.Writer.Status()

		apiMetrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		apiMetrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

		logger.Debug("HTTP Request",
			"method", method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}
