package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/serverwatch/notifier/internal/monitoring"
	"github.com/serverwatch/notifier/pkg/logger"
)

// RequestLogger logs all HTTP requests with structured logging and records
// request metrics per route
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		monitoring.APIRequestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(status)).Inc()
		monitoring.APIRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(latency.Seconds())

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}

		if service, exists := c.Get(ContextServiceKey); exists {
			fields["service"] = service
		}

		message := "HTTP request"

		if status >= 500 {
			logger.Error(message, nil, fields)
		} else if status >= 400 {
			logger.Warn(message, fields)
		} else {
			logger.Debug(message, fields)
		}
	}
}
