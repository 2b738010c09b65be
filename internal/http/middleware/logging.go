// README: Request logging and HTTP metrics.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"nest/internal/logger"
	"nest/internal/metrics"
)

func Logging(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if uid := CallerUID(c); uid != "" {
			fields["uid"] = uid
		}
		switch {
		case status >= 500:
			log.Error("request", fields)
		case status >= 400:
			log.Warn("request", fields)
		default:
			log.Debug("request", fields)
		}
	}
}
