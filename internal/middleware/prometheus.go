package middleware

import (
	"strconv"
	"time"

	"bookkeeping/internal/observability"

	"github.com/gin-gonic/gin"
)

// PrometheusMiddleware tracks HTTP metrics per route pattern.
func PrometheusMiddleware(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()

		method := c.Request.Method
		endpoint := c.FullPath() // e.g., /transactions/:id
		if endpoint == "" {
			// unmatched paths share one label
			endpoint = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
	}
}
