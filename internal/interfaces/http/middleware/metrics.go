package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records request metrics. Implemented by telemetry.Metrics.
type HTTPObserver interface {
	RequestStarted() (done func())
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// HTTPMetrics records count, latency and in-flight requests per route pattern.
// Unmatched paths are reported with an empty route so URLs never become labels.
func HTTPMetrics(observer HTTPObserver) gin.HandlerFunc {
	if observer == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		start := time.Now()
		done := observer.RequestStarted()
		defer done()

		c.Next()

		observer.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
