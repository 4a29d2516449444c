package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alumunity/messaging-api/internal/infrastructure/metrics"
)

// MetricsMiddleware records HTTP request metrics by route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.RecordRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start).Seconds())
	}
}
