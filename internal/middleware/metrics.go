package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veridex/custody-api/internal/service"
)

// Metrics records one observation per request with the route template as the
// path label. Unmatched routes fall back to the raw URL path so 404 traffic
// still shows up without exploding label cardinality on real routes.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
