package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/merrykids-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route so that
// scanners probing random paths cannot grow the label set.
const unmatchedRoute = "unmatched"

// Metrics records request counts and latency per route template. Paths in
// skip (probes, the scrape endpoint) are not observed.
func Metrics(metrics *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
