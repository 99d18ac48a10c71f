package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/ErlanBelekov/coach-portal/internal/metrics"
	"github.com/ErlanBelekov/coach-portal/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit applies a per-client-IP token bucket to one route. A nil limiter
// disables limiting; limiter errors let the request through.
func RateLimit(limiter ratelimit.Limiter, route string, logger *slog.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := route + ":" + c.ClientIP()
		res, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rate limiter unavailable", "route", route, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if !res.Allowed {
			metrics.RateLimitedTotal.WithLabelValues(route).Inc()
			secs := int(math.Ceil(res.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
