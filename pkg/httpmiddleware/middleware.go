package httpmiddleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"AgriPolicy/pkg/ratelimiter"
)

// RateLimit is a middleware that applies rate limiting to the routes it
// is registered on. Requests arriving while the limiter is dry are
// rejected with 429.
func RateLimit(limiter ratelimiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
