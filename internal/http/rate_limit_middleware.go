package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/service"
)

// RateLimitMiddleware responde 429 cuando la IP supera el limite.
func RateLimitMiddleware(limiter service.RateLimiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP()) {
			abortWithError(c, http.StatusTooManyRequests, "Too Many Requests", "Too many requests, please try again later.")
			return
		}
		c.Next()
	}
}
