package middleware

import (
	"math"
	"net/http"
	"strconv"

	"ytthumb/internal/model"
	"ytthumb/internal/service"
	"ytthumb/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitMiddleware creates a middleware for rate limiting
func RateLimitMiddleware(rateLimitService *service.RateLimitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !rateLimitService.IsAllowed(ip) {
			logger.Logger.Warn("Rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			if wait := rateLimitService.RetryAfter(ip); wait > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Too many requests. Please try again later.",
				Code:    http.StatusTooManyRequests,
			})
			return
		}

		if remaining := rateLimitService.GetRemaining(ip); remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		c.Next()
	}
}
