package middleware

import (
	"net/http"
	"strconv"

	"uploadgate/internal/redis"
	"uploadgate/internal/transport/httpdto"
	upload_errors "uploadgate/pkg/errors"

	"github.com/gin-gonic/gin"
)

// InitRateLimitMiddleware limits how often one client IP may start or
// resume upload sessions. Applied to the init route only; part traffic is
// not limited here since the bytes go straight to the object store.
func InitRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowInit(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Rate limiting is advisory; an unreachable limiter must not
			// take the upload surface down with it.
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(upload_errors.ErrRateLimited.Error(), "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(int(result.ResetIn.Seconds())))
}
