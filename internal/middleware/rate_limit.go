package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"echo-service/internal/repositories"
)

type RateLimitMiddleware struct {
	repo   repositories.RateLimitRepository
	limit  int
	window time.Duration
	logger *zap.Logger
}

func NewRateLimitMiddleware(repo repositories.RateLimitRepository, limit int, window time.Duration, logger *zap.Logger) *RateLimitMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitMiddleware{repo: repo, limit: limit, window: window, logger: logger}
}

// Limit counts requests per authenticated user, falling back to the client
// IP. Store failures let the request through.
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:ip:" + c.ClientIP()
		if id := UserID(c); id != uuid.Nil {
			key = "ratelimit:user:" + id.String()
		}

		allowed, count, err := m.repo.Allow(c.Request.Context(), key, m.limit, m.window)
		if err != nil {
			m.logger.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		remaining := m.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(m.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"code":  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
