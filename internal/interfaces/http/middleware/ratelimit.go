package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"plc-agent-api/pkg/logger"
)

const defaultRequestsPerSecond = 100

// RateLimitConfig 每个主体每条路由的秒级限流
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond int
	KeyPrefix         string
}

// RateLimiter 由 redis 滑动窗口实现
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 已认证请求按用户计数，其余按客户端 IP
// 限流器出错时放行
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	limit := cfg.RequestsPerSecond
	if limit <= 0 {
		limit = defaultRequestsPerSecond
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ratelimit"
	}
	limitHeader := strconv.Itoa(limit)

	return func(c *gin.Context) {
		subject := UserID(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		key := prefix + ":" + subject + ":" + routeOf(c)

		c.Header("X-RateLimit-Limit", limitHeader)
		ok, err := limiter.Allow(c.Request.Context(), key, limit, time.Second)
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err, "key", key)
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     http.StatusTooManyRequests,
				"message":  "rate limit exceeded",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}
		c.Next()
	}
}
