package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// slidingWindow 清理窗口外的记录后计数，未超限则记入本次请求
// KEYS[1] 计数键；ARGV: 当前毫秒, 窗口毫秒, 上限, 成员
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
  return 0
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return 1
`)

// RateLimiter 基于有序集合的滑动窗口限流，判断与记账在一个脚本内完成
type RateLimiter struct {
	client *Client
	now    func() time.Time
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow 在 window 内请求数未达 limit 时放行
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	defer span.End()
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
	)

	// 同一毫秒的请求靠 uuid 区分成员
	allowed, err := slidingWindow.Run(ctx, l.client.rdb, []string{key},
		l.now().UnixMilli(), window.Milliseconds(), limit, uuid.NewString()).Int()
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("ratelimit.allowed", allowed == 1))
	return allowed == 1, nil
}
