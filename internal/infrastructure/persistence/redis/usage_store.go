package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// usageKeyTTL 保留两天，跨时区的当日键不会提前过期
const usageKeyTTL = 48 * time.Hour

// UsageStore 基于 Lua 脚本的每日消息计数，判断与加一不可分割
type UsageStore struct {
	client *Client
}

// NewUsageStore 创建计数存储
func NewUsageStore(client *Client) *UsageStore {
	return &UsageStore{client: client}
}

// reserveUsage KEYS[1] 计数键；ARGV: 上限, 过期秒数；返回 {是否占到, 计数}
var reserveUsage = redis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n >= tonumber(ARGV[1]) then
  return {0, n}
end
n = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[2])
return {1, n}
`)

var releaseUsage = redis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n <= 0 then
  return 0
end
return redis.call('DECR', KEYS[1])
`)

func usageKey(userID, day string) string {
	return fmt.Sprintf("usage:%s:%s", userID, day)
}

// Get 返回当日计数，无记录为 0
func (s *UsageStore) Get(ctx context.Context, userID string, day string) (int, error) {
	ctx, span := tracer.Start(ctx, "redis.UsageStore.Get")
	span.SetAttributes(attribute.String("usage.day", day))
	defer span.End()

	val, err := s.client.rdb.Get(ctx, usageKey(userID, day)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get usage: %w", err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt usage counter %q: %w", val, err)
	}
	return n, nil
}

// Reserve 计数小于 limit 时原子加一；未占到额度时返回当前计数与 false
func (s *UsageStore) Reserve(ctx context.Context, userID string, day string, limit int) (int, bool, error) {
	ctx, span := tracer.Start(ctx, "redis.UsageStore.Reserve")
	span.SetAttributes(attribute.String("usage.day", day), attribute.Int("usage.limit", limit))
	defer span.End()

	res, err := reserveUsage.Run(ctx, s.client.rdb, []string{usageKey(userID, day)},
		limit, int(usageKeyTTL.Seconds())).Int64Slice()
	if err != nil {
		span.RecordError(err)
		return 0, false, fmt.Errorf("failed to reserve usage: %w", err)
	}
	return int(res[1]), res[0] == 1, nil
}

// Release 退回一次预留，计数不低于 0
func (s *UsageStore) Release(ctx context.Context, userID string, day string) error {
	ctx, span := tracer.Start(ctx, "redis.UsageStore.Release")
	span.SetAttributes(attribute.String("usage.day", day))
	defer span.End()

	if err := releaseUsage.Run(ctx, s.client.rdb, []string{usageKey(userID, day)}).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to release usage: %w", err)
	}
	return nil
}
