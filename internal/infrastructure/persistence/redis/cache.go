package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Cache 读穿缓存，值以 JSON 保存
type Cache struct {
	client *Client
	group  singleflight.Group
}

func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// Remember 命中时直接返回缓存字节，未命中时调用 load 并回写
// 同一 key 的并发未命中只触发一次 load；回写失败不影响返回值
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (any, error)) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "cache.Remember", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if raw, err := c.client.rdb.Get(ctx, key).Bytes(); err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return raw, nil
	} else if !IsNil(err) {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, shared := c.group.Do(key, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cache value for %s: %w", key, err)
		}
		if err := c.client.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
			span.RecordError(err)
		}
		return raw, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate 删除缓存键
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	ctx, span := tracer.Start(ctx, "cache.Invalidate", trace.WithAttributes(attribute.Int("cache.keys", len(keys))))
	defer span.End()

	return c.client.rdb.Del(ctx, keys...).Err()
}
