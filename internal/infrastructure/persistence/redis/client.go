// Package redis 封装 go-redis：每日用量计数、限流与读穿缓存
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"plc-agent-api/internal/config"
)

const pingTimeout = 5 * time.Second

var tracer = otel.Tracer("plc-agent-api/redis")

// Client 持有连接池，供同包的存储复用
type Client struct {
	rdb *redis.Client
}

// NewClient 建立连接并 PING 一次，失败即返回错误
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", rdb.Options().Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// NewClientFromRedis 包装已有连接，测试中用于接入 miniredis
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Redis 底层连接，供 Stream 生产者使用
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck 就绪探针
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// IsNil 键不存在
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
