// Package quota 提供按用户按天的消息配额
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"plc-agent-api/internal/application/access"
	"plc-agent-api/internal/config"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/pkg/metrics"
)

// Store 每日计数存储，Reserve 的判断与加一必须不可分割
type Store interface {
	Get(ctx context.Context, userID string, day string) (int, error)
	Reserve(ctx context.Context, userID string, day string, limit int) (used int, ok bool, err error)
	Release(ctx context.Context, userID string, day string) error
}

// Status 配额状态，Limit/Remaining 为 nil 表示不限
type Status struct {
	Allowed   bool `json:"allowed"`
	Used      int  `json:"used"`
	Limit     *int `json:"limit"`
	Remaining *int `json:"remaining"`
}

// ExceededError 当日配额已用完
type ExceededError struct {
	UserID string
	Tier   entity.Tier
	Used   int
	Limit  int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("daily message quota exceeded: user=%s tier=%s used=%d limit=%d", e.UserID, e.Tier, e.Used, e.Limit)
}

// Counter 配额计数器
type Counter struct {
	gate  *access.Gate
	store Store
	loc   *time.Location
	now   func() time.Time
}

// NewCounter 创建计数器，时区取自 quota.timezone
func NewCounter(gate *access.Gate, store Store, cfg *config.Config) (*Counter, error) {
	loc := time.UTC
	if cfg != nil && cfg.Quota.Timezone != "" {
		l, err := time.LoadLocation(cfg.Quota.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid quota timezone %q: %w", cfg.Quota.Timezone, err)
		}
		loc = l
	}
	return &Counter{gate: gate, store: store, loc: loc, now: time.Now}, nil
}

// Day 当前计数日 YYYY-MM-DD
func (c *Counter) Day() string {
	return c.now().In(c.loc).Format(time.DateOnly)
}

// Check 查询是否还能发送消息，无副作用
func (c *Counter) Check(ctx context.Context, userID string, tier entity.Tier) (Status, error) {
	limit, bounded := c.gate.Quota(tier)
	if !bounded {
		return Status{Allowed: true}, nil
	}
	used, err := c.store.Get(ctx, userID, c.Day())
	if err != nil {
		return Status{}, fmt.Errorf("failed to read usage: %w", err)
	}
	return boundedStatus(used, limit), nil
}

// Reserve 在提交前占用一条额度，超额时返回 *ExceededError
// 提交失败时调用方需 Release，成功则保留
func (c *Counter) Reserve(ctx context.Context, userID string, tier entity.Tier) (*Reservation, error) {
	limit, bounded := c.gate.Quota(tier)
	if !bounded {
		return NewReservation(Status{Allowed: true}, nil), nil
	}
	day := c.Day()
	used, ok, err := c.store.Reserve(ctx, userID, day, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve usage: %w", err)
	}
	if !ok {
		metrics.QuotaRejections.WithLabelValues(tier.String()).Inc()
		return nil, &ExceededError{UserID: userID, Tier: tier, Used: used, Limit: limit}
	}
	return NewReservation(boundedStatus(used, limit), func(ctx context.Context) error {
		return c.store.Release(ctx, userID, day)
	}), nil
}

// Reservation 已占用的一条额度，Status 为占用后的状态
type Reservation struct {
	Status Status

	release func(ctx context.Context) error
	once    sync.Once
}

// NewReservation release 为 nil 时 Release 不做任何事
func NewReservation(st Status, release func(ctx context.Context) error) *Reservation {
	return &Reservation{Status: st, release: release}
}

// Release 退回额度，多次调用只生效一次
func (r *Reservation) Release(ctx context.Context) error {
	var err error
	r.once.Do(func() {
		if r.release != nil {
			err = r.release(ctx)
		}
	})
	return err
}

func boundedStatus(used, limit int) Status {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Allowed:   used < limit,
		Used:      used,
		Limit:     &limit,
		Remaining: &remaining,
	}
}
