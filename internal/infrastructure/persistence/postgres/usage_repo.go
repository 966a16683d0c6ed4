// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"plc-agent-api/internal/domain/entity"
)

// UsageRepository 每日用量仓储实现
// day 使用 YYYY-MM-DD 字符串，由调用方按配置时区计算
type UsageRepository struct {
	client *Client
}

// NewUsageRepository 创建用量仓储
func NewUsageRepository(client *Client) *UsageRepository {
	return &UsageRepository{client: client}
}

func (r *UsageRepository) Get(ctx context.Context, userID string, day string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRepository.Get")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rec entity.UsageRecord
	if err := db.Where("user_id = ? AND day = ?", userID, day).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get usage: %w", err)
	}
	return rec.Count, nil
}

// Reserve 单条语句完成插入或条件加一，已达 limit 时冲突更新不生效、不返回行
func (r *UsageRepository) Reserve(ctx context.Context, userID string, day string, limit int) (int, bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRepository.Reserve")
	defer span.End()

	if limit <= 0 {
		used, err := r.Get(ctx, userID, day)
		return used, false, err
	}

	db := getDB(ctx, r.client.db)
	var counts []int
	err := db.Raw(`
		INSERT INTO usage_records (user_id, day, count, updated_at)
		VALUES (?, ?, 1, NOW())
		ON CONFLICT (user_id, day)
		DO UPDATE SET count = usage_records.count + 1, updated_at = NOW()
		WHERE usage_records.count < ?
		RETURNING count`, userID, day, limit).Scan(&counts).Error
	if err != nil {
		span.RecordError(err)
		return 0, false, fmt.Errorf("failed to reserve usage: %w", err)
	}
	if len(counts) == 0 {
		used, err := r.Get(ctx, userID, day)
		return used, false, err
	}
	return counts[0], true, nil
}

// Release 退回一次预留，计数不低于 0
func (r *UsageRepository) Release(ctx context.Context, userID string, day string) error {
	ctx, span := tracer.Start(ctx, "postgres.UsageRepository.Release")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.UsageRecord{}).
		Where("user_id = ? AND day = ? AND count > 0", userID, day).
		UpdateColumns(map[string]any{
			"count":      gorm.Expr("count - 1"),
			"updated_at": gorm.Expr("NOW()"),
		}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to release usage: %w", err)
	}
	return nil
}
