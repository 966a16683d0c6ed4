// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"plc-agent-api/internal/domain/entity"
)

// StageRepository 阶段记录仓储实现
type StageRepository struct {
	client *Client
}

// NewStageRepository 创建阶段记录仓储
func NewStageRepository(client *Client) *StageRepository {
	return &StageRepository{client: client}
}

func (r *StageRepository) CreateBatch(ctx context.Context, records []*entity.StageRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.StageRepository.CreateBatch")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(&records).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create stage records: %w", err)
	}
	return nil
}

// ListByProject 按阶段顺序返回记录
func (r *StageRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.StageRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.StageRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var records []*entity.StageRecord
	if err := db.Where("project_id = ?", projectID).
		Order("CASE stage WHEN 'planning' THEN 0 WHEN 'execution' THEN 1 WHEN 'testing' THEN 2 ELSE 3 END").
		Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list stage records: %w", err)
	}
	return records, nil
}

func (r *StageRepository) Update(ctx context.Context, record *entity.StageRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.StageRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update stage record: %w", err)
	}
	return nil
}
