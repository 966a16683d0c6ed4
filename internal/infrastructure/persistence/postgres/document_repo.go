// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"plc-agent-api/internal/domain/entity"
)

// DocumentRepository 生成文档仓储实现
type DocumentRepository struct {
	client *Client
}

// NewDocumentRepository 创建生成文档仓储
func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *entity.GeneratedDocument) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(doc).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, projectID, id string) (*entity.GeneratedDocument, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var doc entity.GeneratedDocument
	if err := db.First(&doc, "id = ? AND project_id = ?", id, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) Latest(ctx context.Context, projectID string, docType entity.DocType) (*entity.GeneratedDocument, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Latest")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var doc entity.GeneratedDocument
	err := db.Where("project_id = ? AND doc_type = ?", projectID, docType).
		Order("version DESC").
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get latest document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) CountByType(ctx context.Context, projectID string, docType entity.DocType) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.CountByType")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.GeneratedDocument{}).
		Where("project_id = ? AND doc_type = ?", projectID, docType).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.GeneratedDocument, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var docs []*entity.GeneratedDocument
	if err := db.Where("project_id = ?", projectID).
		Order("generated_at ASC, version ASC").
		Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}
