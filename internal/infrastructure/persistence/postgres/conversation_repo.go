// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
)

// ConversationRepository 对话仓储实现
type ConversationRepository struct {
	client *Client
}

// NewConversationRepository 创建对话仓储
func NewConversationRepository(client *Client) *ConversationRepository {
	return &ConversationRepository{client: client}
}

func (r *ConversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(conv).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var conv entity.Conversation
	if err := db.First(&conv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

func (r *ConversationRepository) GetForUser(ctx context.Context, userID, id string) (*entity.Conversation, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.GetForUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var conv entity.Conversation
	if err := db.First(&conv, "id = ? AND user_id = ? AND archived = ?", id, userID, false).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

func (r *ConversationRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Conversation], error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db).Model(&entity.Conversation{}).
		Where("user_id = ? AND archived = ?", userID, false)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}

	var convs []*entity.Conversation
	if err := db.Order("updated_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&convs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return repository.NewPagedResult(convs, total, pagination), nil
}

func (r *ConversationRepository) Update(ctx context.Context, conv *entity.Conversation) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(conv).Select("title", "platform", "updated_at").Updates(conv).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

// Touch 刷新 updated_at，使最近活跃的对话排在前面
func (r *ConversationRepository) Touch(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.Touch")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Conversation{}).Where("id = ?", id).Update("updated_at", time.Now()).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepository) Archive(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.Archive")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Conversation{}).Where("id = ?", id).Update("archived", true).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to archive conversation: %w", err)
	}
	return nil
}
