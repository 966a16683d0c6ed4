// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"plc-agent-api/internal/domain/entity"
)

// MessageRepository 消息仓储实现
type MessageRepository struct {
	client *Client
}

// NewMessageRepository 创建消息仓储
func NewMessageRepository(client *Client) *MessageRepository {
	return &MessageRepository{client: client}
}

// AppendBatch 一次写入一整轮消息
// (conversation_id, seq) 唯一索引保证两次提交不会写到同一位置
func (r *MessageRepository) AppendBatch(ctx context.Context, msgs []*entity.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.AppendBatch")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.CreateInBatches(msgs, 100).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.ListByConversation")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var msgs []*entity.Message
	if err := db.Where("conversation_id = ?", conversationID).Order("seq ASC").Find(&msgs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

func (r *MessageRepository) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.CountByConversation")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return int(count), nil
}
