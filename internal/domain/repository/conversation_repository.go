// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"plc-agent-api/internal/domain/entity"
)

// ConversationRepository 对话仓储接口
type ConversationRepository interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	// GetByID 不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	// GetForUser 仅返回属于该用户的对话
	GetForUser(ctx context.Context, userID, id string) (*entity.Conversation, error)
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.Conversation], error)
	// Update 保存标题与平台
	Update(ctx context.Context, conv *entity.Conversation) error
	Touch(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
}

// MessageRepository 消息仓储接口
type MessageRepository interface {
	// AppendBatch 按 Seq 顺序一次写入一整轮消息
	AppendBatch(ctx context.Context, msgs []*entity.Message) error
	// ListByConversation 按 Seq 升序返回全部消息
	ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error)
	// CountByConversation 返回已持久化的消息数
	CountByConversation(ctx context.Context, conversationID string) (int, error)
}
