// Package chat 实现消息提交、用量查询与对话管理
package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"gorm.io/datatypes"

	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/pkg/logger"
)

// HistoryStore 基于消息仓储的会话历史存储
type HistoryStore struct {
	messages repository.MessageRepository
	convs    repository.ConversationRepository
}

// NewHistoryStore 创建会话历史存储
func NewHistoryStore(messages repository.MessageRepository, convs repository.ConversationRepository) *HistoryStore {
	return &HistoryStore{messages: messages, convs: convs}
}

// Load 按顺序读取对话的全部消息
func (h *HistoryStore) Load(ctx context.Context, _ string, conversationID string) ([]*schema.Message, error) {
	rows, err := h.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	out := make([]*schema.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := ToSchema(row)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// Append 以 offset 为起始 Seq 写入一轮消息
func (h *HistoryStore) Append(ctx context.Context, _ string, conversationID string, offset int, msgs []*schema.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	rows := make([]*entity.Message, 0, len(msgs))
	for i, msg := range msgs {
		row, err := ToEntity(conversationID, offset+i, msg)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := h.messages.AppendBatch(ctx, rows); err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	if err := h.convs.Touch(ctx, conversationID); err != nil {
		logger.Warn(ctx, "touch conversation failed", "error", err)
	}
	return nil
}

// ToEntity 转换为持久化消息
func ToEntity(conversationID string, seq int, msg *schema.Message) (*entity.Message, error) {
	row := &entity.Message{
		ConversationID: conversationID,
		Seq:            seq,
		Role:           entity.Role(msg.Role),
		Content:        msg.Content,
		ToolCallID:     msg.ToolCallID,
		ToolName:       msg.ToolName,
	}
	if len(msg.ToolCalls) > 0 {
		raw, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tool calls: %w", err)
		}
		row.ToolCalls = datatypes.JSON(raw)
	}
	return row, nil
}

// ToSchema 还原为模型消息
func ToSchema(row *entity.Message) (*schema.Message, error) {
	msg := &schema.Message{
		Role:       schema.RoleType(row.Role),
		Content:    row.Content,
		ToolCallID: row.ToolCallID,
		ToolName:   row.ToolName,
	}
	if len(row.ToolCalls) > 0 {
		var calls []schema.ToolCall
		if err := json.Unmarshal(row.ToolCalls, &calls); err != nil {
			return nil, fmt.Errorf("failed to decode tool calls of message %s: %w", row.ID, err)
		}
		msg.ToolCalls = calls
	}
	return msg, nil
}
