// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"plc-agent-api/internal/domain/entity"
)

// SubmitMessageRequest 提交消息
type SubmitMessageRequest struct {
	Message        string `json:"message" binding:"required,max=32000"`
	ConversationID string `json:"conversation_id" binding:"omitempty,uuid"`
	Platform       string `json:"platform" binding:"omitempty,oneof=siemens allen_bradley codesys"`
	Model          string `json:"model" binding:"omitempty,max=128"`
}

// CreateConversationRequest 创建对话
type CreateConversationRequest struct {
	ProjectID string `json:"project_id" binding:"omitempty,uuid"`
	Title     string `json:"title" binding:"omitempty,max=255"`
	Platform  string `json:"platform" binding:"omitempty,oneof=siemens allen_bradley codesys"`
}

// UpdateConversationRequest 重命名对话，缺省字段不修改
type UpdateConversationRequest struct {
	Title    *string `json:"title" binding:"omitempty,max=255"`
	Platform *string `json:"platform" binding:"omitempty,oneof=siemens allen_bradley codesys"`
}

// ConversationResponse 对话
type ConversationResponse struct {
	ID        string    `json:"id"`
	ProjectID *string   `json:"project_id,omitempty"`
	Title     string    `json:"title"`
	Platform  string    `json:"platform,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToConversationResponse 转换对话
func ToConversationResponse(c *entity.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:        c.ID,
		ProjectID: c.ProjectID,
		Title:     c.Title,
		Platform:  c.Platform,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ToConversationResponses 批量转换
func ToConversationResponses(items []*entity.Conversation) []*ConversationResponse {
	out := make([]*ConversationResponse, 0, len(items))
	for _, c := range items {
		out = append(out, ToConversationResponse(c))
	}
	return out
}

// ConversationDetailResponse 对话与消息
type ConversationDetailResponse struct {
	*ConversationResponse
	Messages []*MessageResponse `json:"messages"`
}

// MessageResponse 持久化消息
// 工具调用参数不对外返回
type MessageResponse struct {
	Seq        int       `json:"seq"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	ToolName   string    `json:"tool_name,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToMessageResponses 批量转换消息
func ToMessageResponses(items []*entity.Message) []*MessageResponse {
	out := make([]*MessageResponse, 0, len(items))
	for _, m := range items {
		out = append(out, &MessageResponse{
			Seq:        m.Seq,
			Role:       string(m.Role),
			Content:    m.Content,
			ToolName:   m.ToolName,
			ToolCallID: m.ToolCallID,
			CreatedAt:  m.CreatedAt,
		})
	}
	return out
}
