// Package entity 定义领域实体
package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Conversation 对话
type Conversation struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string    `json:"user_id" gorm:"type:uuid;index;not null"`
	ProjectID *string   `json:"project_id,omitempty" gorm:"type:uuid;index"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null;default:'New Conversation'"`
	Platform  string    `json:"platform,omitempty" gorm:"type:varchar(50)"`
	Archived  bool      `json:"archived" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversations"
}

// NewConversation 创建对话
func NewConversation(userID, title, platform string) *Conversation {
	if title == "" {
		title = "New Conversation"
	}
	now := time.Now()
	return &Conversation{
		UserID:    userID,
		Title:     title,
		Platform:  platform,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Message 持久化的对话轮次
// Seq 为对话内的位置，(conversation_id, seq) 唯一，用于按序重建会话
type Message struct {
	ID             string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationID string         `json:"conversation_id" gorm:"type:uuid;not null;uniqueIndex:idx_messages_conv_seq,priority:1"`
	Seq            int            `json:"seq" gorm:"not null;uniqueIndex:idx_messages_conv_seq,priority:2"`
	Role           Role           `json:"role" gorm:"type:varchar(16);not null"`
	Content        string         `json:"content" gorm:"type:text;not null"`
	ToolCalls      datatypes.JSON `json:"tool_calls,omitempty" gorm:"type:jsonb"`
	ToolCallID     string         `json:"tool_call_id,omitempty" gorm:"type:varchar(128)"`
	ToolName       string         `json:"tool_name,omitempty" gorm:"type:varchar(64)"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

// Role 消息角色，取值与模型侧一致
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)
