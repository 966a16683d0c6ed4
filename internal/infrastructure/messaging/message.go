// Package messaging 提供基于 Redis Stream 的事件发布
package messaging

import (
	"encoding/json"
	"time"
)

// Message 消息结构
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	ProjectID string            `json:"project_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建新消息
func NewMessage(id, msgType, userID, projectID string, payload any) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        id,
		Type:      msgType,
		UserID:    userID,
		ProjectID: projectID,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// Stream 流定义
type Stream string

const (
	StreamProjectLifecycle Stream = "stream:project:lifecycle"
	StreamAuditLog         Stream = "stream:audit:log"
)

// 消息类型
const (
	TypeStageAdvanced    = "stage_advanced"
	TypeDocumentRecorded = "document_recorded"
	TypeAudit            = "audit"
)

// LifecycleEventMessage 项目生命周期事件
type LifecycleEventMessage struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id,omitempty"`
	Event     string    `json:"event"`
	FromStage string    `json:"from_stage,omitempty"`
	ToStage   string    `json:"to_stage,omitempty"`
	DocType   string    `json:"doc_type,omitempty"`
	DocID     string    `json:"doc_id,omitempty"`
	Version   int       `json:"version,omitempty"`
	At        time.Time `json:"at"`
}

// AuditLogMessage 审计日志消息
type AuditLogMessage struct {
	UserID         string         `json:"user_id,omitempty"`
	Action         string         `json:"action"`
	ResourceType   string         `json:"resource_type"`
	ResourceID     string         `json:"resource_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	RequestID      string         `json:"request_id"`
	TraceID        string         `json:"trace_id,omitempty"`
	IPAddress      string         `json:"ip_address,omitempty"`
	UserAgent      string         `json:"user_agent,omitempty"`
	Status         int            `json:"status,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
