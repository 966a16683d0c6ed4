package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"plc-agent-api/internal/application/agent"
	"plc-agent-api/internal/application/quota"
	"plc-agent-api/internal/config"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/internal/domain/service"
	"plc-agent-api/internal/infrastructure/messaging"
	"plc-agent-api/pkg/logger"
)

var (
	// ErrEmptyMessage 消息为空
	ErrEmptyMessage = errors.New("message is empty")
	// ErrConversationNotFound 对话不存在或不属于调用者
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrModelNotAllowed 模型不在允许列表中
	ErrModelNotAllowed = errors.New("model not allowed")
	// ErrEmptyTitle 重命名时标题为空
	ErrEmptyTitle = errors.New("conversation title is empty")
)

const titleMaxRunes = 50

// Sessions 会话注册表
type Sessions interface {
	Submit(ctx context.Context, userID, conversationID string, in agent.SubmitInput) (*agent.SubmitResult, error)
	Reset(userID string) int
}

// UsageCounter 每日消息计数
type UsageCounter interface {
	Check(ctx context.Context, userID string, tier entity.Tier) (quota.Status, error)
	Reserve(ctx context.Context, userID string, tier entity.Tier) (*quota.Reservation, error)
}

// ToolLister 查询等级可用工具
type ToolLister interface {
	AllowedTools(tier entity.Tier) []string
}

// AuditPublisher 审计日志发布
type AuditPublisher interface {
	PublishAuditLog(ctx context.Context, log *messaging.AuditLogMessage) (string, error)
}

// Service 对话服务
type Service struct {
	sessions      Sessions
	convs         repository.ConversationRepository
	messages      repository.MessageRepository
	usage         UsageCounter
	tools         ToolLister
	audit         AuditPublisher
	allowedModels map[string]struct{}
}

// NewService 创建对话服务，audit 可为 nil
func NewService(
	sessions Sessions,
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	usage UsageCounter,
	tools ToolLister,
	audit AuditPublisher,
	cfg *config.Config,
) *Service {
	allowed := make(map[string]struct{}, len(cfg.Agent.AllowedModels))
	for _, m := range cfg.Agent.AllowedModels {
		allowed[m] = struct{}{}
	}
	return &Service{
		sessions:      sessions,
		convs:         convs,
		messages:      messages,
		usage:         usage,
		tools:         tools,
		audit:         audit,
		allowedModels: allowed,
	}
}

// SubmitRequest 提交消息参数
type SubmitRequest struct {
	UserID         string
	Tier           entity.Tier
	ConversationID string
	Message        string
	Platform       string
	Model          string
}

// SubmitResponse 提交结果
type SubmitResponse struct {
	ConversationID string       `json:"conversation_id"`
	Response       string       `json:"response"`
	FilesSaved     []string     `json:"files_saved"`
	Usage          quota.Status `json:"usage"`
	Rounds         int          `json:"rounds"`
	Truncated      bool         `json:"truncated,omitempty"`
}

// Submit 先占用一条额度再把消息交给会话，失败时退回额度
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (_ *SubmitResponse, err error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if req.Model != "" && len(s.allowedModels) > 0 {
		if _, ok := s.allowedModels[req.Model]; !ok {
			return nil, ErrModelNotAllowed
		}
	}
	resv, err := s.usage.Reserve(ctx, req.UserID, req.Tier)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			refund(ctx, resv)
		}
	}()

	conv, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	text := req.Message
	if req.Platform != "" {
		text = fmt.Sprintf("[Target Platform: %s]\n%s", req.Platform, req.Message)
	}

	ctx = service.WithWorkflow(ctx, service.WorkflowChat)
	ctx, files := agent.WithFileCollector(ctx)

	res, err := s.sessions.Submit(ctx, req.UserID, conv.ID, agent.SubmitInput{
		Text:          text,
		Tier:          req.Tier,
		ModelOverride: req.Model,
	})
	if err != nil {
		return nil, err
	}

	saved := files.Files()
	s.publishAudit(context.WithoutCancel(ctx), req, conv.ID, len(saved), res)

	return &SubmitResponse{
		ConversationID: conv.ID,
		Response:       res.Text,
		FilesSaved:     saved,
		Usage:          resv.Status,
		Rounds:         res.Rounds,
		Truncated:      res.Truncated,
	}, nil
}

// refund 退回额度，请求取消后同样要执行
func refund(ctx context.Context, resv *quota.Reservation) {
	if err := resv.Release(context.WithoutCancel(ctx)); err != nil {
		logger.Warn(ctx, "usage refund failed", "error", err)
	}
}

func (s *Service) resolveConversation(ctx context.Context, req SubmitRequest) (*entity.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.convs.GetForUser(ctx, req.UserID, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
		if conv == nil || conv.Archived {
			return nil, ErrConversationNotFound
		}
		return conv, nil
	}

	conv := entity.NewConversation(req.UserID, titleFrom(req.Message), req.Platform)
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	logger.Info(ctx, "conversation created", "conversation_id", conv.ID)
	return conv, nil
}

func titleFrom(message string) string {
	r := []rune(strings.TrimSpace(message))
	if len(r) > titleMaxRunes {
		return string(r[:titleMaxRunes])
	}
	return string(r)
}

func (s *Service) publishAudit(ctx context.Context, req SubmitRequest, conversationID string, files int, res *agent.SubmitResult) {
	if s.audit == nil {
		return
	}
	requestID, _ := ctx.Value(logger.RequestIDKey).(string)
	_, err := s.audit.PublishAuditLog(ctx, &messaging.AuditLogMessage{
		UserID:         req.UserID,
		Action:         "submit_message",
		ResourceType:   "conversation",
		ResourceID:     conversationID,
		ConversationID: conversationID,
		RequestID:      requestID,
		Metadata: map[string]any{
			"tier":        req.Tier.String(),
			"rounds":      res.Rounds,
			"truncated":   res.Truncated,
			"files_saved": files,
		},
	})
	if err != nil {
		logger.Warn(ctx, "publish audit log failed", "error", err)
	}
}

// UsageReport 用量查询结果
type UsageReport struct {
	Tier         entity.Tier  `json:"tier"`
	Usage        quota.Status `json:"usage"`
	AllowedTools []string     `json:"allowed_tools"`
}

// CheckUsage 查询今日用量，无副作用
func (s *Service) CheckUsage(ctx context.Context, userID string, tier entity.Tier) (*UsageReport, error) {
	st, err := s.usage.Check(ctx, userID, tier)
	if err != nil {
		return nil, err
	}
	return &UsageReport{Tier: tier, Usage: st, AllowedTools: s.tools.AllowedTools(tier)}, nil
}

// Reset 丢弃用户的内存会话
func (s *Service) Reset(ctx context.Context, userID string) int {
	n := s.sessions.Reset(userID)
	logger.Info(ctx, "sessions reset", "count", n)
	return n
}

// CreateConversationInput 显式创建对话参数
type CreateConversationInput struct {
	ProjectID string
	Title     string
	Platform  string
}

// CreateConversation 显式创建对话
func (s *Service) CreateConversation(ctx context.Context, userID string, in CreateConversationInput) (*entity.Conversation, error) {
	conv := entity.NewConversation(userID, in.Title, in.Platform)
	if in.ProjectID != "" {
		pid := in.ProjectID
		conv.ProjectID = &pid
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations 分页列出对话
func (s *Service) ListConversations(ctx context.Context, userID string, pg repository.Pagination) (*repository.PagedResult[*entity.Conversation], error) {
	res, err := s.convs.ListByUser(ctx, userID, pg)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return res, nil
}

// ConversationDetail 对话及全部消息
type ConversationDetail struct {
	Conversation *entity.Conversation
	Messages     []*entity.Message
}

// GetConversation 返回对话及其消息
func (s *Service) GetConversation(ctx context.Context, userID, conversationID string) (*ConversationDetail, error) {
	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return &ConversationDetail{Conversation: conv, Messages: msgs}, nil
}

// UpdateConversationInput nil 字段保持不变
type UpdateConversationInput struct {
	Title    *string
	Platform *string
}

// UpdateConversation 重命名或修改目标平台
func (s *Service) UpdateConversation(ctx context.Context, userID, conversationID string, in UpdateConversationInput) (*entity.Conversation, error) {
	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, ErrEmptyTitle
		}
		conv.Title = title
	}
	if in.Platform != nil {
		conv.Platform = *in.Platform
	}
	conv.UpdatedAt = time.Now()
	if err := s.convs.Update(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	return conv, nil
}

// Messages 列出对话的持久化消息
func (s *Service) Messages(ctx context.Context, userID, conversationID string) ([]*entity.Message, error) {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// ArchiveConversation 归档对话
func (s *Service) ArchiveConversation(ctx context.Context, userID, conversationID string) error {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.convs.Archive(ctx, conversationID); err != nil {
		return fmt.Errorf("failed to archive conversation: %w", err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conv, err := s.convs.GetForUser(ctx, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv == nil || conv.Archived {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}
