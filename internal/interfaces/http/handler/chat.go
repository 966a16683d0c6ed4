// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"plc-agent-api/internal/application/chat"
	"plc-agent-api/internal/interfaces/http/dto"
	"plc-agent-api/internal/interfaces/http/middleware"
)

// ChatHandler 对话与用量处理器
type ChatHandler struct {
	chat *chat.Service
}

// NewChatHandler 创建对话处理器
func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{chat: svc}
}

// Submit 提交消息
// @Summary 提交消息并运行工具循环
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.SubmitMessageRequest true "消息"
// @Success 200 {object} dto.Response[chat.SubmitResponse]
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/chat [post]
func (h *ChatHandler) Submit(c *gin.Context) {
	var req dto.SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.chat.Submit(c.Request.Context(), chat.SubmitRequest{
		UserID:         middleware.UserID(c),
		Tier:           middleware.Tier(c),
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Platform:       req.Platform,
		Model:          req.Model,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if res.FilesSaved == nil {
		res.FilesSaved = []string{}
	}
	dto.Success(c, res)
}

// Usage 查询今日用量
// @Summary 今日用量
// @Tags Chat
// @Produce json
// @Success 200 {object} dto.Response[chat.UsageReport]
// @Router /v1/usage [get]
func (h *ChatHandler) Usage(c *gin.Context) {
	rep, err := h.chat.CheckUsage(c.Request.Context(), middleware.UserID(c), middleware.Tier(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, rep)
}

// Reset 丢弃内存会话
func (h *ChatHandler) Reset(c *gin.Context) {
	n := h.chat.Reset(c.Request.Context(), middleware.UserID(c))
	dto.Success(c, gin.H{"sessions_reset": n})
}

// CreateConversation 创建对话
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	conv, err := h.chat.CreateConversation(c.Request.Context(), middleware.UserID(c), chat.CreateConversationInput{
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Platform:  req.Platform,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, dto.ToConversationResponse(conv))
}

// ListConversations 列出对话
func (h *ChatHandler) ListConversations(c *gin.Context) {
	page := dto.BindPage(c)
	res, err := h.chat.ListConversations(c.Request.Context(), middleware.UserID(c), page.Pagination())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.SuccessWithPage(c, dto.ToConversationResponses(res.Items), dto.PageMetaFrom(res))
}

// GetConversation 获取对话及消息
func (h *ChatHandler) GetConversation(c *gin.Context) {
	detail, err := h.chat.GetConversation(c.Request.Context(), middleware.UserID(c), dto.BindConversationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, &dto.ConversationDetailResponse{
		ConversationResponse: dto.ToConversationResponse(detail.Conversation),
		Messages:             dto.ToMessageResponses(detail.Messages),
	})
}

// UpdateConversation 重命名对话
func (h *ChatHandler) UpdateConversation(c *gin.Context) {
	var req dto.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	conv, err := h.chat.UpdateConversation(c.Request.Context(), middleware.UserID(c), dto.BindConversationID(c), chat.UpdateConversationInput{
		Title:    req.Title,
		Platform: req.Platform,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToConversationResponse(conv))
}

// ListMessages 列出对话消息
func (h *ChatHandler) ListMessages(c *gin.Context) {
	msgs, err := h.chat.Messages(c.Request.Context(), middleware.UserID(c), dto.BindConversationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToMessageResponses(msgs))
}

// ArchiveConversation 归档对话
func (h *ChatHandler) ArchiveConversation(c *gin.Context) {
	if err := h.chat.ArchiveConversation(c.Request.Context(), middleware.UserID(c), dto.BindConversationID(c)); err != nil {
		respondError(c, err)
		return
	}
	dto.NoContent(c)
}
