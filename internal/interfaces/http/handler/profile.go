package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"plc-agent-api/internal/application/chat"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/internal/interfaces/http/dto"
	"plc-agent-api/internal/interfaces/http/middleware"
	"plc-agent-api/pkg/logger"
)

// UsageReporter 查询今日用量
type UsageReporter interface {
	CheckUsage(ctx context.Context, userID string, tier entity.Tier) (*chat.UsageReport, error)
}

// ProfileHandler 个人资料处理器
type ProfileHandler struct {
	users repository.UserRepository
	usage UsageReporter
}

// NewProfileHandler 创建个人资料处理器
func NewProfileHandler(users repository.UserRepository, usage UsageReporter) *ProfileHandler {
	return &ProfileHandler{users: users, usage: usage}
}

// Get 个人资料，附带今日用量
// @Summary 个人资料
// @Tags Profile
// @Produce json
// @Success 200 {object} dto.Response[dto.ProfileResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	user, ok := h.current(c)
	if !ok {
		return
	}
	rep, err := h.usage.CheckUsage(c.Request.Context(), user.ID, user.EffectiveTier())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.ToProfileResponse(user)
	resp.Usage = &rep.Usage
	resp.AllowedTools = rep.AllowedTools
	dto.Success(c, resp)
}

// Update 修改个人资料
func (h *ProfileHandler) Update(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	user, ok := h.current(c)
	if !ok {
		return
	}

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" {
			dto.BadRequest(c, "username must not be empty")
			return
		}
		user.Username = name
	}
	for dst, src := range map[*string]*string{
		&user.FullName: req.FullName,
		&user.Company:  req.Company,
		&user.JobTitle: req.JobTitle,
	} {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}

	ctx := c.Request.Context()
	if err := h.users.Update(ctx, user); err != nil {
		logger.Error(ctx, "failed to update profile", err)
		dto.InternalError(c, "profile update failed")
		return
	}
	dto.Success(c, dto.ToProfileResponse(user))
}

func (h *ProfileHandler) current(c *gin.Context) (*entity.User, bool) {
	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "failed to load profile")
		return nil, false
	}
	if user == nil || !user.IsActive {
		dto.Unauthorized(c, "account not found")
		return nil, false
	}
	return user, true
}
