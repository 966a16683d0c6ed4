// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"

	"plc-agent-api/internal/config"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/internal/interfaces/http/dto"
	"plc-agent-api/pkg/logger"
	"plc-agent-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

const refreshCookiePath = "/v1/auth/refresh"

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager *utils.JWTManager
	accessTTL  time.Duration
	refreshTTL time.Duration
	userRepo   repository.UserRepository
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, userRepo repository.UserRepository) *AuthHandler {
	accessTTL := cfg.Security.JWT.Expiration
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.Security.JWT.RefreshExpiration
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &AuthHandler{
		jwtManager: utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		userRepo:   userRepo,
	}
}

// Register 注册，新用户为 free 等级
// @Summary 用户注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.Response[dto.AuthResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	exists, err := h.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to check email existence", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if exists {
		dto.Conflict(c, "email already registered")
		return
	}

	user := entity.NewUser(req.Email, req.Username)
	user.FullName = req.FullName
	user.Company = req.Company
	user.JobTitle = req.JobTitle
	if err := user.SetPassword(req.Password); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "registration failed")
		return
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		logger.Error(ctx, "failed to create user", err)
		dto.InternalError(c, "registration failed")
		return
	}

	resp, ok := h.issue(c, user)
	if !ok {
		return
	}
	dto.Created(c, resp)
}

// Login 登录
// @Summary 用户登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "login failed")
		return
	}
	if user == nil || !user.IsActive || !user.CheckPassword(req.Password) {
		dto.Unauthorized(c, "invalid email or password")
		return
	}

	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login time", "error", err, "user_id", user.ID)
	}

	resp, ok := h.issue(c, user)
	if !ok {
		return
	}
	dto.Success(c, resp)
}

// RefreshToken 刷新 AccessToken，等级按当前用户记录重新签发
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RefreshRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		cookie, err := c.Cookie("refresh_token")
		if err != nil {
			dto.Unauthorized(c, "missing refresh token")
			return
		}
		token = cookie
	}

	claims, err := h.jwtManager.ParseToken(token)
	if err != nil || claims.Type != utils.TokenTypeRefresh {
		dto.Unauthorized(c, "invalid refresh token")
		return
	}

	user, err := h.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "refresh failed")
		return
	}
	if user == nil || !user.IsActive {
		dto.Unauthorized(c, "invalid refresh token")
		return
	}

	access, err := h.jwtManager.GenerateToken(user.ID, string(user.EffectiveTier()), utils.TokenTypeAccess, h.accessTTL)
	if err != nil {
		dto.InternalError(c, "failed to generate access token")
		return
	}

	dto.Success(c, gin.H{
		"access_token": access,
		"expires_in":   int(h.accessTTL.Seconds()),
	})
}

// Logout 登出
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie("refresh_token", "", -1, refreshCookiePath, "", false, true)
	dto.Success(c, gin.H{"message": "logged out"})
}

func (h *AuthHandler) issue(c *gin.Context, user *entity.User) (*dto.AuthResponse, bool) {
	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, string(user.EffectiveTier()), h.accessTTL, h.refreshTTL)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to generate tokens", err)
		dto.InternalError(c, "failed to generate tokens")
		return nil, false
	}

	c.SetCookie("refresh_token", tokens.RefreshToken, int(h.refreshTTL.Seconds()), refreshCookiePath, "", false, true)
	return &dto.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    int(h.accessTTL.Seconds()),
		User:         dto.ToAuthUserDTO(user),
	}, true
}
