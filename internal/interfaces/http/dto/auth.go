// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"plc-agent-api/internal/domain/entity"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Username string `json:"username" binding:"required,max=100"`
	FullName string `json:"full_name" binding:"omitempty,max=200"`
	Company  string `json:"company" binding:"omitempty,max=200"`
	JobTitle string `json:"job_title" binding:"omitempty,max=200"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新请求，未携带时读取 Cookie
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthUserDTO 认证响应中的用户信息
type AuthUserDTO struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Tier     string `json:"tier"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    int          `json:"expires_in"` // 秒
	User         *AuthUserDTO `json:"user"`
}

// ToAuthUserDTO 将领域实体转换为 DTO
func ToAuthUserDTO(u *entity.User) *AuthUserDTO {
	if u == nil {
		return nil
	}
	return &AuthUserDTO{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		FullName: u.FullName,
		Tier:     string(u.EffectiveTier()),
	}
}
