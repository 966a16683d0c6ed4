package dto

import (
	"time"

	"plc-agent-api/internal/application/quota"
	"plc-agent-api/internal/domain/entity"
)

// UpdateProfileRequest 修改个人资料，缺省字段不修改
type UpdateProfileRequest struct {
	Username *string `json:"username" binding:"omitempty,max=100"`
	FullName *string `json:"full_name" binding:"omitempty,max=200"`
	Company  *string `json:"company" binding:"omitempty,max=200"`
	JobTitle *string `json:"job_title" binding:"omitempty,max=200"`
}

// ProfileResponse 个人资料与今日用量
type ProfileResponse struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	Username     string        `json:"username"`
	FullName     string        `json:"full_name"`
	Company      string        `json:"company"`
	JobTitle     string        `json:"job_title"`
	Tier         string        `json:"tier"`
	CreatedAt    time.Time     `json:"created_at"`
	Usage        *quota.Status `json:"usage,omitempty"`
	AllowedTools []string      `json:"allowed_tools,omitempty"`
}

// ToProfileResponse 转换个人资料
func ToProfileResponse(u *entity.User) *ProfileResponse {
	return &ProfileResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FullName:  u.FullName,
		Company:   u.Company,
		JobTitle:  u.JobTitle,
		Tier:      string(u.EffectiveTier()),
		CreatedAt: u.CreatedAt,
	}
}
