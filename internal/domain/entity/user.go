// Package entity 定义领域实体
package entity

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 用户实体
// 等级由账户管理维护，核心流程只读取
type User struct {
	ID           string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string     `json:"username" gorm:"type:varchar(100);not null"`
	FullName     string     `json:"full_name,omitempty" gorm:"type:varchar(200)"`
	Company      string     `json:"company,omitempty" gorm:"type:varchar(200)"`
	JobTitle     string     `json:"job_title,omitempty" gorm:"type:varchar(200)"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"` // 不在 JSON 中暴露
	Tier         Tier       `json:"tier" gorm:"type:varchar(20);not null;default:'free'"`
	IsActive     bool       `json:"is_active" gorm:"not null;default:true"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// NewUser 创建新用户，默认 free 等级
func NewUser(email, username string) *User {
	now := time.Now()
	return &User{
		Email:     email,
		Username:  username,
		Tier:      TierFree,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EffectiveTier 返回规范化后的等级
func (u *User) EffectiveTier() Tier {
	return ParseTier(string(u.Tier))
}

// SetPassword 设置并散列密码
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
