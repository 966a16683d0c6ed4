package repository

import (
	"context"

	"plc-agent-api/internal/domain/entity"
)

// UserRepository 账号存储。查询未命中返回 nil, nil
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// Update 全量保存，用于等级变更
	Update(ctx context.Context, user *entity.User) error
	UpdateLastLogin(ctx context.Context, id string) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
