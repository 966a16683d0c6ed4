package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"plc-agent-api/internal/domain/entity"
)

// UserRepository users 表
type UserRepository struct {
	client *Client
}

func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(user).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, "postgres.UserRepository.GetByID", "id = ?", id)
}

// GetByEmail 登录与注册查重使用
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "postgres.UserRepository.GetByEmail", "email = ?", email)
}

func (r *UserRepository) findOne(ctx context.Context, op, cond string, arg any) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	var user entity.User
	err := getDB(ctx, r.client.db).Where(cond, arg).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(user).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.UpdateLastLogin")
	defer span.End()

	err := getDB(ctx, r.client.db).Model(&entity.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", time.Now().UTC()).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to record login for %s: %w", id, err)
	}
	return nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.ExistsByEmail")
	defer span.End()

	var found int
	err := getDB(ctx, r.client.db).Model(&entity.User{}).
		Select("1").Where("email = ?", email).Limit(1).Scan(&found).Error
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return found == 1, nil
}
