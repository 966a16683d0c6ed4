// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
)

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(project).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取项目
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByID")
	defer span.End()

	project, err := firstProject(getDB(ctx, r.client.db), id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// GetByIDForUpdate 加行锁读取项目，需在事务中调用
func (r *ProjectRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByIDForUpdate")
	defer span.End()

	db := getDB(ctx, r.client.db).Clauses(clause.Locking{Strength: "UPDATE"})
	project, err := firstProject(db, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project for update: %w", err)
	}
	return project, nil
}

func firstProject(db *gorm.DB, id string) (*entity.Project, error) {
	var project entity.Project
	if err := db.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(project).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// UpdateStage 更新当前阶段
func (r *ProjectRepository) UpdateStage(ctx context.Context, id string, stage entity.Stage) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdateStage")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Project{}).Where("id = ?", id).Update("current_stage", stage).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update project stage: %w", err)
	}
	return nil
}

// Archive 归档项目
func (r *ProjectRepository) Archive(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Archive")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Project{}).Where("id = ?", id).Update("archived", true).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to archive project: %w", err)
	}
	return nil
}

// ListByOwner 获取用户未归档项目列表
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.ListByOwner")
	defer span.End()

	db := getDB(ctx, r.client.db).Model(&entity.Project{}).
		Where("owner_id = ? AND archived = ?", ownerID, false)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	var projects []*entity.Project
	if err := db.Order("updated_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&projects).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return repository.NewPagedResult(projects, total, pagination), nil
}

// CountActiveByOwner 统计用户未归档项目数
func (r *ProjectRepository) CountActiveByOwner(ctx context.Context, ownerID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.CountActiveByOwner")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Project{}).
		Where("owner_id = ? AND archived = ?", ownerID, false).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count active projects: %w", err)
	}
	return count, nil
}
