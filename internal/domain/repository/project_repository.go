// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"plc-agent-api/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	// Create 创建项目
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取项目，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Project, error)

	// GetByIDForUpdate 在事务中加行锁读取项目
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Project, error)

	// Update 更新项目
	Update(ctx context.Context, project *entity.Project) error

	// UpdateStage 更新当前阶段指针
	UpdateStage(ctx context.Context, id string, stage entity.Stage) error

	// Archive 归档项目
	Archive(ctx context.Context, id string) error

	// ListByOwner 获取用户未归档项目列表
	ListByOwner(ctx context.Context, ownerID string, pagination Pagination) (*PagedResult[*entity.Project], error)

	// CountActiveByOwner 统计用户未归档项目数
	CountActiveByOwner(ctx context.Context, ownerID string) (int64, error)
}

// StageRepository 阶段记录仓储接口
type StageRepository interface {
	CreateBatch(ctx context.Context, records []*entity.StageRecord) error
	ListByProject(ctx context.Context, projectID string) ([]*entity.StageRecord, error)
	Update(ctx context.Context, record *entity.StageRecord) error
}

// DocumentRepository 生成文档仓储接口
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.GeneratedDocument) error
	GetByID(ctx context.Context, projectID, id string) (*entity.GeneratedDocument, error)
	// Latest 返回某类型最新版本，没有时返回 nil, nil
	Latest(ctx context.Context, projectID string, docType entity.DocType) (*entity.GeneratedDocument, error)
	CountByType(ctx context.Context, projectID string, docType entity.DocType) (int64, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.GeneratedDocument, error)
}

// UsageRepository 每日用量仓储接口
type UsageRepository interface {
	// Get 返回某日计数，无记录为 0
	Get(ctx context.Context, userID string, day string) (int, error)
	// Reserve 计数小于 limit 时原子加一，返回计数与是否占到
	Reserve(ctx context.Context, userID string, day string, limit int) (int, bool, error)
	// Release 退回一次预留
	Release(ctx context.Context, userID string, day string) error
}
