// Package project 实现项目的创建、配置、归档与看板
package project

import (
	"context"
	"fmt"
	"strings"

	"plc-agent-api/internal/application/lifecycle"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/pkg/keylock"
	"plc-agent-api/pkg/logger"
)

// LimitReachedError 活跃项目数已达等级上限
type LimitReachedError struct {
	Tier  entity.Tier
	Limit int
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("project limit reached: %s tier allows %d active projects", e.Tier, e.Limit)
}

// ValidationError 输入不合法
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Limits 查询等级的项目上限
type Limits interface {
	MaxProjects(tier entity.Tier) (limit int, bounded bool)
}

// Service 项目服务
type Service struct {
	tx       repository.Transactor
	projects repository.ProjectRepository
	stages   repository.StageRepository
	docs     repository.DocumentRepository
	ctrl     *lifecycle.Controller
	limits   Limits
	creates  *keylock.Locker
}

// NewService 创建项目服务
func NewService(
	tx repository.Transactor,
	projects repository.ProjectRepository,
	stages repository.StageRepository,
	docs repository.DocumentRepository,
	ctrl *lifecycle.Controller,
	limits Limits,
) *Service {
	return &Service{
		tx:       tx,
		projects: projects,
		stages:   stages,
		docs:     docs,
		ctrl:     ctrl,
		limits:   limits,
		creates:  keylock.New(),
	}
}

// CreateInput 创建项目参数
type CreateInput struct {
	Title           string
	Description     string
	Platform        string
	SoftwareVersion string
	Hardware        *entity.Hardware
}

// Create 在等级上限内创建项目，并初始化四条阶段记录
func (s *Service) Create(ctx context.Context, userID string, tier entity.Tier, in CreateInput) (*entity.Project, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}

	unlock := s.creates.Lock(userID)
	defer unlock()

	if limit, bounded := s.limits.MaxProjects(tier); bounded {
		n, err := s.projects.CountActiveByOwner(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count projects: %w", err)
		}
		if int(n) >= limit {
			return nil, &LimitReachedError{Tier: tier, Limit: limit}
		}
	}

	p := entity.NewProject(userID, strings.TrimSpace(in.Title), in.Platform)
	p.Description = in.Description
	p.SoftwareVersion = in.SoftwareVersion
	if in.Hardware != nil {
		p.ApplyHardware(*in.Hardware)
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.projects.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		_, err := s.ctrl.InitStages(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "project created", "project_id", p.ID, "platform", p.Platform)
	return p, nil
}

// List 分页列出未归档项目
func (s *Service) List(ctx context.Context, userID string, pg repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	res, err := s.projects.ListByOwner(ctx, userID, pg)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return res, nil
}

// Get 读取项目
func (s *Service) Get(ctx context.Context, userID, projectID string) (*entity.Project, error) {
	return lifecycle.OwnedProject(ctx, s.projects, userID, projectID)
}

// UpdateInput 可修改的项目字段，nil 表示不变
type UpdateInput struct {
	Title           *string
	Description     *string
	SoftwareVersion *string
}

// Update 修改项目基本信息
func (s *Service) Update(ctx context.Context, userID, projectID string, in UpdateInput) (*entity.Project, error) {
	p, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, &ValidationError{Field: "title", Message: "must not be empty"}
		}
		p.Title = title
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.SoftwareVersion != nil {
		p.SoftwareVersion = *in.SoftwareVersion
	}
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return p, nil
}

// UpdateHardware 替换项目硬件配置
func (s *Service) UpdateHardware(ctx context.Context, userID, projectID string, hw entity.Hardware) (*entity.Project, error) {
	p, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	p.ApplyHardware(hw)
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update hardware: %w", err)
	}
	return p, nil
}

// Archive 归档项目，归档后不再计入上限
func (s *Service) Archive(ctx context.Context, userID, projectID string) error {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return err
	}
	if err := s.projects.Archive(ctx, projectID); err != nil {
		return fmt.Errorf("failed to archive project: %w", err)
	}
	logger.Info(ctx, "project archived", "project_id", projectID)
	return nil
}

// Advance 推进调用者项目的阶段
func (s *Service) Advance(ctx context.Context, userID, projectID string) (*lifecycle.AdvanceResult, error) {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.ctrl.Advance(ctx, projectID)
}

// StageView 看板中的阶段
type StageView struct {
	*entity.StageRecord
	Label string `json:"label"`
}

// Dashboard 项目看板
type Dashboard struct {
	Project   *entity.Project                              `json:"project"`
	Stages    []StageView                                  `json:"stages"`
	Documents map[entity.Stage][]*entity.GeneratedDocument `json:"generated_docs"`
	Progress  int                                          `json:"progress"`
	HasFDS    bool                                         `json:"has_fds"`
	HasIOList bool                                         `json:"has_io_list"`
}

// Dashboard 汇总阶段记录与按阶段分组的文档
func (s *Service) Dashboard(ctx context.Context, userID, projectID string) (*Dashboard, error) {
	p, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	records, err := s.stages.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stages: %w", err)
	}
	if len(records) == 0 {
		if records, err = s.ctrl.InitStages(ctx, projectID); err != nil {
			return nil, err
		}
	}

	docs, err := s.docs.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	d := &Dashboard{
		Project:   p,
		Stages:    make([]StageView, 0, len(records)),
		Documents: make(map[entity.Stage][]*entity.GeneratedDocument),
		HasFDS:    strings.TrimSpace(p.FDSContent) != "",
		HasIOList: strings.TrimSpace(p.IOListContent) != "",
	}
	completed := 0
	for _, r := range orderStages(records) {
		d.Stages = append(d.Stages, StageView{StageRecord: r, Label: r.Stage.Label()})
		if r.Status == entity.StageStatusCompleted {
			completed++
		}
	}
	d.Progress = completed * 100 / len(entity.StageOrder)
	for _, doc := range docs {
		d.Documents[doc.Stage] = append(d.Documents[doc.Stage], doc)
	}
	return d, nil
}

func orderStages(records []*entity.StageRecord) []*entity.StageRecord {
	out := make([]*entity.StageRecord, 0, len(records))
	for _, st := range entity.StageOrder {
		for _, r := range records {
			if r.Stage == st {
				out = append(out, r)
			}
		}
	}
	return out
}
