// Package lifecycle 管理项目阶段流转与生成文档
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/internal/infrastructure/messaging"
	"plc-agent-api/pkg/keylock"
	"plc-agent-api/pkg/logger"
	"plc-agent-api/pkg/metrics"
)

var (
	// ErrAlreadyComplete 项目已处于 completed
	ErrAlreadyComplete = errors.New("project already completed")
	// ErrProjectNotFound 项目不存在或已归档
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidStage 文档阶段不合法
	ErrInvalidStage = errors.New("invalid stage")
)

// PrerequisiteMissingError 推进阶段所需的文档不存在
type PrerequisiteMissingError struct {
	Stage   entity.Stage
	DocType entity.DocType
}

func (e *PrerequisiteMissingError) Error() string {
	return fmt.Sprintf("prerequisite missing: %s", e.DocType.Label())
}

// gates 离开某阶段所需的文档类型
var gates = map[entity.Stage]entity.DocType{
	entity.StagePlanning:  entity.DocTypeFDS,
	entity.StageExecution: entity.DocTypePLCCode,
	entity.StageTesting:   entity.DocTypeFAT,
}

// EventPublisher 生命周期事件发布
type EventPublisher interface {
	PublishLifecycleEvent(ctx context.Context, ev *messaging.LifecycleEventMessage) (string, error)
}

// AdvanceResult 推进结果
type AdvanceResult struct {
	Project *entity.Project
	From    entity.Stage
	To      entity.Stage
}

// Controller 项目阶段状态机
// 同一项目的推进与文档记录先经进程内键锁，再在事务内加行锁
type Controller struct {
	tx       repository.Transactor
	projects repository.ProjectRepository
	stages   repository.StageRepository
	docs     repository.DocumentRepository
	events   EventPublisher
	locks    *keylock.Locker
	now      func() time.Time
}

// NewController 创建控制器，events 可为 nil
func NewController(
	tx repository.Transactor,
	projects repository.ProjectRepository,
	stages repository.StageRepository,
	docs repository.DocumentRepository,
	events EventPublisher,
) *Controller {
	return &Controller{
		tx:       tx,
		projects: projects,
		stages:   stages,
		docs:     docs,
		events:   events,
		locks:    keylock.New(),
		now:      time.Now,
	}
}

// InitStages 为新项目创建四条阶段记录
func (c *Controller) InitStages(ctx context.Context, projectID string) ([]*entity.StageRecord, error) {
	records := entity.NewStageRecords(projectID, c.now().UTC())
	if err := c.stages.CreateBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to create stage records: %w", err)
	}
	return records, nil
}

// Advance 检查当前阶段的前置文档后推进到下一阶段
// 失败时不修改任何状态
func (c *Controller) Advance(ctx context.Context, projectID string) (*AdvanceResult, error) {
	unlock := c.locks.Lock(projectID)
	defer unlock()

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)

	var result *AdvanceResult
	err := c.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := c.projects.GetByIDForUpdate(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		if p == nil || p.Archived {
			return ErrProjectNotFound
		}

		from := p.CurrentStage
		to, ok := from.Next()
		if !ok {
			return ErrAlreadyComplete
		}
		if err := c.checkGate(ctx, p.ID, from); err != nil {
			return err
		}

		if err := c.moveStage(ctx, p.ID, from, to); err != nil {
			return err
		}
		if err := c.projects.UpdateStage(ctx, p.ID, to); err != nil {
			return fmt.Errorf("failed to update project stage: %w", err)
		}
		p.CurrentStage = to
		result = &AdvanceResult{Project: p, From: from, To: to}
		return nil
	})
	if err != nil {
		c.recordRejection(ctx, projectID, err)
		return nil, err
	}

	metrics.StageTransitions.WithLabelValues(string(result.From), "advanced").Inc()
	logger.Info(ctx, "project stage advanced", "from", result.From, "to", result.To)
	c.publish(ctx, &messaging.LifecycleEventMessage{
		ProjectID: projectID,
		UserID:    result.Project.OwnerID,
		Event:     messaging.TypeStageAdvanced,
		FromStage: string(result.From),
		ToStage:   string(result.To),
		At:        c.now().UTC(),
	})
	return result, nil
}

func (c *Controller) recordRejection(ctx context.Context, projectID string, err error) {
	var missing *PrerequisiteMissingError
	switch {
	case errors.As(err, &missing):
		metrics.StageTransitions.WithLabelValues(string(missing.Stage), "prerequisite_missing").Inc()
		logger.Info(ctx, "stage advance blocked", "missing", missing.DocType)
	case errors.Is(err, ErrAlreadyComplete):
		metrics.StageTransitions.WithLabelValues(string(entity.StageCompleted), "already_complete").Inc()
	case errors.Is(err, ErrProjectNotFound):
	default:
		logger.Error(ctx, "stage advance failed", err, "project_id", projectID)
	}
}

// checkGate planning 看最新 FDS 是否有内容，其余阶段看是否存在对应文档
func (c *Controller) checkGate(ctx context.Context, projectID string, from entity.Stage) error {
	docType, ok := gates[from]
	if !ok {
		return nil
	}

	if docType == entity.DocTypeFDS {
		latest, err := c.docs.Latest(ctx, projectID, docType)
		if err != nil {
			return fmt.Errorf("failed to load latest %s: %w", docType, err)
		}
		if !latest.HasContent() {
			return &PrerequisiteMissingError{Stage: from, DocType: docType}
		}
		return nil
	}

	n, err := c.docs.CountByType(ctx, projectID, docType)
	if err != nil {
		return fmt.Errorf("failed to count %s: %w", docType, err)
	}
	if n == 0 {
		return &PrerequisiteMissingError{Stage: from, DocType: docType}
	}
	return nil
}

func (c *Controller) moveStage(ctx context.Context, projectID string, from, to entity.Stage) error {
	records, err := c.stages.ListByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load stage records: %w", err)
	}

	var cur, next *entity.StageRecord
	for _, r := range records {
		switch r.Stage {
		case from:
			cur = r
		case to:
			next = r
		}
	}
	if cur == nil || next == nil {
		return fmt.Errorf("stage records incomplete for project %s", projectID)
	}

	now := c.now().UTC()
	cur.Status = entity.StageStatusCompleted
	cur.CompletedAt = &now
	if cur.StartedAt == nil {
		cur.StartedAt = &now
	}
	if err := c.stages.Update(ctx, cur); err != nil {
		return fmt.Errorf("failed to complete stage %s: %w", from, err)
	}

	if to == entity.StageCompleted {
		next.Status = entity.StageStatusCompleted
		next.StartedAt = &now
		next.CompletedAt = &now
	} else {
		next.Status = entity.StageStatusActive
		next.StartedAt = &now
	}
	if err := c.stages.Update(ctx, next); err != nil {
		return fmt.Errorf("failed to activate stage %s: %w", to, err)
	}
	return nil
}

// RecordInput 记录文档的参数
type RecordInput struct {
	ProjectID string
	DocType   entity.DocType
	// Stage 为空时取文档类型对应的阶段
	Stage    entity.Stage
	Title    string
	Content  string
	FilePath string
}

// RecordDocument 以 (类型已有数量 + 1) 为版本追加文档
// FDS 与 IO 列表同时写回项目，供后续生成使用
func (c *Controller) RecordDocument(ctx context.Context, in RecordInput) (*entity.GeneratedDocument, error) {
	stage := in.Stage
	if stage == "" {
		stage = in.DocType.Stage()
	}
	if !stage.Valid() {
		return nil, ErrInvalidStage
	}

	unlock := c.locks.Lock(in.ProjectID)
	defer unlock()

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, in.ProjectID)

	var doc *entity.GeneratedDocument
	var ownerID string
	err := c.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := c.projects.GetByIDForUpdate(ctx, in.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		if p == nil || p.Archived {
			return ErrProjectNotFound
		}
		ownerID = p.OwnerID

		n, err := c.docs.CountByType(ctx, in.ProjectID, in.DocType)
		if err != nil {
			return fmt.Errorf("failed to count documents: %w", err)
		}
		version := int(n) + 1

		title := in.Title
		if title == "" {
			title = fmt.Sprintf("%s v%d", strings.ReplaceAll(string(in.DocType), "_", " "), version)
		}
		doc = &entity.GeneratedDocument{
			ProjectID:   in.ProjectID,
			DocType:     in.DocType,
			Version:     version,
			Stage:       stage,
			Title:       title,
			Content:     in.Content,
			FilePath:    in.FilePath,
			GeneratedAt: c.now().UTC(),
		}
		if err := c.docs.Create(ctx, doc); err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}

		switch in.DocType {
		case entity.DocTypeFDS:
			p.FDSContent = in.Content
		case entity.DocTypeIOList:
			p.IOListContent = in.Content
		default:
			return nil
		}
		if err := c.projects.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to update project content: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DocumentsRecorded.WithLabelValues(string(doc.DocType)).Inc()
	logger.Info(ctx, "document recorded", "doc_type", doc.DocType, "version", doc.Version)
	c.publish(ctx, &messaging.LifecycleEventMessage{
		ProjectID: in.ProjectID,
		UserID:    ownerID,
		Event:     messaging.TypeDocumentRecorded,
		DocType:   string(doc.DocType),
		DocID:     doc.ID,
		Version:   doc.Version,
		At:        doc.GeneratedAt,
	})
	return doc, nil
}

func (c *Controller) publish(ctx context.Context, ev *messaging.LifecycleEventMessage) {
	if c.events == nil {
		return
	}
	if _, err := c.events.PublishLifecycleEvent(ctx, ev); err != nil {
		logger.Warn(ctx, "publish lifecycle event failed", "event", ev.Event, "error", err)
	}
}
