package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"plc-agent-api/internal/application/agent"
	"plc-agent-api/internal/application/quota"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/internal/domain/service"
	"plc-agent-api/pkg/logger"
)

var (
	// ErrDocumentNotFound 文档不存在
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidDocType 不支持的文档类型
	ErrInvalidDocType = errors.New("invalid document type")
	// ErrEmptyContent 上传内容为空
	ErrEmptyContent = errors.New("document content is empty")
)

// Generator 在一次性会话中运行提示词
type Generator interface {
	RunOnce(ctx context.Context, userID string, in agent.SubmitInput) (*agent.SubmitResult, error)
}

// UsageCounter 每日消息计数
type UsageCounter interface {
	Reserve(ctx context.Context, userID string, tier entity.Tier) (*quota.Reservation, error)
}

// DocumentService 项目文档的生成、上传与查询
type DocumentService struct {
	ctrl     *Controller
	projects repository.ProjectRepository
	docs     repository.DocumentRepository
	gen      Generator
	usage    UsageCounter
}

// NewDocumentService 创建文档服务
func NewDocumentService(
	ctrl *Controller,
	projects repository.ProjectRepository,
	docs repository.DocumentRepository,
	gen Generator,
	usage UsageCounter,
) *DocumentService {
	return &DocumentService{ctrl: ctrl, projects: projects, docs: docs, gen: gen, usage: usage}
}

// OwnedProject 读取调用者名下未归档的项目
func OwnedProject(ctx context.Context, projects repository.ProjectRepository, userID, projectID string) (*entity.Project, error) {
	p, err := projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if p == nil || p.Archived || p.OwnerID != userID {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

// GenerateInput 生成文档参数
type GenerateInput struct {
	UserID        string
	Tier          entity.Tier
	ProjectID     string
	DocType       entity.DocType
	Prompt        string
	ModelOverride string
}

// GenerateResult 生成结果
type GenerateResult struct {
	Document   *entity.GeneratedDocument
	Usage      quota.Status
	FilesSaved []string
	Truncated  bool
}

// Generate 根据项目资料生成文档并追加为新版本，计入每日配额
// 生成或保存失败时退回额度
func (s *DocumentService) Generate(ctx context.Context, in GenerateInput) (_ *GenerateResult, err error) {
	if _, ok := entity.ParseDocType(string(in.DocType)); !ok {
		return nil, ErrInvalidDocType
	}
	p, err := OwnedProject(ctx, s.projects, in.UserID, in.ProjectID)
	if err != nil {
		return nil, err
	}
	resv, err := s.usage.Reserve(ctx, in.UserID, in.Tier)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := resv.Release(context.WithoutCancel(ctx)); rerr != nil {
			logger.Warn(ctx, "usage refund failed", "error", rerr)
		}
	}()

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, p.ID)
	ctx = service.WithWorkflow(ctx, service.WorkflowDocument)
	ctx, files := agent.WithFileCollector(ctx)

	res, err := s.gen.RunOnce(ctx, in.UserID, agent.SubmitInput{
		Text:          BuildPrompt(p, in.DocType, in.Prompt),
		Tier:          in.Tier,
		ModelOverride: in.ModelOverride,
	})
	if err != nil {
		return nil, err
	}

	doc, err := s.ctrl.RecordDocument(context.WithoutCancel(ctx), RecordInput{
		ProjectID: p.ID,
		DocType:   in.DocType,
		Content:   res.Text,
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "document generated", "doc_type", in.DocType, "version", doc.Version, "rounds", res.Rounds)

	return &GenerateResult{
		Document:   doc,
		Usage:      resv.Status,
		FilesSaved: files.Files(),
		Truncated:  res.Truncated,
	}, nil
}

// Record 记录调用者提交的原始文档内容
func (s *DocumentService) Record(ctx context.Context, userID string, in RecordInput) (*entity.GeneratedDocument, error) {
	if _, ok := entity.ParseDocType(string(in.DocType)); !ok {
		return nil, ErrInvalidDocType
	}
	if _, err := OwnedProject(ctx, s.projects, userID, in.ProjectID); err != nil {
		return nil, err
	}
	return s.ctrl.RecordDocument(ctx, in)
}

// UploadFDS 以上传的文本作为新版本 FDS
func (s *DocumentService) UploadFDS(ctx context.Context, userID, projectID, filename, content string) (*entity.GeneratedDocument, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	title := "FDS (uploaded)"
	if filename != "" {
		title = "FDS - " + filename
	}
	return s.Record(ctx, userID, RecordInput{
		ProjectID: projectID,
		DocType:   entity.DocTypeFDS,
		Stage:     entity.StagePlanning,
		Title:     title,
		Content:   content,
	})
}

// List 列出项目的全部文档
func (s *DocumentService) List(ctx context.Context, userID, projectID string) ([]*entity.GeneratedDocument, error) {
	if _, err := OwnedProject(ctx, s.projects, userID, projectID); err != nil {
		return nil, err
	}
	docs, err := s.docs.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Get 读取单个文档
func (s *DocumentService) Get(ctx context.Context, userID, projectID, docID string) (*entity.GeneratedDocument, error) {
	if _, err := OwnedProject(ctx, s.projects, userID, projectID); err != nil {
		return nil, err
	}
	doc, err := s.docs.GetByID(ctx, projectID, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}
