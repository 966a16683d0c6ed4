// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"plc-agent-api/internal/application/lifecycle"
	"plc-agent-api/internal/application/project"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/interfaces/http/dto"
	"plc-agent-api/internal/interfaces/http/middleware"
)

// maxUploadBytes 上传 FDS 的大小上限
const maxUploadBytes = 2 << 20

// ProjectHandler 项目与文档处理器
type ProjectHandler struct {
	projects *project.Service
	docs     *lifecycle.DocumentService
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(projects *project.Service, docs *lifecycle.DocumentService) *ProjectHandler {
	return &ProjectHandler{projects: projects, docs: docs}
}

// CreateProject 创建项目
// @Summary 创建项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.CreateProjectRequest true "项目"
// @Success 201 {object} dto.Response[entity.Project]
// @Failure 403 {object} dto.ErrorResponse
// @Router /v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	p, err := h.projects.Create(c.Request.Context(), middleware.UserID(c), middleware.Tier(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, p)
}

// ListProjects 列出项目
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page := dto.BindPage(c)
	res, err := h.projects.List(c.Request.Context(), middleware.UserID(c), page.Pagination())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.SuccessWithPage(c, res.Items, dto.PageMetaFrom(res))
}

// GetProject 获取项目
func (h *ProjectHandler) GetProject(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, p)
}

// UpdateProject 修改项目
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	p, err := h.projects.Update(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, p)
}

// UpdateHardware 修改硬件配置
func (h *ProjectHandler) UpdateHardware(c *gin.Context) {
	var req dto.HardwareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	p, err := h.projects.UpdateHardware(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c), req.ToEntity())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, p)
}

// ArchiveProject 归档项目
func (h *ProjectHandler) ArchiveProject(c *gin.Context) {
	if err := h.projects.Archive(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c)); err != nil {
		respondError(c, err)
		return
	}
	dto.NoContent(c)
}

// Dashboard 项目看板
func (h *ProjectHandler) Dashboard(c *gin.Context) {
	d, err := h.projects.Dashboard(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, d)
}

// AdvanceStage 推进项目阶段
// @Summary 推进阶段
// @Tags Projects
// @Produce json
// @Success 200 {object} dto.Response[dto.AdvanceResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/stage/advance [post]
func (h *ProjectHandler) AdvanceStage(c *gin.Context) {
	res, err := h.projects.Advance(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToAdvanceResponse(res))
}

// RecordDocument 记录原始文档内容
func (h *ProjectHandler) RecordDocument(c *gin.Context) {
	var req dto.RecordDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	docType, ok := entity.ParseDocType(req.DocType)
	if !ok {
		respondError(c, lifecycle.ErrInvalidDocType)
		return
	}
	doc, err := h.docs.Record(c.Request.Context(), middleware.UserID(c), lifecycle.RecordInput{
		ProjectID: dto.BindProjectID(c),
		DocType:   docType,
		Stage:     entity.Stage(req.Stage),
		Title:     req.Title,
		Content:   req.Content,
		FilePath:  req.FilePath,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, doc)
}

// UploadFDS 上传 FDS，支持 multipart 文件或 JSON 文本
func (h *ProjectHandler) UploadFDS(c *gin.Context) {
	filename, content, ok := readFDS(c)
	if !ok {
		return
	}
	doc, err := h.docs.UploadFDS(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c), filename, content)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, doc)
}

func readFDS(c *gin.Context) (filename, content string, ok bool) {
	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > maxUploadBytes {
			dto.BadRequest(c, "file too large")
			return "", "", false
		}
		f, err := fh.Open()
		if err != nil {
			dto.BadRequest(c, "cannot read uploaded file")
			return "", "", false
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if err != nil {
			dto.BadRequest(c, "cannot read uploaded file")
			return "", "", false
		}
		return filepath.Base(fh.Filename), string(data), true
	}

	var req dto.UploadFDSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return "", "", false
	}
	return req.Filename, req.Content, true
}

// GenerateDocument 生成指定类型文档
// @Summary 生成项目文档
// @Tags Projects
// @Accept json
// @Produce json
// @Param doc_type path string true "FDS / IO_LIST / PLC_CODE / FAT / SAT"
// @Success 201 {object} dto.Response[dto.GenerateDocumentResponse]
// @Failure 429 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/generate/{doc_type} [post]
func (h *ProjectHandler) GenerateDocument(c *gin.Context) {
	docType, ok := entity.ParseDocType(c.Param("doc_type"))
	if !ok {
		respondError(c, lifecycle.ErrInvalidDocType)
		return
	}
	var req dto.GenerateDocumentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	res, err := h.docs.Generate(c.Request.Context(), lifecycle.GenerateInput{
		UserID:        middleware.UserID(c),
		Tier:          middleware.Tier(c),
		ProjectID:     dto.BindProjectID(c),
		DocType:       docType,
		Prompt:        req.Prompt,
		ModelOverride: req.Model,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, dto.ToGenerateDocumentResponse(res))
}

// ListDocuments 列出项目文档
func (h *ProjectHandler) ListDocuments(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if docs == nil {
		docs = []*entity.GeneratedDocument{}
	}
	dto.Success(c, docs)
}

// GetDocument 获取单个文档
func (h *ProjectHandler) GetDocument(c *gin.Context) {
	doc, err := h.docs.Get(c.Request.Context(), middleware.UserID(c), dto.BindProjectID(c), dto.BindDocumentID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, doc)
}
