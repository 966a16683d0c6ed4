// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"plc-agent-api/internal/application/lifecycle"
	"plc-agent-api/internal/application/project"
	"plc-agent-api/internal/application/quota"
	"plc-agent-api/internal/domain/entity"
)

// HardwareRequest 硬件配置
type HardwareRequest struct {
	CPUModel          string   `json:"cpu_model" binding:"omitempty,max=100"`
	CPUVariant        string   `json:"cpu_variant" binding:"omitempty,max=200"`
	IOModules         []string `json:"io_modules" binding:"omitempty,max=64,dive,max=200"`
	NetworkType       string   `json:"network_type" binding:"omitempty,max=100"`
	SafetyRequired    bool     `json:"safety_required"`
	ArchitectureNotes string   `json:"architecture_notes" binding:"omitempty,max=10000"`
}

// ToEntity 转换为领域硬件配置
func (r *HardwareRequest) ToEntity() entity.Hardware {
	return entity.Hardware{
		CPUModel:          r.CPUModel,
		CPUVariant:        r.CPUVariant,
		IOModules:         r.IOModules,
		NetworkType:       r.NetworkType,
		SafetyRequired:    r.SafetyRequired,
		ArchitectureNotes: r.ArchitectureNotes,
	}
}

// CreateProjectRequest 创建项目
type CreateProjectRequest struct {
	Title           string           `json:"title" binding:"required,max=255"`
	Description     string           `json:"description" binding:"omitempty,max=10000"`
	Platform        string           `json:"platform" binding:"omitempty,oneof=siemens allen_bradley codesys"`
	SoftwareVersion string           `json:"software_version" binding:"omitempty,max=100"`
	Hardware        *HardwareRequest `json:"hardware"`
}

// ToInput 转换为服务参数
func (r *CreateProjectRequest) ToInput() project.CreateInput {
	in := project.CreateInput{
		Title:           r.Title,
		Description:     r.Description,
		Platform:        r.Platform,
		SoftwareVersion: r.SoftwareVersion,
	}
	if r.Hardware != nil {
		hw := r.Hardware.ToEntity()
		in.Hardware = &hw
	}
	return in
}

// UpdateProjectRequest 修改项目
type UpdateProjectRequest struct {
	Title           *string `json:"title" binding:"omitempty,max=255"`
	Description     *string `json:"description" binding:"omitempty,max=10000"`
	SoftwareVersion *string `json:"software_version" binding:"omitempty,max=100"`
}

// ToInput 转换为服务参数
func (r *UpdateProjectRequest) ToInput() project.UpdateInput {
	return project.UpdateInput{
		Title:           r.Title,
		Description:     r.Description,
		SoftwareVersion: r.SoftwareVersion,
	}
}

// AdvanceResponse 阶段推进结果
type AdvanceResponse struct {
	ProjectID    string       `json:"project_id"`
	From         entity.Stage `json:"from"`
	To           entity.Stage `json:"to"`
	CurrentStage entity.Stage `json:"current_stage"`
	Label        string       `json:"label"`
}

// ToAdvanceResponse 转换推进结果
func ToAdvanceResponse(r *lifecycle.AdvanceResult) *AdvanceResponse {
	return &AdvanceResponse{
		ProjectID:    r.Project.ID,
		From:         r.From,
		To:           r.To,
		CurrentStage: r.Project.CurrentStage,
		Label:        r.To.Label(),
	}
}

// RecordDocumentRequest 记录原始文档
type RecordDocumentRequest struct {
	DocType  string `json:"doc_type" binding:"required"`
	Stage    string `json:"stage" binding:"omitempty,oneof=planning execution testing completed"`
	Title    string `json:"title" binding:"omitempty,max=255"`
	Content  string `json:"content" binding:"required"`
	FilePath string `json:"file_path" binding:"omitempty,max=512"`
}

// UploadFDSRequest 上传 FDS 文本
type UploadFDSRequest struct {
	Filename string `json:"filename" binding:"omitempty,max=255"`
	Content  string `json:"content" binding:"required"`
}

// GenerateDocumentRequest 生成文档，可附加说明
type GenerateDocumentRequest struct {
	Prompt string `json:"prompt" binding:"omitempty,max=8000"`
	Model  string `json:"model" binding:"omitempty,max=128"`
}

// GenerateDocumentResponse 生成结果
type GenerateDocumentResponse struct {
	Document   *entity.GeneratedDocument `json:"document"`
	Usage      quota.Status              `json:"usage"`
	FilesSaved []string                  `json:"files_saved"`
	Truncated  bool                      `json:"truncated,omitempty"`
}

// ToGenerateDocumentResponse 转换生成结果
func ToGenerateDocumentResponse(r *lifecycle.GenerateResult) *GenerateDocumentResponse {
	files := r.FilesSaved
	if files == nil {
		files = []string{}
	}
	return &GenerateDocumentResponse{
		Document:   r.Document,
		Usage:      r.Usage,
		FilesSaved: files,
		Truncated:  r.Truncated,
	}
}
