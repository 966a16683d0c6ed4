// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/lib/pq"
)

// Project PLC 工程项目
type Project struct {
	ID              string `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID         string `json:"owner_id" gorm:"type:uuid;index;not null"`
	Title           string `json:"title" gorm:"type:varchar(255);not null"`
	Description     string `json:"description,omitempty" gorm:"type:text"`
	Platform        string `json:"platform" gorm:"type:varchar(50);not null;default:'siemens'"`
	SoftwareVersion string `json:"software_version,omitempty" gorm:"type:varchar(100)"`
	CurrentStage    Stage  `json:"current_stage" gorm:"type:varchar(32);not null;default:'planning'"`

	// 硬件配置
	CPUModel          string         `json:"cpu_model,omitempty" gorm:"type:varchar(100)"`
	CPUVariant        string         `json:"cpu_variant,omitempty" gorm:"type:varchar(200)"`
	IOModules         pq.StringArray `json:"io_modules,omitempty" gorm:"type:text[]"`
	NetworkType       string         `json:"network_type,omitempty" gorm:"type:varchar(100)"`
	SafetyRequired    bool           `json:"safety_required" gorm:"not null;default:false"`
	ArchitectureNotes string         `json:"architecture_notes,omitempty" gorm:"type:text"`

	// 下游提示词使用的最新 FDS / IO 清单
	FDSContent    string `json:"fds_content,omitempty" gorm:"type:text"`
	IOListContent string `json:"io_list_content,omitempty" gorm:"type:text"`

	Archived  bool      `json:"archived" gorm:"not null;default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// NewProject 创建处于 planning 阶段的项目
func NewProject(ownerID, title, platform string) *Project {
	if platform == "" {
		platform = "siemens"
	}
	now := time.Now()
	return &Project{
		OwnerID:      ownerID,
		Title:        title,
		Platform:     platform,
		CurrentStage: StagePlanning,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsCompleted 项目是否已到终态
func (p *Project) IsCompleted() bool {
	return p.CurrentStage == StageCompleted
}

// Hardware 硬件配置快照
type Hardware struct {
	CPUModel          string   `json:"cpu_model,omitempty"`
	CPUVariant        string   `json:"cpu_variant,omitempty"`
	IOModules         []string `json:"io_modules,omitempty"`
	NetworkType       string   `json:"network_type,omitempty"`
	SafetyRequired    bool     `json:"safety_required"`
	ArchitectureNotes string   `json:"architecture_notes,omitempty"`
}

// ApplyHardware 写入硬件配置
func (p *Project) ApplyHardware(h Hardware) {
	p.CPUModel = h.CPUModel
	p.CPUVariant = h.CPUVariant
	p.IOModules = pq.StringArray(h.IOModules)
	p.NetworkType = h.NetworkType
	p.SafetyRequired = h.SafetyRequired
	p.ArchitectureNotes = h.ArchitectureNotes
	p.UpdatedAt = time.Now()
}
