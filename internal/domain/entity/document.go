package entity

import (
	"strings"
	"time"
)

// DocType 生成文档类型
type DocType string

const (
	DocTypeFDS     DocType = "FDS"
	DocTypeIOList  DocType = "IO_LIST"
	DocTypePLCCode DocType = "PLC_CODE"
	DocTypeFAT     DocType = "FAT"
	DocTypeSAT     DocType = "SAT"
)

var docTypeInfo = map[DocType]struct {
	stage Stage
	label string
}{
	DocTypeFDS:     {StagePlanning, "functional design"},
	DocTypeIOList:  {StagePlanning, "IO list"},
	DocTypePLCCode: {StageExecution, "PLC code"},
	DocTypeFAT:     {StageTesting, "factory acceptance test"},
	DocTypeSAT:     {StageTesting, "site acceptance test"},
}

// ParseDocType 解析文档类型（大小写不敏感）
func ParseDocType(s string) (DocType, bool) {
	dt := DocType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := docTypeInfo[dt]
	return dt, ok
}

// Stage 文档所属阶段
func (d DocType) Stage() Stage {
	return docTypeInfo[d].stage
}

// Label 文档类型的可读名称
func (d DocType) Label() string {
	if info, ok := docTypeInfo[d]; ok {
		return info.label
	}
	return string(d)
}

// GeneratedDocument 生成的文档，按 (project, doc_type) 追加版本，不覆盖
type GeneratedDocument struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID   string    `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_doc_project_type_version,priority:1"`
	DocType     DocType   `json:"doc_type" gorm:"type:varchar(32);not null;uniqueIndex:idx_doc_project_type_version,priority:2"`
	Version     int       `json:"version" gorm:"not null;uniqueIndex:idx_doc_project_type_version,priority:3"`
	Stage       Stage     `json:"stage" gorm:"type:varchar(32);not null"`
	Title       string    `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content     string    `json:"content" gorm:"type:text"`
	FilePath    string    `json:"file_path,omitempty" gorm:"type:varchar(512)"`
	GeneratedAt time.Time `json:"generated_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (GeneratedDocument) TableName() string {
	return "generated_documents"
}

// HasContent 内容是否非空
func (d *GeneratedDocument) HasContent() bool {
	return d != nil && strings.TrimSpace(d.Content) != ""
}
