package entity

import "time"

// Stage 项目阶段
type Stage string

const (
	StagePlanning  Stage = "planning"
	StageExecution Stage = "execution"
	StageTesting   Stage = "testing"
	StageCompleted Stage = "completed"
)

// StageOrder 固定的阶段顺序
var StageOrder = []Stage{StagePlanning, StageExecution, StageTesting, StageCompleted}

var stageLabels = map[Stage]string{
	StagePlanning:  "Project Planning",
	StageExecution: "Project Execution",
	StageTesting:   "Testing & Validation",
	StageCompleted: "Project Completed",
}

// Label 阶段展示名
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// Index 阶段在顺序中的位置，未知阶段返回 -1
func (s Stage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next 返回下一阶段，completed 或未知阶段返回 false
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i >= len(StageOrder)-1 {
		return "", false
	}
	return StageOrder[i+1], true
}

// Valid 是否为已知阶段
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// StageStatus 阶段记录状态
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
)

// StageRecord 阶段状态记录
type StageRecord struct {
	ID          string      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID   string      `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_stage_project_name,priority:1"`
	Stage       Stage       `json:"stage" gorm:"type:varchar(32);not null;uniqueIndex:idx_stage_project_name,priority:2"`
	Status      StageStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (StageRecord) TableName() string {
	return "project_stages"
}

// NewStageRecords 为新项目生成四条阶段记录，planning 处于 active
func NewStageRecords(projectID string, now time.Time) []*StageRecord {
	records := make([]*StageRecord, 0, len(StageOrder))
	for _, st := range StageOrder {
		rec := &StageRecord{ProjectID: projectID, Stage: st, Status: StageStatusPending}
		if st == StagePlanning {
			started := now
			rec.Status = StageStatusActive
			rec.StartedAt = &started
		}
		records = append(records, rec)
	}
	return records
}
