package entity

import "time"

// UsageRecord 用户每日消息计数
type UsageRecord struct {
	UserID    string    `json:"user_id" gorm:"type:uuid;primaryKey"`
	Day       time.Time `json:"day" gorm:"type:date;primaryKey"`
	Count     int       `json:"count" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UsageRecord) TableName() string {
	return "usage_records"
}
