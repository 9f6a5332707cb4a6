package model

import (
	"errors"
	"time"
)

// AuditLogModel 操作审计记录,每条对应一次成功的业务操作
type AuditLogModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	UserID       string    `gorm:"type:varchar(64);not null;index"`
	Action       string    `gorm:"type:varchar(64);not null;index"` // initiate/forward/reject/sign/pick/publish 等
	ResourceType string    `gorm:"type:varchar(32);not null"`       // process/workflow/query/document
	ResourceID   string    `gorm:"type:varchar(64);not null;index"`
	RequestID    string    `gorm:"type:varchar(64);index"`
	IP           string    `gorm:"type:varchar(45)"` // 兼容 IPv6 文本形式
	UserAgent    string    `gorm:"type:text"`
	Details      []byte    `gorm:"type:jsonb"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// Validate 校验必填字段
func (alm *AuditLogModel) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"audit log ID", alm.ID},
		{"user ID", alm.UserID},
		{"action", alm.Action},
		{"resource type", alm.ResourceType},
		{"resource ID", alm.ResourceID},
	}
	for _, field := range required {
		if field.value == "" {
			return errors.New(field.name + " is required")
		}
	}
	return nil
}
