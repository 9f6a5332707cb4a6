package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Rejection 文档被驳回的记录
// 同一步骤上签署与驳回互斥,撤销操作清除后才能转换
type Rejection struct {
	Reason     string `json:"reason"`
	StepNumber int    `json:"step_number"`
	ActorUser  string `json:"actor_user"`
	ActorRole  string `json:"actor_role,omitempty"`
}

// Value 实现 driver.Valuer
func (r *Rejection) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan 实现 sql.Scanner
func (r *Rejection) Scan(src interface{}) error {
	return scanJSON(src, r)
}

// DocumentEntryModel 流程文档条目数据模型
// 创建于上传或替换时,被驳回的条目保留可见,从不删除
type DocumentEntryModel struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)"`
	ProcessID   string     `gorm:"type:varchar(64);not null;index"`
	ConnectorID string     `gorm:"type:varchar(64);index"` // 属于某个分支连接器时设置
	DocumentID  string     `gorm:"type:varchar(64);not null;index"`
	CabinetNo   int        `gorm:"type:int;not null"`
	WorkName    string     `gorm:"type:varchar(128);not null"`
	SignedBy    StringSet  `gorm:"type:jsonb"` // 已签署用户 ID 集合
	Rejection   *Rejection `gorm:"type:jsonb"` // 驳回记录,未驳回为 null
	ReplacedFrom string    `gorm:"type:varchar(64)"` // 替换前的文档 ID,记录替换血缘
	UploadedBy  string     `gorm:"type:varchar(64);index"`
	CreatedAt   time.Time  `gorm:"not null;index"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

// TableName 指定表名
func (DocumentEntryModel) TableName() string {
	return "process_documents"
}

// Validate 验证文档条目模型
func (dm *DocumentEntryModel) Validate() error {
	if dm.ID == "" {
		return errors.New("document entry ID is required")
	}
	if dm.ProcessID == "" {
		return errors.New("process ID is required")
	}
	if dm.DocumentID == "" {
		return errors.New("document ID is required")
	}
	if dm.WorkName == "" {
		return errors.New("work name is required")
	}
	return nil
}

// IsRejected 文档是否处于驳回状态
func (dm *DocumentEntryModel) IsRejected() bool {
	return dm.Rejection != nil
}

// IsRejectedAt 文档是否在给定步骤被驳回
func (dm *DocumentEntryModel) IsRejectedAt(stepNumber int) bool {
	return dm.Rejection != nil && dm.Rejection.StepNumber == stepNumber
}

// IsSignedBy 用户是否已签署该文档
func (dm *DocumentEntryModel) IsSignedBy(userID string) bool {
	return dm.SignedBy.Contains(userID)
}
