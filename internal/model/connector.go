package model

import (
	"errors"
	"time"
)

// ConnectorModel 分支连接器数据模型
// 流程发布到多个机构时,每个 (机构, 角色过滤后的执行人集) 组合对应一条独立的子流程记录
// completed 只能由该分支自身的末步完成置位,只有总部驳回分支操作可以把它翻回 false
type ConnectorModel struct {
	ID                string     `gorm:"primaryKey;type:varchar(64)"`
	ProcessID         string     `gorm:"type:varchar(64);not null;index"`
	DepartmentName    string     `gorm:"type:varchar(128);not null"`
	DepartmentID      string     `gorm:"type:varchar(64);index"` // 执行人过滤: 为空不过滤
	RoleID            string     `gorm:"type:varchar(64);index"` // 执行人过滤: 为空不过滤
	WorkflowID        string     `gorm:"type:varchar(64);not null"`
	Completed         bool       `gorm:"not null;default:false;index"`
	CompletedAt       *time.Time
	LastStepDone      int       `gorm:"type:int;not null;default:0"`
	CurrentStepNumber int       `gorm:"type:int;not null;default:1"`
	CurrentActor      string    `gorm:"type:varchar(64)"`
	Remarks           string    `gorm:"type:text"`
	ToClerk           bool      `gorm:"not null;default:false"` // 分支完成后是否转交文书岗
	CreatedAt         time.Time `gorm:"not null;index"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName 指定表名
func (ConnectorModel) TableName() string {
	return "process_connectors"
}

// Validate 验证连接器模型
func (cm *ConnectorModel) Validate() error {
	if cm.ID == "" {
		return errors.New("connector ID is required")
	}
	if cm.ProcessID == "" {
		return errors.New("process ID is required")
	}
	if cm.DepartmentName == "" {
		return errors.New("department name is required")
	}
	if cm.WorkflowID == "" {
		return errors.New("workflow ID is required")
	}
	return nil
}
