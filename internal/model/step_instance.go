package model

import (
	"errors"
	"time"
)

// 步骤实例状态
const (
	StepInstanceStatusPending    = "PENDING"
	StepInstanceStatusInProgress = "IN_PROGRESS"
	StepInstanceStatusCompleted  = "COMPLETED"
	StepInstanceStatusSuperseded = "SUPERSEDED" // 同组其他候选人认领后作废
)

// 步骤实例创建来源
const (
	StepInstanceViaInitiation    = "initiation"
	StepInstanceViaForward       = "forward"
	StepInstanceViaRecirculation = "recirculation"
)

// StepInstanceModel 步骤实例数据模型
// 流程推进到某步骤时,按展开后的执行人每人创建一条,认领后其余同组实例作废
type StepInstanceModel struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)"`
	ProcessID    string     `gorm:"type:varchar(64);not null;index"`
	StepNumber   int        `gorm:"type:int;not null;index"`
	AssigneeID   string     `gorm:"type:varchar(64);not null;index"`
	RoleID       string     `gorm:"type:varchar(64)"`
	DepartmentID string     `gorm:"type:varchar(64)"`
	Status       string     `gorm:"type:varchar(32);not null;index"`
	PickedBy     string     `gorm:"type:varchar(64)"`
	ClaimedAt    *time.Time
	Deadline        *time.Time `gorm:"index"` // SLA 截止时间,超时触发 PROCESS_OVERDUE
	OverdueNotified bool       `gorm:"not null;default:false"` // 超时通知至多发送一次
	CreatedVia   string     `gorm:"type:varchar(32);not null"`
	QueryID      string     `gorm:"type:varchar(64);index"` // 回转创建时关联触发的质询
	CreatedAt    time.Time  `gorm:"not null;index"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

// TableName 指定表名
func (StepInstanceModel) TableName() string {
	return "process_step_instances"
}

// Validate 验证步骤实例模型
func (sim *StepInstanceModel) Validate() error {
	if sim.ID == "" {
		return errors.New("step instance ID is required")
	}
	if sim.ProcessID == "" {
		return errors.New("process ID is required")
	}
	if sim.StepNumber < 1 {
		return errors.New("step number must be positive")
	}
	if sim.AssigneeID == "" {
		return errors.New("assignee ID is required")
	}
	if sim.Status == "" {
		sim.Status = StepInstanceStatusPending
	}
	return nil
}
