package model

import (
	"errors"
	"time"
)

// 流程状态
const (
	ProcessStateNotStarted = "NOT_STARTED"
	ProcessStateInProgress = "IN_PROGRESS"
	ProcessStateCompleted  = "COMPLETED"
)

// ProcessModel 流程实例数据模型
// 流程从工作流定义创建快照,只能由推进引擎和回转子协议在事务内修改
type ProcessModel struct {
	ID                   string     `gorm:"primaryKey;type:varchar(64)"`
	Name                 string     `gorm:"type:varchar(128);not null;uniqueIndex"`
	WorkflowID           string     `gorm:"type:varchar(64);not null;index"`
	WorkflowSnapshot     StepList   `gorm:"type:jsonb;not null"` // 创建时的步骤快照
	State                string     `gorm:"type:varchar(32);not null;index"`
	CurrentStepNumber    int        `gorm:"type:int;not null"`
	LastStepDone         int        `gorm:"type:int;not null;default:0"`
	MaxStepNumberReached int        `gorm:"type:int;not null;default:0"`
	MaxReceiverStepNumber int       `gorm:"type:int"` // 跳步转发允许的最大目标步骤
	Completed            bool       `gorm:"not null;default:false;index"`
	CompletedAt          *time.Time `gorm:"index"`
	Archived             bool       `gorm:"not null;default:false;index"`
	IsInterBranch        bool       `gorm:"not null;default:false"`
	IsHead               bool       `gorm:"not null;default:false"` // 是否为总部(汇聚)流程
	DocumentsPath        string     `gorm:"type:varchar(512);not null"`
	Remarks              string     `gorm:"type:text"`
	CurrentActor         string     `gorm:"type:varchar(64)"` // 独占认领人,空表示未认领
	SkippedSteps         IntSet     `gorm:"type:jsonb"`       // 跳步转发时被跳过的步骤号
	RevertBlocked        bool       `gorm:"not null;default:false"` // 回退会破坏后续已签署步骤时置位
	Version              int        `gorm:"type:int;not null;default:1"` // 乐观锁版本号
	InitiatorID          string     `gorm:"type:varchar(64);index"`
	CreatedAt            time.Time  `gorm:"not null;index"`
	UpdatedAt            time.Time  `gorm:"not null;index"`
}

// TableName 指定表名
func (ProcessModel) TableName() string {
	return "processes"
}

// Validate 验证流程模型
// 包含指针边界不变式: 1 <= currentStepNumber <= len(steps)+1 且 lastStepDone <= currentStepNumber
func (pm *ProcessModel) Validate() error {
	if pm.ID == "" {
		return errors.New("process ID is required")
	}
	if pm.Name == "" {
		return errors.New("process name is required")
	}
	if len(pm.WorkflowSnapshot) == 0 {
		return errors.New("workflow snapshot is required")
	}
	if pm.DocumentsPath == "" {
		return errors.New("documents path is required")
	}
	if pm.CurrentStepNumber < 1 || pm.CurrentStepNumber > len(pm.WorkflowSnapshot)+1 {
		return errors.New("current step number out of bounds")
	}
	if pm.LastStepDone > pm.CurrentStepNumber {
		return errors.New("last step done cannot exceed current step number")
	}
	return nil
}

// CurrentStep 返回当前步骤定义,指针越过末步时返回 nil
func (pm *ProcessModel) CurrentStep() *Step {
	return pm.StepByNumber(pm.CurrentStepNumber)
}

// StepByNumber 根据步骤号查找快照中的步骤
func (pm *ProcessModel) StepByNumber(n int) *Step {
	for i := range pm.WorkflowSnapshot {
		if pm.WorkflowSnapshot[i].StepNumber == n {
			return &pm.WorkflowSnapshot[i]
		}
	}
	return nil
}

// LastStep 返回快照的最后一个步骤
func (pm *ProcessModel) LastStep() *Step {
	if len(pm.WorkflowSnapshot) == 0 {
		return nil
	}
	return &pm.WorkflowSnapshot[len(pm.WorkflowSnapshot)-1]
}
