package model

import (
	"errors"
	"time"
)

// 指针变更动作
const (
	HistoryActionForward     = "forward"
	HistoryActionReject      = "reject"
	HistoryActionComplete    = "complete"
	HistoryActionRecirculate = "recirculate"
	HistoryActionPublish     = "publish"
	HistoryActionHeadReject  = "head_reject"
)

// StateHistoryModel 流程指针变更历史数据模型
// 记录每次推进、回退、完成和回转的前后步骤号,历史从不删除
type StateHistoryModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	ProcessID string    `gorm:"type:varchar(64);not null;index"`
	FromStep  int       `gorm:"type:int"`
	ToStep    int       `gorm:"type:int;not null"`
	Action    string    `gorm:"type:varchar(32);not null"`
	Reason    string    `gorm:"type:text"`
	Operator  string    `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (StateHistoryModel) TableName() string {
	return "process_state_history"
}

// Validate 验证状态历史模型
func (shm *StateHistoryModel) Validate() error {
	if shm.ID == "" {
		return errors.New("history ID is required")
	}
	if shm.ProcessID == "" {
		return errors.New("process ID is required")
	}
	if shm.Action == "" {
		return errors.New("action is required")
	}
	if shm.Operator == "" {
		return errors.New("operator is required")
	}
	return nil
}
