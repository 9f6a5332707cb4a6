package model

import (
	"errors"
	"time"
)

// NotificationKind 通知事实类型
type NotificationKind string

const (
	NotificationQuery                     NotificationKind = "QUERY"
	NotificationQueryResponse             NotificationKind = "QUERY_RESPONSE"
	NotificationQueryDoubt                NotificationKind = "QUERY_DOUBT"
	NotificationQueryDoubtResponse        NotificationKind = "QUERY_DOUBT_RESPONSE"
	NotificationRecirculationRequest      NotificationKind = "RECIRCULATION_REQUEST"
	NotificationRecommendationRequest     NotificationKind = "RECOMMENDATION_REQUEST"
	NotificationRecommendationClarifReq   NotificationKind = "RECOMMENDATION_CLARIFICATION_REQUEST"
	NotificationRecommendationClarifResp  NotificationKind = "RECOMMENDATION_CLARIFICATION_RESPONSE"
	NotificationDocumentApproval          NotificationKind = "DOCUMENT_APPROVAL"
	NotificationDocumentSigned            NotificationKind = "DOCUMENT_SIGNED"
	NotificationDocumentRejected          NotificationKind = "DOCUMENT_REJECTED"
	NotificationProcessForwarded          NotificationKind = "PROCESS_FORWARDED"
	NotificationProcessCompleted          NotificationKind = "PROCESS_COMPLETED"
	NotificationProcessPicked             NotificationKind = "PROCESS_PICKED"
	NotificationProcessOverdue            NotificationKind = "PROCESS_OVERDUE"
)

// 通知状态
const (
	NotificationStatusActive    = "ACTIVE"
	NotificationStatusClaimed   = "CLAIMED" // 同组其他候选人认领后置为 CLAIMED
	NotificationStatusDismissed = "DISMISSED"
)

// NotificationModel 通知事实数据模型
// 引擎在状态转换所在的事务内写入事实,投递由外部通道消费
type NotificationModel struct {
	ID          string           `gorm:"primaryKey;type:varchar(64)"`
	Kind        NotificationKind `gorm:"type:varchar(64);not null;index"`
	RecipientID string           `gorm:"type:varchar(64);not null;index"`
	ProcessID   string           `gorm:"type:varchar(64);index"`
	QueryID     string           `gorm:"type:varchar(64);index"`
	Metadata    Metadata         `gorm:"type:jsonb"`
	Status      string           `gorm:"type:varchar(32);not null;default:'ACTIVE';index"`
	CreatedAt   time.Time        `gorm:"not null;index"`
	UpdatedAt   time.Time        `gorm:"not null"`
}

// TableName 指定表名
func (NotificationModel) TableName() string {
	return "process_notifications"
}

// Validate 验证通知模型
func (nm *NotificationModel) Validate() error {
	if nm.ID == "" {
		return errors.New("notification ID is required")
	}
	if nm.Kind == "" {
		return errors.New("notification kind is required")
	}
	if nm.RecipientID == "" {
		return errors.New("recipient ID is required")
	}
	if nm.Status == "" {
		nm.Status = NotificationStatusActive
	}
	return nil
}
