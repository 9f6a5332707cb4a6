package model

import (
	"errors"
	"time"
)

// 建议征询状态
const (
	RecommendationStatusPending   = "PENDING"
	RecommendationStatusResponded = "RESPONDED"
)

// RecommendationModel 建议征询数据模型
// 流程执行人向指定用户征询意见,不影响步骤推进
type RecommendationModel struct {
	ID             string     `gorm:"primaryKey;type:varchar(64)"`
	ProcessID      string     `gorm:"type:varchar(64);not null;index"`
	StepInstanceID string     `gorm:"type:varchar(64);index"`
	RequestedBy    string     `gorm:"type:varchar(64);not null;index"`
	RecommenderID  string     `gorm:"type:varchar(64);not null;index"`
	Text           string     `gorm:"type:text;not null"`
	Response       string     `gorm:"type:text"`
	Status         string     `gorm:"type:varchar(32);not null;index"`
	RespondedAt    *time.Time
	CreatedAt      time.Time `gorm:"not null;index"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName 指定表名
func (RecommendationModel) TableName() string {
	return "process_recommendations"
}

// Validate 验证建议征询模型
func (rm *RecommendationModel) Validate() error {
	if rm.ID == "" {
		return errors.New("recommendation ID is required")
	}
	if rm.ProcessID == "" {
		return errors.New("process ID is required")
	}
	if rm.RequestedBy == "" {
		return errors.New("requester ID is required")
	}
	if rm.RecommenderID == "" {
		return errors.New("recommender ID is required")
	}
	if rm.Status == "" {
		rm.Status = RecommendationStatusPending
	}
	return nil
}

// ClarificationModel 建议澄清往来数据模型
type ClarificationModel struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)"`
	RecommendationID string    `gorm:"type:varchar(64);not null;index"`
	RaisedBy         string    `gorm:"type:varchar(64);not null"`
	Question         string    `gorm:"type:text;not null"`
	Answer           string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName 指定表名
func (ClarificationModel) TableName() string {
	return "recommendation_clarifications"
}
