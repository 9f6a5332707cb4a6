package repository

import (
	"time"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"gorm.io/gorm"
)

// StepInstanceRepository 步骤实例仓储接口
type StepInstanceRepository interface {
	FindByID(id string) (*model.StepInstanceModel, error)
	FindByProcess(processID string) ([]*model.StepInstanceModel, error)
	FindActiveForUser(userID string) ([]*model.StepInstanceModel, error)
	FindOverdue(before time.Time) ([]*model.StepInstanceModel, error)
}

// stepInstanceRepository 步骤实例仓储实现
type stepInstanceRepository struct {
	db *gorm.DB
}

// NewStepInstanceRepository 创建步骤实例仓储
func NewStepInstanceRepository(db *gorm.DB) StepInstanceRepository {
	return &stepInstanceRepository{db: db}
}

// FindByID 根据 ID 查找步骤实例
func (r *stepInstanceRepository) FindByID(id string) (*model.StepInstanceModel, error) {
	var instance model.StepInstanceModel
	if err := r.db.Where("id = ?", id).First(&instance).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

// FindByProcess 查找流程的全部步骤实例
func (r *stepInstanceRepository) FindByProcess(processID string) ([]*model.StepInstanceModel, error) {
	var instances []*model.StepInstanceModel
	err := r.db.Where("process_id = ?", processID).
		Order("step_number ASC, created_at ASC").Find(&instances).Error
	return instances, err
}

// FindActiveForUser 查找用户的待办步骤实例
func (r *stepInstanceRepository) FindActiveForUser(userID string) ([]*model.StepInstanceModel, error) {
	var instances []*model.StepInstanceModel
	err := r.db.Where("assignee_id = ? AND status IN ?", userID,
		[]string{model.StepInstanceStatusPending, model.StepInstanceStatusInProgress}).
		Order("created_at DESC").Find(&instances).Error
	return instances, err
}

// FindOverdue 查找截止时间早于给定时刻且尚未完结的步骤实例
func (r *stepInstanceRepository) FindOverdue(before time.Time) ([]*model.StepInstanceModel, error) {
	var instances []*model.StepInstanceModel
	err := r.db.Where("status IN ? AND deadline IS NOT NULL AND deadline < ?",
		[]string{model.StepInstanceStatusPending, model.StepInstanceStatusInProgress}, before).
		Order("deadline ASC").Find(&instances).Error
	return instances, err
}
