package repository

import (
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	FindByID(id string) (*model.NotificationModel, error)
	FindActiveForUser(userID string) ([]*model.NotificationModel, error)
	FindByProcess(processID string) ([]*model.NotificationModel, error)
	Claim(id, userID string) error
	Dismiss(id, userID string) error
	DismissAll(userID string) error
	CountActive(userID string) (int64, error)
}

// notificationRepository 通知仓储实现
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// FindByID 根据 ID 查找通知
func (r *notificationRepository) FindByID(id string) (*model.NotificationModel, error) {
	var notification model.NotificationModel
	if err := r.db.Where("id = ?", id).First(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// FindActiveForUser 查找用户的未处理通知
func (r *notificationRepository) FindActiveForUser(userID string) ([]*model.NotificationModel, error) {
	var notifications []*model.NotificationModel
	err := r.db.Where("recipient_id = ? AND status = ?", userID, model.NotificationStatusActive).
		Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}

// FindByProcess 查找流程产生的全部通知
func (r *notificationRepository) FindByProcess(processID string) ([]*model.NotificationModel, error) {
	var notifications []*model.NotificationModel
	err := r.db.Where("process_id = ?", processID).
		Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}

// Claim 用户认领单条通知
// 只有仍处于 ACTIVE 的通知可被认领,已消除或已被认领的不再翻转
func (r *notificationRepository) Claim(id, userID string) error {
	return r.db.Model(&model.NotificationModel{}).
		Where("id = ? AND recipient_id = ? AND status = ?", id, userID, model.NotificationStatusActive).
		Update("status", model.NotificationStatusClaimed).Error
}

// Dismiss 用户消除单条通知
func (r *notificationRepository) Dismiss(id, userID string) error {
	return r.db.Model(&model.NotificationModel{}).
		Where("id = ? AND recipient_id = ?", id, userID).
		Update("status", model.NotificationStatusDismissed).Error
}

// DismissAll 用户消除全部未处理通知
func (r *notificationRepository) DismissAll(userID string) error {
	return r.db.Model(&model.NotificationModel{}).
		Where("recipient_id = ? AND status = ?", userID, model.NotificationStatusActive).
		Update("status", model.NotificationStatusDismissed).Error
}

// CountActive 统计用户的未处理通知数量
func (r *notificationRepository) CountActive(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.NotificationModel{}).
		Where("recipient_id = ? AND status = ?", userID, model.NotificationStatusActive).
		Count(&count).Error
	return count, err
}
