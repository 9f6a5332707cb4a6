package service

import (
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/repository"
)

// NotificationService 通知事实服务接口
type NotificationService interface {
	Get(id string) (*model.NotificationModel, error)
	ListActive(userID string) ([]*model.NotificationModel, error)
	ListByProcess(processID string) ([]*model.NotificationModel, error)
	CountActive(userID string) (int64, error)
	Claim(id, userID string) error
	Dismiss(id, userID string) error
	DismissAll(userID string) error
}

// notificationService 通知事实服务实现
type notificationService struct {
	notificationRepo repository.NotificationRepository
}

// NewNotificationService 创建通知服务
func NewNotificationService(notificationRepo repository.NotificationRepository) NotificationService {
	return &notificationService{notificationRepo: notificationRepo}
}

// Get 根据 ID 查询通知
func (s *notificationService) Get(id string) (*model.NotificationModel, error) {
	return s.notificationRepo.FindByID(id)
}

// ListActive 查询用户的未处理通知
func (s *notificationService) ListActive(userID string) ([]*model.NotificationModel, error) {
	return s.notificationRepo.FindActiveForUser(userID)
}

// ListByProcess 查询流程产生的全部通知
func (s *notificationService) ListByProcess(processID string) ([]*model.NotificationModel, error) {
	return s.notificationRepo.FindByProcess(processID)
}

// CountActive 统计用户未处理通知数
func (s *notificationService) CountActive(userID string) (int64, error) {
	return s.notificationRepo.CountActive(userID)
}

// Claim 认领单条通知
func (s *notificationService) Claim(id, userID string) error {
	return s.notificationRepo.Claim(id, userID)
}

// Dismiss 关闭单条通知
func (s *notificationService) Dismiss(id, userID string) error {
	return s.notificationRepo.Dismiss(id, userID)
}

// DismissAll 关闭用户的全部通知
func (s *notificationService) DismissAll(userID string) error {
	return s.notificationRepo.DismissAll(userID)
}
