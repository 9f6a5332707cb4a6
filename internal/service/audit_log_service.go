package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/repository"
)

// AuditLogService 审计日志服务
type AuditLogService interface {
	RecordAction(ctx context.Context, userID, action, resourceType, resourceID string, details interface{}) error
	ActionsByResource(resourceType, resourceID string) ([]*model.AuditLogModel, error)
}

type auditLogService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(auditRepo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{auditRepo: auditRepo}
}

// RecordAction 落一条审计记录,请求元数据从 context 提取
func (s *auditLogService) RecordAction(ctx context.Context, userID, action, resourceType, resourceID string, details interface{}) error {
	var payload []byte
	if details != nil {
		encoded, err := json.Marshal(details)
		if err != nil {
			return err
		}
		payload = encoded
	}

	return s.auditRepo.Save(&model.AuditLogModel{
		ID:           uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    ctxString(ctx, "request_id"),
		IP:           ctxString(ctx, "ip"),
		UserAgent:    ctxString(ctx, "user_agent"),
		Details:      payload,
		CreatedAt:    time.Now(),
	})
}

// ActionsByResource 返回某个资源的操作轨迹
func (s *auditLogService) ActionsByResource(resourceType, resourceID string) ([]*model.AuditLogModel, error) {
	return s.auditRepo.FindByResource(resourceType, resourceID)
}

// ctxString 读取 context 中的字符串值,缺失或类型不符返回空串
func ctxString(ctx context.Context, key string) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
