package repository

import (
	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// AuditLogRepository 审计日志仓储,只追加不更新
type AuditLogRepository interface {
	Save(entry *model.AuditLogModel) error
	FindByUserID(userID string, limit int) ([]*model.AuditLogModel, error)
	FindByResource(resourceType, resourceID string) ([]*model.AuditLogModel, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓储
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Save 追加一条审计记录
func (r *auditLogRepository) Save(entry *model.AuditLogModel) error {
	return r.db.Create(entry).Error
}

// FindByUserID 按操作人倒序查询,limit 非正数时不限制条数
func (r *auditLogRepository) FindByUserID(userID string, limit int) ([]*model.AuditLogModel, error) {
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []*model.AuditLogModel
	err := query.Find(&entries).Error
	return entries, err
}

// FindByResource 查询某个资源的全部操作轨迹,倒序
func (r *auditLogRepository) FindByResource(resourceType, resourceID string) ([]*model.AuditLogModel, error) {
	var entries []*model.AuditLogModel
	err := r.db.
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}
