package repository

import (
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"gorm.io/gorm"
)

// ConnectorRepository 分支连接器仓储接口
type ConnectorRepository interface {
	FindByID(id string) (*model.ConnectorModel, error)
	FindByProcess(processID string) ([]*model.ConnectorModel, error)
	CountIncomplete(processID string) (int64, error)
}

// connectorRepository 分支连接器仓储实现
type connectorRepository struct {
	db *gorm.DB
}

// NewConnectorRepository 创建分支连接器仓储
func NewConnectorRepository(db *gorm.DB) ConnectorRepository {
	return &connectorRepository{db: db}
}

// FindByID 根据 ID 查找连接器
func (r *connectorRepository) FindByID(id string) (*model.ConnectorModel, error) {
	var connector model.ConnectorModel
	if err := r.db.Where("id = ?", id).First(&connector).Error; err != nil {
		return nil, err
	}
	return &connector, nil
}

// FindByProcess 查找流程的全部连接器
func (r *connectorRepository) FindByProcess(processID string) ([]*model.ConnectorModel, error) {
	var connectors []*model.ConnectorModel
	err := r.db.Where("process_id = ?", processID).
		Order("created_at ASC").Find(&connectors).Error
	return connectors, err
}

// CountIncomplete 统计尚未完成的连接器数量
func (r *connectorRepository) CountIncomplete(processID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.ConnectorModel{}).
		Where("process_id = ? AND completed = ?", processID, false).
		Count(&count).Error
	return count, err
}
