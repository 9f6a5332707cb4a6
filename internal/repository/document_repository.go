package repository

import (
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"gorm.io/gorm"
)

// DocumentRepository 文档台账仓储接口
type DocumentRepository interface {
	FindByID(id string) (*model.DocumentEntryModel, error)
	FindByProcess(processID string) ([]*model.DocumentEntryModel, error)
	FindByConnector(processID, connectorID string) ([]*model.DocumentEntryModel, error)
	FindRejected(processID string) ([]*model.DocumentEntryModel, error)
}

// documentRepository 文档台账仓储实现
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建文档台账仓储
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// FindByID 根据 ID 查找文档条目
func (r *documentRepository) FindByID(id string) (*model.DocumentEntryModel, error) {
	var doc model.DocumentEntryModel
	if err := r.db.Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByProcess 查找流程主干的文档条目
func (r *documentRepository) FindByProcess(processID string) ([]*model.DocumentEntryModel, error) {
	var docs []*model.DocumentEntryModel
	err := r.db.Where("process_id = ? AND connector_id = ?", processID, "").
		Order("created_at ASC").Find(&docs).Error
	return docs, err
}

// FindByConnector 查找连接器范围的文档副本
func (r *documentRepository) FindByConnector(processID, connectorID string) ([]*model.DocumentEntryModel, error) {
	var docs []*model.DocumentEntryModel
	err := r.db.Where("process_id = ? AND connector_id = ?", processID, connectorID).
		Order("created_at ASC").Find(&docs).Error
	return docs, err
}

// FindRejected 查找流程中处于驳回状态的文档条目
// 驳回条目从不删除,按驳回状态过滤展示
func (r *documentRepository) FindRejected(processID string) ([]*model.DocumentEntryModel, error) {
	var docs []*model.DocumentEntryModel
	err := r.db.Where("process_id = ? AND rejection IS NOT NULL", processID).
		Order("created_at ASC").Find(&docs).Error
	return docs, err
}
