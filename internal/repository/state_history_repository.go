package repository

import (
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"gorm.io/gorm"
)

// StateHistoryRepository 指针变更历史仓储接口
type StateHistoryRepository interface {
	Save(history *model.StateHistoryModel) error
	FindByProcessID(processID string) ([]*model.StateHistoryModel, error)
}

// stateHistoryRepository 指针变更历史仓储实现
type stateHistoryRepository struct {
	db *gorm.DB
}

// NewStateHistoryRepository 创建指针变更历史仓储
func NewStateHistoryRepository(db *gorm.DB) StateHistoryRepository {
	return &stateHistoryRepository{db: db}
}

// Save 保存历史记录
func (r *stateHistoryRepository) Save(history *model.StateHistoryModel) error {
	return r.db.Save(history).Error
}

// FindByProcessID 根据流程 ID 查找指针变更历史
func (r *stateHistoryRepository) FindByProcessID(processID string) ([]*model.StateHistoryModel, error) {
	var histories []*model.StateHistoryModel
	err := r.db.Where("process_id = ?", processID).Order("created_at ASC").Find(&histories).Error
	return histories, err
}
