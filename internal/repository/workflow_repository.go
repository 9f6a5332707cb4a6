package repository

import (
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"gorm.io/gorm"
)

// WorkflowRepository 工作流定义仓储接口
type WorkflowRepository interface {
	Save(workflow *model.WorkflowModel) error
	FindByID(id string) (*model.WorkflowModel, error)
	FindByName(name string) (*model.WorkflowModel, error)
	FindAll() ([]*model.WorkflowModel, error)
	Delete(id string) error
}

// workflowRepository 工作流定义仓储实现
type workflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository 创建工作流定义仓储
func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

// Save 保存工作流定义
func (r *workflowRepository) Save(workflow *model.WorkflowModel) error {
	return r.db.Save(workflow).Error
}

// FindByID 根据 ID 查找工作流定义
func (r *workflowRepository) FindByID(id string) (*model.WorkflowModel, error) {
	var workflow model.WorkflowModel
	if err := r.db.Where("id = ?", id).First(&workflow).Error; err != nil {
		return nil, err
	}
	return &workflow, nil
}

// FindByName 根据名称查找最新版本的工作流定义
func (r *workflowRepository) FindByName(name string) (*model.WorkflowModel, error) {
	var workflow model.WorkflowModel
	if err := r.db.Where("name = ?", name).
		Order("version DESC").First(&workflow).Error; err != nil {
		return nil, err
	}
	return &workflow, nil
}

// FindAll 查找所有工作流定义
func (r *workflowRepository) FindAll() ([]*model.WorkflowModel, error) {
	var workflows []*model.WorkflowModel
	err := r.db.Order("created_at DESC").Find(&workflows).Error
	return workflows, err
}

// Delete 删除工作流定义
// 已有流程引用的定义通过快照继续生效,删除只影响新流程的创建
func (r *workflowRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.WorkflowModel{}).Error
}
