package repository

import (
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"gorm.io/gorm"
)

// ProcessRepository 流程仓储接口
type ProcessRepository interface {
	Save(process *model.ProcessModel) error
	FindByID(id string) (*model.ProcessModel, error)
	FindByFilter(filter *ProcessFilter) ([]*model.ProcessModel, error)
	FindPendingForUser(userID string) ([]*model.ProcessModel, error)
	Archive(id string) error
	CountByState() (map[string]int64, error)
}

// ProcessFilter 流程查询过滤器
type ProcessFilter struct {
	State       *string
	InitiatorID *string
	WorkflowID  *string
	Completed   *bool
	Archived    *bool
	IsHead      *bool
	StartTime   *string
	EndTime     *string
	SortBy      string
	SortOrder   string
}

// processRepository 流程仓储实现
type processRepository struct {
	db *gorm.DB
}

// NewProcessRepository 创建流程仓储
func NewProcessRepository(db *gorm.DB) ProcessRepository {
	return &processRepository{db: db}
}

// Save 保存流程
func (r *processRepository) Save(process *model.ProcessModel) error {
	return r.db.Save(process).Error
}

// FindByID 根据 ID 查找流程
func (r *processRepository) FindByID(id string) (*model.ProcessModel, error) {
	var process model.ProcessModel
	if err := r.db.Where("id = ?", id).First(&process).Error; err != nil {
		return nil, err
	}
	return &process, nil
}

// FindByFilter 根据过滤器查找流程
func (r *processRepository) FindByFilter(filter *ProcessFilter) ([]*model.ProcessModel, error) {
	var processes []*model.ProcessModel
	query := r.db.Model(&model.ProcessModel{})

	if filter != nil {
		if filter.State != nil {
			query = query.Where("state = ?", *filter.State)
		}
		if filter.InitiatorID != nil {
			query = query.Where("initiator_id = ?", *filter.InitiatorID)
		}
		if filter.WorkflowID != nil {
			query = query.Where("workflow_id = ?", *filter.WorkflowID)
		}
		if filter.Completed != nil {
			query = query.Where("completed = ?", *filter.Completed)
		}
		if filter.Archived != nil {
			query = query.Where("archived = ?", *filter.Archived)
		}
		if filter.IsHead != nil {
			query = query.Where("is_head = ?", *filter.IsHead)
		}
		if filter.StartTime != nil {
			query = query.Where("created_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("created_at <= ?", *filter.EndTime)
		}
	}

	order := "created_at DESC"
	if filter != nil && filter.SortBy != "" {
		order = filter.SortBy + " " + filter.SortOrder
	}
	err := query.Order(order).Find(&processes).Error
	return processes, err
}

// FindPendingForUser 查找等待某用户处理的流程
// 以未作废的步骤实例为准,认领后只有认领人能看到
func (r *processRepository) FindPendingForUser(userID string) ([]*model.ProcessModel, error) {
	var processes []*model.ProcessModel
	err := r.db.Model(&model.ProcessModel{}).
		Joins("JOIN process_step_instances ON process_step_instances.process_id = processes.id").
		Where("process_step_instances.assignee_id = ?", userID).
		Where("process_step_instances.status IN ?",
			[]string{model.StepInstanceStatusPending, model.StepInstanceStatusInProgress}).
		Where("processes.completed = ?", false).
		Distinct().
		Order("processes.created_at DESC").
		Find(&processes).Error
	return processes, err
}

// Archive 归档流程,只归档不删除
func (r *processRepository) Archive(id string) error {
	return r.db.Model(&model.ProcessModel{}).
		Where("id = ? AND completed = ?", id, true).
		Update("archived", true).Error
}

// CountByState 按状态统计流程数量
func (r *processRepository) CountByState() (map[string]int64, error) {
	type row struct {
		State string
		Count int64
	}
	var rows []row
	err := r.db.Model(&model.ProcessModel{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, item := range rows {
		counts[item.State] = item.Count
	}
	return counts, nil
}
