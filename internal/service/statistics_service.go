package service

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetProcessStatisticsByState() ([]*ProcessStatisticsByState, error)
	GetProcessStatisticsByWorkflow() ([]*ProcessStatisticsByWorkflow, error)
	GetProcessStatisticsByTime() ([]*ProcessStatisticsByTime, error)
	GetCompletionStatistics() (*CompletionStatistics, error)
	GetOverdueStatistics() (*OverdueStatistics, error)
}

// ProcessStatisticsByState 按状态统计
type ProcessStatisticsByState struct {
	State string
	Count int64
}

// ProcessStatisticsByWorkflow 按工作流统计
type ProcessStatisticsByWorkflow struct {
	WorkflowID   string
	WorkflowName string
	Count        int64
}

// ProcessStatisticsByTime 按发起日期统计
type ProcessStatisticsByTime struct {
	Date  string
	Count int64
}

// CompletionStatistics 完结统计
type CompletionStatistics struct {
	TotalProcesses        int64
	CompletedCount        int64
	RevertCount           int64 // 历史上发生过的退回次数
	CompletionRate        float64
	AverageCompletionTime float64 // 单位：秒
}

// OverdueStatistics 超时统计
type OverdueStatistics struct {
	OverdueSteps   int64
	NotifiedSteps  int64
	OverdueByActor []*OverdueByActor
}

// OverdueByActor 按处理人统计超时步骤
type OverdueByActor struct {
	ActorID string
	Count   int64
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetProcessStatisticsByState 按状态统计流程
func (s *statisticsService) GetProcessStatisticsByState() ([]*ProcessStatisticsByState, error) {
	var results []struct {
		State string
		Count int64
	}

	err := s.db.Model(&model.ProcessModel{}).
		Select("state, COUNT(*) as count").
		Group("state").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get process statistics by state: %w", err)
	}

	stats := make([]*ProcessStatisticsByState, 0, len(results))
	for _, r := range results {
		stats = append(stats, &ProcessStatisticsByState{
			State: r.State,
			Count: r.Count,
		})
	}

	return stats, nil
}

// GetProcessStatisticsByWorkflow 按工作流统计流程
func (s *statisticsService) GetProcessStatisticsByWorkflow() ([]*ProcessStatisticsByWorkflow, error) {
	var results []struct {
		WorkflowID string
		Count      int64
	}

	err := s.db.Model(&model.ProcessModel{}).
		Select("workflow_id, COUNT(*) as count").
		Group("workflow_id").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get process statistics by workflow: %w", err)
	}

	stats := make([]*ProcessStatisticsByWorkflow, 0, len(results))
	for _, r := range results {
		stat := &ProcessStatisticsByWorkflow{
			WorkflowID: r.WorkflowID,
			Count:      r.Count,
		}
		var workflow model.WorkflowModel
		if err := s.db.Where("id = ?", r.WorkflowID).First(&workflow).Error; err == nil {
			stat.WorkflowName = workflow.Name
		} else {
			stat.WorkflowName = "unknown"
		}
		stats = append(stats, stat)
	}

	return stats, nil
}

// GetProcessStatisticsByTime 最近 30 天按发起日期统计流程
func (s *statisticsService) GetProcessStatisticsByTime() ([]*ProcessStatisticsByTime, error) {
	var results []struct {
		Date  string
		Count int64
	}

	since := time.Now().AddDate(0, 0, -30)
	err := s.db.Model(&model.ProcessModel{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get process statistics by time: %w", err)
	}

	stats := make([]*ProcessStatisticsByTime, 0, len(results))
	for _, r := range results {
		stats = append(stats, &ProcessStatisticsByTime{
			Date:  r.Date,
			Count: r.Count,
		})
	}

	return stats, nil
}

// GetCompletionStatistics 流程完结统计
func (s *statisticsService) GetCompletionStatistics() (*CompletionStatistics, error) {
	stats := &CompletionStatistics{}

	if err := s.db.Model(&model.ProcessModel{}).
		Count(&stats.TotalProcesses).Error; err != nil {
		return nil, fmt.Errorf("failed to count processes: %w", err)
	}

	if err := s.db.Model(&model.ProcessModel{}).
		Where("state = ?", model.ProcessStateCompleted).
		Count(&stats.CompletedCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed processes: %w", err)
	}

	if err := s.db.Model(&model.StateHistoryModel{}).
		Where("action IN ?", []string{model.HistoryActionReject, model.HistoryActionHeadReject}).
		Count(&stats.RevertCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count revert events: %w", err)
	}

	if stats.TotalProcesses > 0 {
		stats.CompletionRate = float64(stats.CompletedCount) / float64(stats.TotalProcesses)
	}

	// 平均完结耗时,只统计已完结流程
	var processes []*model.ProcessModel
	if err := s.db.Where("completed = ? AND completed_at IS NOT NULL", true).
		Find(&processes).Error; err != nil {
		return nil, fmt.Errorf("failed to load completed processes: %w", err)
	}
	if len(processes) > 0 {
		var total float64
		for _, p := range processes {
			total += p.CompletedAt.Sub(p.CreatedAt).Seconds()
		}
		stats.AverageCompletionTime = total / float64(len(processes))
	}

	return stats, nil
}

// GetOverdueStatistics 超时步骤统计
func (s *statisticsService) GetOverdueStatistics() (*OverdueStatistics, error) {
	stats := &OverdueStatistics{}
	now := time.Now()

	pending := []string{model.StepInstanceStatusPending, model.StepInstanceStatusInProgress}

	if err := s.db.Model(&model.StepInstanceModel{}).
		Where("status IN ?", pending).
		Where("deadline IS NOT NULL AND deadline < ?", now).
		Count(&stats.OverdueSteps).Error; err != nil {
		return nil, fmt.Errorf("failed to count overdue steps: %w", err)
	}

	if err := s.db.Model(&model.StepInstanceModel{}).
		Where("status IN ?", pending).
		Where("deadline IS NOT NULL AND deadline < ?", now).
		Where("overdue_notified = ?", true).
		Count(&stats.NotifiedSteps).Error; err != nil {
		return nil, fmt.Errorf("failed to count notified overdue steps: %w", err)
	}

	var results []struct {
		ActorID string
		Count   int64
	}
	if err := s.db.Model(&model.StepInstanceModel{}).
		Select("assignee_id as actor_id, COUNT(*) as count").
		Where("status IN ?", pending).
		Where("deadline IS NOT NULL AND deadline < ?", now).
		Group("assignee_id").
		Order("count DESC").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to group overdue steps by actor: %w", err)
	}
	for _, r := range results {
		stats.OverdueByActor = append(stats.OverdueByActor, &OverdueByActor{
			ActorID: r.ActorID,
			Count:   r.Count,
		})
	}

	return stats, nil
}
