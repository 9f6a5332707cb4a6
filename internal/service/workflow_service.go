package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/repository"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/utils"
)

// WorkflowService 工作流定义服务接口
type WorkflowService interface {
	Create(ctx context.Context, req *CreateWorkflowRequest) (*model.WorkflowModel, error)
	Get(id string) (*model.WorkflowModel, error)
	GetLatestByName(name string) (*model.WorkflowModel, error)
	List() ([]*model.WorkflowModel, error)
	NewVersion(ctx context.Context, req *CreateWorkflowRequest) (*model.WorkflowModel, error)
	Delete(ctx context.Context, id, actorID string) error
}

// CreateWorkflowRequest 创建工作流请求
// @Description 创建工作流定义的请求参数
type CreateWorkflowRequest struct {
	Name  string       `json:"name" example:"采购审批" binding:"required"`
	Steps []model.Step `json:"steps" binding:"required"`
}

// workflowService 工作流定义服务实现
type workflowService struct {
	workflowRepo repository.WorkflowRepository
	auditSvc     AuditLogService
}

// NewWorkflowService 创建工作流服务
func NewWorkflowService(workflowRepo repository.WorkflowRepository, auditSvc AuditLogService) WorkflowService {
	return &workflowService{
		workflowRepo: workflowRepo,
		auditSvc:     auditSvc,
	}
}

// buildWorkflow 组装并校验工作流模型
func (s *workflowService) buildWorkflow(ctx context.Context, req *CreateWorkflowRequest, version int) (*model.WorkflowModel, error) {
	if err := utils.ValidateWorkflowName(req.Name); err != nil {
		return nil, err
	}
	actorID, _ := ctx.Value("user_id").(string)
	now := time.Now()
	workflow := &model.WorkflowModel{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Version:   version,
		Steps:     model.StepList(req.Steps),
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := workflow.Validate(); err != nil {
		return nil, err
	}
	return workflow, nil
}

// Create 创建工作流定义,版本号从 1 开始
func (s *workflowService) Create(ctx context.Context, req *CreateWorkflowRequest) (*model.WorkflowModel, error) {
	if existing, err := s.workflowRepo.FindByName(req.Name); err == nil && existing != nil {
		return nil, fmt.Errorf("workflow %q already exists, use a new version instead", req.Name)
	}
	workflow, err := s.buildWorkflow(ctx, req, 1)
	if err != nil {
		return nil, err
	}
	if err := s.workflowRepo.Save(workflow); err != nil {
		return nil, err
	}
	if s.auditSvc != nil {
		_ = s.auditSvc.RecordAction(ctx, workflow.CreatedBy, "create", "workflow", workflow.ID, req)
	}
	return workflow, nil
}

// NewVersion 基于最新版本创建新版工作流,旧版本保持不变供运行中流程使用
func (s *workflowService) NewVersion(ctx context.Context, req *CreateWorkflowRequest) (*model.WorkflowModel, error) {
	latest, err := s.workflowRepo.FindByName(req.Name)
	if err != nil {
		return nil, err
	}
	workflow, err := s.buildWorkflow(ctx, req, latest.Version+1)
	if err != nil {
		return nil, err
	}
	if err := s.workflowRepo.Save(workflow); err != nil {
		return nil, err
	}
	if s.auditSvc != nil {
		_ = s.auditSvc.RecordAction(ctx, workflow.CreatedBy, "new_version", "workflow", workflow.ID, req)
	}
	return workflow, nil
}

// Get 按 ID 查询工作流
func (s *workflowService) Get(id string) (*model.WorkflowModel, error) {
	return s.workflowRepo.FindByID(id)
}

// GetLatestByName 按名称查询最新版本
func (s *workflowService) GetLatestByName(name string) (*model.WorkflowModel, error) {
	return s.workflowRepo.FindByName(name)
}

// List 查询全部工作流
func (s *workflowService) List() ([]*model.WorkflowModel, error) {
	return s.workflowRepo.FindAll()
}

// Delete 删除工作流定义
func (s *workflowService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.workflowRepo.Delete(id); err != nil {
		return err
	}
	if s.auditSvc != nil {
		_ = s.auditSvc.RecordAction(ctx, actorID, "delete", "workflow", id, nil)
	}
	return nil
}
