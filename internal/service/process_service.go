package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/auth"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/engine"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/metrics"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/repository"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/utils"
)

// ProcessService 流程服务接口
// 引擎负责状态机语义,服务层补充审计日志、指标和列表查询
type ProcessService interface {
	Initiate(ctx context.Context, req *InitiateProcessRequest) (*engine.Result, error)
	Get(ctx context.Context, id string) (*engine.Result, error)
	List(filter *repository.ProcessFilter) ([]*model.ProcessModel, error)
	ListPendingForUser(userID string) ([]*model.ProcessModel, error)
	Forward(ctx context.Context, id, actorID string, req *ForwardRequest) (*engine.Result, error)
	Complete(ctx context.Context, id, actorID, remarks string) (*engine.Result, error)
	Reject(ctx context.Context, id, actorID, remarks string) (*engine.Result, error)
	Pick(ctx context.Context, id, actorID string) (*engine.Result, error)
	Publish(ctx context.Context, id, actorID string, targets []engine.PublishTarget) (*engine.Result, error)
	SignDocument(ctx context.Context, id, documentID, actorID, remarks string) (*engine.Result, error)
	RejectDocument(ctx context.Context, id, documentID, actorID, reason string) (*engine.Result, error)
	RevokeSign(ctx context.Context, id, documentID, actorID string) (*engine.Result, error)
	RevokeRejection(ctx context.Context, id, documentID, actorID string) (*engine.Result, error)
	UploadDocuments(ctx context.Context, id, actorID string, docs []engine.DocumentInput) (*engine.Result, error)
	UpdateSteps(ctx context.Context, id, actorID string, steps []model.Step) (*engine.Result, error)
	ForwardConnector(ctx context.Context, connectorID, actorID, remarks string) (*engine.Result, error)
	RejectConnector(ctx context.Context, connectorID, actorID string, targetStep int, reason string) (*engine.Result, error)
	SignConnectorDocument(ctx context.Context, connectorID, documentID, actorID string) (*engine.Result, error)
	RejectConnectorDocument(ctx context.Context, connectorID, documentID, actorID, reason string) (*engine.Result, error)
	Documents(processID string) ([]*model.DocumentEntryModel, error)
	Connectors(processID string) ([]*model.ConnectorModel, error)
	History(processID string) ([]*model.StateHistoryModel, error)
	StepInstances(processID string) ([]*model.StepInstanceModel, error)
	Archive(ctx context.Context, id, actorID string) error
}

// InitiateProcessRequest 创建流程请求
// @Description 创建流程实例的请求参数
type InitiateProcessRequest struct {
	Name                  string                  `json:"name" example:"采购审批-2026-001" binding:"required"`
	WorkflowID            string                  `json:"workflow_id" example:"wf-001" binding:"required"`
	DocumentsPath         string                  `json:"documents_path" example:"/cabinets/12/purchase"`
	Remarks               string                  `json:"remarks" example:"季度采购"`
	MaxReceiverStepNumber int                     `json:"max_receiver_step_number" example:"3"`
	IsInterBranch         bool                    `json:"is_inter_branch" example:"false"`
	Documents             []InitiateDocumentInput `json:"documents"`
}

// InitiateDocumentInput 创建流程时附带的文档
type InitiateDocumentInput struct {
	DocumentID string `json:"document_id" example:"doc-001" binding:"required"`
	CabinetNo  int    `json:"cabinet_no" example:"12"`
	WorkName   string `json:"work_name" example:"contract" binding:"required"`
}

// ForwardRequest 推进请求
// @Description 推进流程的请求参数
type ForwardRequest struct {
	TargetStep     int    `json:"target_step" example:"3"` // 跳步目标,0 表示下一步
	CompleteBefore bool   `json:"complete_before" example:"false"`
	Remarks        string `json:"remarks" example:"同意"`
}

// processService 流程服务实现
type processService struct {
	eng         *engine.Engine
	processRepo repository.ProcessRepository
	docRepo     repository.DocumentRepository
	connRepo    repository.ConnectorRepository
	historyRepo repository.StateHistoryRepository
	stepRepo    repository.StepInstanceRepository
	auditSvc    AuditLogService
	relations   auth.RelationStore
}

// NewProcessService 创建流程服务
func NewProcessService(
	eng *engine.Engine,
	processRepo repository.ProcessRepository,
	docRepo repository.DocumentRepository,
	connRepo repository.ConnectorRepository,
	historyRepo repository.StateHistoryRepository,
	stepRepo repository.StepInstanceRepository,
	auditSvc AuditLogService,
	relations auth.RelationStore,
) ProcessService {
	return &processService{
		eng:         eng,
		processRepo: processRepo,
		docRepo:     docRepo,
		connRepo:    connRepo,
		historyRepo: historyRepo,
		stepRepo:    stepRepo,
		auditSvc:    auditSvc,
		relations:   relations,
	}
}

// grantRelation 向 OpenFGA 写入流程级权限关系,失败降级为日志
func (s *processService) grantRelation(ctx context.Context, userID, relation, processID string) {
	if s.relations == nil {
		return
	}
	if err := s.relations.SetRelation(ctx, userID, relation, "process", processID); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"process_id": processID,
			"user_id":    userID,
			"relation":   relation,
		}).Warn("failed to grant process relation")
	}
}

// audit 记录操作审计,失败只影响日志不影响业务结果
func (s *processService) audit(ctx context.Context, actorID, action, resourceID string, details interface{}) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.RecordAction(ctx, actorID, action, "process", resourceID, details)
}

// Initiate 创建流程
func (s *processService) Initiate(ctx context.Context, req *InitiateProcessRequest) (*engine.Result, error) {
	actorID, _ := ctx.Value("user_id").(string)
	if actorID == "" {
		return nil, fmt.Errorf("initiator identity is required")
	}
	docs := make([]engine.DocumentInput, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, engine.DocumentInput{
			DocumentID: d.DocumentID,
			CabinetNo:  d.CabinetNo,
			WorkName:   d.WorkName,
		})
	}
	result, err := s.eng.Initiate(ctx, engine.InitiateInput{
		Name:                  req.Name,
		WorkflowID:            req.WorkflowID,
		DocumentsPath:         req.DocumentsPath,
		Remarks:               req.Remarks,
		InitiatorID:           actorID,
		MaxReceiverStepNumber: req.MaxReceiverStepNumber,
		IsInterBranch:         req.IsInterBranch,
		Documents:             docs,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordProcessCreated()
	s.grantRelation(ctx, actorID, "initiator", result.Process.ID)
	s.audit(ctx, actorID, "initiate", result.Process.ID, req)
	return result, nil
}

// Get 加载流程与派生标志
func (s *processService) Get(ctx context.Context, id string) (*engine.Result, error) {
	return s.eng.Get(ctx, id)
}

// List 按过滤器查询流程
func (s *processService) List(filter *repository.ProcessFilter) ([]*model.ProcessModel, error) {
	if filter != nil && filter.SortBy != "" {
		if err := utils.ValidateSortField(filter.SortBy); err != nil {
			return nil, err
		}
		filter.SortOrder = utils.SanitizeSortOrder(filter.SortOrder)
	}
	return s.processRepo.FindByFilter(filter)
}

// ListPendingForUser 查询用户的待办流程
func (s *processService) ListPendingForUser(userID string) ([]*model.ProcessModel, error) {
	return s.processRepo.FindPendingForUser(userID)
}

// Forward 推进流程
func (s *processService) Forward(ctx context.Context, id, actorID string, req *ForwardRequest) (*engine.Result, error) {
	result, err := s.eng.Forward(ctx, id, actorID, engine.ForwardOptions{
		TargetStep:     req.TargetStep,
		CompleteBefore: req.CompleteBefore,
		Remarks:        req.Remarks,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("forward")
	s.audit(ctx, actorID, "forward", id, req)
	return result, nil
}

// Complete 完成流程
func (s *processService) Complete(ctx context.Context, id, actorID, remarks string) (*engine.Result, error) {
	result, err := s.eng.Complete(ctx, id, actorID, remarks)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("complete")
	s.audit(ctx, actorID, "complete", id, remarks)
	return result, nil
}

// Reject 驳回流程
func (s *processService) Reject(ctx context.Context, id, actorID, remarks string) (*engine.Result, error) {
	result, err := s.eng.Reject(ctx, id, actorID, remarks)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("reject")
	s.audit(ctx, actorID, "reject", id, remarks)
	return result, nil
}

// Pick 独占认领流程
func (s *processService) Pick(ctx context.Context, id, actorID string) (*engine.Result, error) {
	result, err := s.eng.Pick(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("pick")
	s.grantRelation(ctx, actorID, "assignee", id)
	s.audit(ctx, actorID, "pick", id, nil)
	return result, nil
}

// Publish 发布流程到分支机构
func (s *processService) Publish(ctx context.Context, id, actorID string, targets []engine.PublishTarget) (*engine.Result, error) {
	result, err := s.eng.Publish(ctx, id, actorID, targets)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("publish")
	s.audit(ctx, actorID, "publish", id, targets)
	return result, nil
}

// SignDocument 签署文档
func (s *processService) SignDocument(ctx context.Context, id, documentID, actorID, remarks string) (*engine.Result, error) {
	result, err := s.eng.SignDocument(ctx, id, documentID, actorID, remarks)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("sign")
	s.audit(ctx, actorID, "sign_document", id, documentID)
	return result, nil
}

// RejectDocument 驳回文档
func (s *processService) RejectDocument(ctx context.Context, id, documentID, actorID, reason string) (*engine.Result, error) {
	result, err := s.eng.RejectDocument(ctx, id, documentID, actorID, reason)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("reject_document")
	s.audit(ctx, actorID, "reject_document", id, documentID)
	return result, nil
}

// RevokeSign 撤销签署
func (s *processService) RevokeSign(ctx context.Context, id, documentID, actorID string) (*engine.Result, error) {
	result, err := s.eng.RevokeSign(ctx, id, documentID, actorID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "revoke_sign", id, documentID)
	return result, nil
}

// RevokeRejection 撤销驳回
func (s *processService) RevokeRejection(ctx context.Context, id, documentID, actorID string) (*engine.Result, error) {
	result, err := s.eng.RevokeRejection(ctx, id, documentID, actorID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "revoke_rejection", id, documentID)
	return result, nil
}

// UploadDocuments 向流程追加文档
func (s *processService) UploadDocuments(ctx context.Context, id, actorID string, docs []engine.DocumentInput) (*engine.Result, error) {
	result, err := s.eng.UploadDocuments(ctx, id, actorID, docs)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "upload_documents", id, docs)
	return result, nil
}

// UpdateSteps 修改运行中流程的步骤定义
func (s *processService) UpdateSteps(ctx context.Context, id, actorID string, steps []model.Step) (*engine.Result, error) {
	result, err := s.eng.UpdateSteps(ctx, id, actorID, steps)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "update_steps", id, steps)
	return result, nil
}

// ForwardConnector 推进连接器
func (s *processService) ForwardConnector(ctx context.Context, connectorID, actorID, remarks string) (*engine.Result, error) {
	result, err := s.eng.ForwardConnector(ctx, connectorID, actorID, remarks)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("forward_connector")
	s.audit(ctx, actorID, "forward_connector", connectorID, remarks)
	return result, nil
}

// RejectConnector 总部驳回连接器
func (s *processService) RejectConnector(ctx context.Context, connectorID, actorID string, targetStep int, reason string) (*engine.Result, error) {
	result, err := s.eng.RejectConnector(ctx, connectorID, actorID, targetStep, reason)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("reject_connector")
	s.audit(ctx, actorID, "reject_connector", connectorID, reason)
	return result, nil
}

// SignConnectorDocument 签署连接器文档
func (s *processService) SignConnectorDocument(ctx context.Context, connectorID, documentID, actorID string) (*engine.Result, error) {
	result, err := s.eng.SignConnectorDocument(ctx, connectorID, documentID, actorID)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("sign")
	s.audit(ctx, actorID, "sign_connector_document", connectorID, documentID)
	return result, nil
}

// RejectConnectorDocument 驳回连接器文档
func (s *processService) RejectConnectorDocument(ctx context.Context, connectorID, documentID, actorID, reason string) (*engine.Result, error) {
	result, err := s.eng.RejectConnectorDocument(ctx, connectorID, documentID, actorID, reason)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("reject_document")
	s.audit(ctx, actorID, "reject_connector_document", connectorID, documentID)
	return result, nil
}

// Documents 查询流程主干文档台账
func (s *processService) Documents(processID string) ([]*model.DocumentEntryModel, error) {
	return s.docRepo.FindByProcess(processID)
}

// Connectors 查询流程连接器
func (s *processService) Connectors(processID string) ([]*model.ConnectorModel, error) {
	return s.connRepo.FindByProcess(processID)
}

// History 查询指针变更历史
func (s *processService) History(processID string) ([]*model.StateHistoryModel, error) {
	return s.historyRepo.FindByProcessID(processID)
}

// StepInstances 查询流程的步骤实例
func (s *processService) StepInstances(processID string) ([]*model.StepInstanceModel, error) {
	return s.stepRepo.FindByProcess(processID)
}

// Archive 归档已完成流程
func (s *processService) Archive(ctx context.Context, id, actorID string) error {
	if err := s.processRepo.Archive(id); err != nil {
		return err
	}
	s.audit(ctx, actorID, "archive", id, nil)
	return nil
}
