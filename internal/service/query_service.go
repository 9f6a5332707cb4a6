package service

import (
	"context"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/engine"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/metrics"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/repository"
)

// QueryService 质询服务接口
// 覆盖质询、疑问、回流审批、文档变更审批与推荐意见
type QueryService interface {
	Raise(ctx context.Context, req *RaiseQueryRequest) (*model.QueryModel, error)
	Get(id string) (*QueryDetail, error)
	ListByProcess(processID string) ([]*model.QueryModel, error)
	ListPendingApprovals(approverID string) ([]*model.RecirculationApprovalModel, error)
	Resolve(ctx context.Context, queryID, actorID, response string) (*model.QueryModel, error)
	RaiseDoubt(ctx context.Context, queryID, actorID, text string) (*model.DoubtModel, error)
	AnswerDoubt(ctx context.Context, doubtID, actorID, answer string) (*model.DoubtModel, error)
	ApproveRecirculation(ctx context.Context, queryID, approverID string, approved bool, comments string) (*engine.Result, error)
	ApproveDocument(ctx context.Context, queryDocumentID, approverID string, approved bool) (*engine.Result, error)
	RequestRecommendation(ctx context.Context, req *RecommendationRequest) (*model.RecommendationModel, error)
	RespondRecommendation(ctx context.Context, recommendationID, actorID, response string) (*model.RecommendationModel, error)
	RaiseClarification(ctx context.Context, recommendationID, actorID, question string) (*model.ClarificationModel, error)
	AnswerClarification(ctx context.Context, clarificationID, actorID, answer string) (*model.ClarificationModel, error)
}

// RaiseQueryRequest 发起质询请求
// @Description 发起质询的请求参数,可附带文档变更与回流目标
type RaiseQueryRequest struct {
	ProcessID          string                `json:"process_id" example:"proc-001" binding:"required"`
	StepInstanceID     string                `json:"step_instance_id" example:"si-001"`
	Text               string                `json:"text" example:"附件金额与合同不符" binding:"required"`
	RecirculateFromStep int                  `json:"recirculate_from_step" example:"2"`
	DocumentChanges    []DocumentChangeInput `json:"document_changes"`
}

// DocumentChangeInput 质询附带的文档变更
type DocumentChangeInput struct {
	DocumentID         string `json:"document_id" example:"doc-010" binding:"required"`
	RequiresApproval   bool   `json:"requires_approval" example:"true"`
	IsReplacement      bool   `json:"is_replacement" example:"true"`
	ReplacesDocumentID string `json:"replaces_document_id" example:"doc-001"`
}

// RecommendationRequest 征求推荐意见请求
// @Description 向指定用户征求推荐意见的请求参数
type RecommendationRequest struct {
	ProcessID      string `json:"process_id" example:"proc-001" binding:"required"`
	StepInstanceID string `json:"step_instance_id" example:"si-001"`
	RecommenderID  string `json:"recommender_id" example:"user-007" binding:"required"`
	Text           string `json:"text" example:"请评估供应商资质" binding:"required"`
}

// QueryDetail 质询详情,含疑问、回流审批与文档变更
type QueryDetail struct {
	Query           *model.QueryModel                  `json:"query"`
	Doubts          []*model.DoubtModel                `json:"doubts"`
	Recirculations  []*model.RecirculationApprovalModel `json:"recirculation_approvals"`
	Documents       []*QueryDocumentDetail             `json:"documents"`
}

// QueryDocumentDetail 文档变更详情及其审批记录
type QueryDocumentDetail struct {
	Document  *model.QueryDocumentModel           `json:"document"`
	Approvals []*model.QueryDocumentApprovalModel `json:"approvals"`
}

// queryService 质询服务实现
type queryService struct {
	eng       *engine.Engine
	queryRepo repository.QueryRepository
	auditSvc  AuditLogService
}

// NewQueryService 创建质询服务
func NewQueryService(eng *engine.Engine, queryRepo repository.QueryRepository, auditSvc AuditLogService) QueryService {
	return &queryService{
		eng:       eng,
		queryRepo: queryRepo,
		auditSvc:  auditSvc,
	}
}

func (s *queryService) audit(ctx context.Context, actorID, action, resourceID string, details interface{}) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.RecordAction(ctx, actorID, action, "query", resourceID, details)
}

// Raise 发起质询
func (s *queryService) Raise(ctx context.Context, req *RaiseQueryRequest) (*model.QueryModel, error) {
	actorID, _ := ctx.Value("user_id").(string)
	changes := make([]engine.DocumentChange, 0, len(req.DocumentChanges))
	for _, c := range req.DocumentChanges {
		changes = append(changes, engine.DocumentChange{
			DocumentID:         c.DocumentID,
			RequiresApproval:   c.RequiresApproval,
			IsReplacement:      c.IsReplacement,
			ReplacesDocumentID: c.ReplacesDocumentID,
		})
	}
	query, err := s.eng.RaiseQuery(ctx, engine.RaiseQueryInput{
		ProcessID:           req.ProcessID,
		StepInstanceID:      req.StepInstanceID,
		ActorID:             actorID,
		Text:                req.Text,
		DocumentChanges:     changes,
		RecirculateFromStep: req.RecirculateFromStep,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("raise_query")
	s.audit(ctx, actorID, "raise_query", query.ID, req)
	return query, nil
}

// Get 加载质询详情
func (s *queryService) Get(id string) (*QueryDetail, error) {
	query, err := s.queryRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	doubts, err := s.queryRepo.FindDoubts(id)
	if err != nil {
		return nil, err
	}
	docs, err := s.queryRepo.FindDocuments(id)
	if err != nil {
		return nil, err
	}
	recircs, err := s.queryRepo.FindRecirculationApprovals(id)
	if err != nil {
		return nil, err
	}
	detail := &QueryDetail{
		Query:          query,
		Doubts:         doubts,
		Recirculations: recircs,
	}
	for _, doc := range docs {
		approvals, err := s.queryRepo.FindDocumentApprovals(doc.ID)
		if err != nil {
			return nil, err
		}
		detail.Documents = append(detail.Documents, &QueryDocumentDetail{
			Document:  doc,
			Approvals: approvals,
		})
	}
	return detail, nil
}

// ListByProcess 查询流程下的全部质询
func (s *queryService) ListByProcess(processID string) ([]*model.QueryModel, error) {
	return s.queryRepo.FindByProcess(processID)
}

// ListPendingApprovals 查询用户待表决的回流审批
func (s *queryService) ListPendingApprovals(approverID string) ([]*model.RecirculationApprovalModel, error) {
	return s.queryRepo.FindPendingApprovals(approverID)
}

// Resolve 直接答复并关闭质询
func (s *queryService) Resolve(ctx context.Context, queryID, actorID, response string) (*model.QueryModel, error) {
	query, err := s.eng.ResolveQuery(ctx, queryID, actorID, response)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("resolve_query")
	s.audit(ctx, actorID, "resolve_query", queryID, response)
	return query, nil
}

// RaiseDoubt 对质询提出疑问
func (s *queryService) RaiseDoubt(ctx context.Context, queryID, actorID, text string) (*model.DoubtModel, error) {
	doubt, err := s.eng.RaiseDoubt(ctx, queryID, actorID, text)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "raise_doubt", queryID, text)
	return doubt, nil
}

// AnswerDoubt 回答疑问
func (s *queryService) AnswerDoubt(ctx context.Context, doubtID, actorID, answer string) (*model.DoubtModel, error) {
	doubt, err := s.eng.AnswerDoubt(ctx, doubtID, actorID, answer)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "answer_doubt", doubtID, answer)
	return doubt, nil
}

// ApproveRecirculation 对回流请求表决
func (s *queryService) ApproveRecirculation(ctx context.Context, queryID, approverID string, approved bool, comments string) (*engine.Result, error) {
	result, err := s.eng.ApproveRecirculation(ctx, queryID, approverID, approved, comments)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("approve_recirculation")
	s.audit(ctx, approverID, "approve_recirculation", queryID, approved)
	return result, nil
}

// ApproveDocument 对文档变更表决
func (s *queryService) ApproveDocument(ctx context.Context, queryDocumentID, approverID string, approved bool) (*engine.Result, error) {
	result, err := s.eng.ApproveQueryDocument(ctx, queryDocumentID, approverID, approved)
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineAction("approve_query_document")
	s.audit(ctx, approverID, "approve_query_document", queryDocumentID, approved)
	return result, nil
}

// RequestRecommendation 征求推荐意见
func (s *queryService) RequestRecommendation(ctx context.Context, req *RecommendationRequest) (*model.RecommendationModel, error) {
	actorID, _ := ctx.Value("user_id").(string)
	rec, err := s.eng.RequestRecommendation(ctx, req.ProcessID, req.StepInstanceID, actorID, req.RecommenderID, req.Text)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "request_recommendation", rec.ID, req)
	return rec, nil
}

// RespondRecommendation 答复推荐意见
func (s *queryService) RespondRecommendation(ctx context.Context, recommendationID, actorID, response string) (*model.RecommendationModel, error) {
	rec, err := s.eng.RespondRecommendation(ctx, recommendationID, actorID, response)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "respond_recommendation", recommendationID, response)
	return rec, nil
}

// RaiseClarification 对推荐意见提出澄清问题
func (s *queryService) RaiseClarification(ctx context.Context, recommendationID, actorID, question string) (*model.ClarificationModel, error) {
	clar, err := s.eng.RaiseClarification(ctx, recommendationID, actorID, question)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "raise_clarification", recommendationID, question)
	return clar, nil
}

// AnswerClarification 回答澄清问题
func (s *queryService) AnswerClarification(ctx context.Context, clarificationID, actorID, answer string) (*model.ClarificationModel, error) {
	clar, err := s.eng.AnswerClarification(ctx, clarificationID, actorID, answer)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "answer_clarification", clarificationID, answer)
	return clar, nil
}
