package repository

import (
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"gorm.io/gorm"
)

// QueryRepository 质询仓储接口
type QueryRepository interface {
	FindByID(id string) (*model.QueryModel, error)
	FindByProcess(processID string) ([]*model.QueryModel, error)
	FindPendingApprovals(approverID string) ([]*model.RecirculationApprovalModel, error)
	FindRecirculationApprovals(queryID string) ([]*model.RecirculationApprovalModel, error)
	FindDocuments(queryID string) ([]*model.QueryDocumentModel, error)
	FindDocumentApprovals(queryDocumentID string) ([]*model.QueryDocumentApprovalModel, error)
	FindDoubts(queryID string) ([]*model.DoubtModel, error)
}

// queryRepository 质询仓储实现
type queryRepository struct {
	db *gorm.DB
}

// NewQueryRepository 创建质询仓储
func NewQueryRepository(db *gorm.DB) QueryRepository {
	return &queryRepository{db: db}
}

// FindByID 根据 ID 查找质询
func (r *queryRepository) FindByID(id string) (*model.QueryModel, error) {
	var query model.QueryModel
	if err := r.db.Where("id = ?", id).First(&query).Error; err != nil {
		return nil, err
	}
	return &query, nil
}

// FindByProcess 查找流程的全部质询
func (r *queryRepository) FindByProcess(processID string) ([]*model.QueryModel, error) {
	var queries []*model.QueryModel
	err := r.db.Where("process_id = ?", processID).
		Order("created_at DESC").Find(&queries).Error
	return queries, err
}

// FindPendingApprovals 查找等待某审批人投票的回转审批
func (r *queryRepository) FindPendingApprovals(approverID string) ([]*model.RecirculationApprovalModel, error) {
	var approvals []*model.RecirculationApprovalModel
	err := r.db.Model(&model.RecirculationApprovalModel{}).
		Joins("JOIN process_queries ON process_queries.id = query_recirculation_approvals.query_id").
		Where("query_recirculation_approvals.approver_id = ?", approverID).
		Where("query_recirculation_approvals.approved = ?", false).
		Where("process_queries.status = ?", model.QueryStatusRecirculationPending).
		Order("query_recirculation_approvals.created_at ASC").
		Find(&approvals).Error
	return approvals, err
}

// FindRecirculationApprovals 查找某质询的全部回转审批投票
func (r *queryRepository) FindRecirculationApprovals(queryID string) ([]*model.RecirculationApprovalModel, error) {
	var approvals []*model.RecirculationApprovalModel
	err := r.db.Where("query_id = ?", queryID).
		Order("created_at ASC").Find(&approvals).Error
	return approvals, err
}

// FindDocuments 查找质询附带的文档变更
func (r *queryRepository) FindDocuments(queryID string) ([]*model.QueryDocumentModel, error) {
	var docs []*model.QueryDocumentModel
	err := r.db.Where("query_id = ?", queryID).
		Order("created_at ASC").Find(&docs).Error
	return docs, err
}

// FindDocumentApprovals 查找文档变更的审批投票
func (r *queryRepository) FindDocumentApprovals(queryDocumentID string) ([]*model.QueryDocumentApprovalModel, error) {
	var approvals []*model.QueryDocumentApprovalModel
	err := r.db.Where("query_document_id = ?", queryDocumentID).
		Order("created_at ASC").Find(&approvals).Error
	return approvals, err
}

// FindDoubts 查找质询的追问往来
func (r *queryRepository) FindDoubts(queryID string) ([]*model.DoubtModel, error) {
	var doubts []*model.DoubtModel
	err := r.db.Where("query_id = ?", queryID).
		Order("created_at ASC").Find(&doubts).Error
	return doubts, err
}
