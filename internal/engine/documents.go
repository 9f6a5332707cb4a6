package engine

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// loadDocumentEntry 加载流程主干的单个文档条目
func loadDocumentEntry(tx *gorm.DB, processID, documentID string) (*model.DocumentEntryModel, error) {
	var doc model.DocumentEntryModel
	err := tx.Where("process_id = ? AND connector_id = ? AND document_id = ?", processID, "", documentID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("document %s not found in process %s", documentID, processID)
		}
		return nil, err
	}
	return &doc, nil
}

// saveDocumentEntry 持久化文档条目
func saveDocumentEntry(tx *gorm.DB, doc *model.DocumentEntryModel) error {
	doc.UpdatedAt = time.Now()
	return tx.Model(&model.DocumentEntryModel{}).
		Where("id = ?", doc.ID).
		Select("*").Omit("id", "created_at").
		Updates(doc).Error
}

// documentMutation 文档台账操作的公共骨架
// 授权、加载、应用台账修改、重算回退阻塞标志和派生标志都在同一事务里
func (e *Engine) documentMutation(
	ctx context.Context,
	processID, documentID, actorID string,
	apply func(proc *model.ProcessModel, doc *model.DocumentEntryModel, out *txResult, tx *gorm.DB) error,
) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		proc, err := loadProcess(tx, processID)
		if err != nil {
			return err
		}
		if proc.Completed {
			return failed(ReasonProcessCompleted, "process %s is already completed", proc.ID)
		}
		if err := e.authorizeActor(tx, proc, proc.CurrentStep(), actorID); err != nil {
			return err
		}
		doc, err := loadDocumentEntry(tx, processID, documentID)
		if err != nil {
			return err
		}
		if err := apply(proc, doc, out, tx); err != nil {
			return err
		}
		if err := saveDocumentEntry(tx, doc); err != nil {
			return err
		}
		if err := refreshRevertBlocked(tx, proc); err != nil {
			return err
		}
		if err := saveProcess(tx, proc); err != nil {
			return err
		}
		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}

// SignDocument 当前步骤签署文档
func (e *Engine) SignDocument(ctx context.Context, processID, documentID, actorID, remarks string) (*Result, error) {
	return e.documentMutation(ctx, processID, documentID, actorID,
		func(proc *model.ProcessModel, doc *model.DocumentEntryModel, out *txResult, tx *gorm.DB) error {
			if err := SignEntry(doc, actorID, proc.CurrentStepNumber); err != nil {
				return err
			}
			if proc.InitiatorID != "" && proc.InitiatorID != actorID {
				return emitFact(tx, out, Fact{
					Kind:        model.NotificationDocumentSigned,
					RecipientID: proc.InitiatorID,
					ProcessID:   proc.ID,
					Metadata: model.Metadata{
						"document_id": doc.DocumentID,
						"work_name":   doc.WorkName,
						"signed_by":   actorID,
						"step_number": proc.CurrentStepNumber,
						"remarks":     remarks,
					},
				})
			}
			return nil
		})
}

// RejectDocument 当前步骤驳回文档
func (e *Engine) RejectDocument(ctx context.Context, processID, documentID, actorID, reason string) (*Result, error) {
	return e.documentMutation(ctx, processID, documentID, actorID,
		func(proc *model.ProcessModel, doc *model.DocumentEntryModel, out *txResult, tx *gorm.DB) error {
			actorRole := primaryRoleOf(tx, actorID)
			if err := RejectEntry(doc, actorID, actorRole, proc.CurrentStepNumber, reason); err != nil {
				return err
			}
			if proc.InitiatorID != "" && proc.InitiatorID != actorID {
				return emitFact(tx, out, Fact{
					Kind:        model.NotificationDocumentRejected,
					RecipientID: proc.InitiatorID,
					ProcessID:   proc.ID,
					Metadata: model.Metadata{
						"document_id": doc.DocumentID,
						"work_name":   doc.WorkName,
						"rejected_by": actorID,
						"step_number": proc.CurrentStepNumber,
						"reason":      reason,
					},
				})
			}
			return nil
		})
}

// RevokeSign 撤销本人签名
func (e *Engine) RevokeSign(ctx context.Context, processID, documentID, actorID string) (*Result, error) {
	return e.documentMutation(ctx, processID, documentID, actorID,
		func(proc *model.ProcessModel, doc *model.DocumentEntryModel, out *txResult, tx *gorm.DB) error {
			return RevokeSignEntry(doc, actorID)
		})
}

// RevokeRejection 撤销本人在当前步骤的驳回
func (e *Engine) RevokeRejection(ctx context.Context, processID, documentID, actorID string) (*Result, error) {
	return e.documentMutation(ctx, processID, documentID, actorID,
		func(proc *model.ProcessModel, doc *model.DocumentEntryModel, out *txResult, tx *gorm.DB) error {
			return RevokeRejectEntry(doc, actorID, proc.CurrentStepNumber)
		})
}

// UploadDocuments 向流程追加文档条目
// upload 类步骤的工作内容,追加后当前步骤的法定人数按新文档集重算
func (e *Engine) UploadDocuments(ctx context.Context, processID, actorID string, docs []DocumentInput) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		proc, err := loadProcess(tx, processID)
		if err != nil {
			return err
		}
		if proc.Completed {
			return failed(ReasonProcessCompleted, "process %s is already completed", proc.ID)
		}
		if err := e.authorizeActor(tx, proc, proc.CurrentStep(), actorID); err != nil {
			return err
		}
		now := time.Now()
		for _, d := range docs {
			entry := &model.DocumentEntryModel{
				ID:         newID(),
				ProcessID:  proc.ID,
				DocumentID: d.DocumentID,
				CabinetNo:  d.CabinetNo,
				WorkName:   d.WorkName,
				SignedBy:   model.StringSet{},
				UploadedBy: actorID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := entry.Validate(); err != nil {
				return failed("", "invalid document entry: %v", err)
			}
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		if err := refreshRevertBlocked(tx, proc); err != nil {
			return err
		}
		if err := saveProcess(tx, proc); err != nil {
			return err
		}
		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}

// primaryRoleOf 查询操作人的主角色,用于驳回记录
// 没有归属记录时留空,不阻塞驳回本身
func primaryRoleOf(tx *gorm.DB, userID string) string {
	var roleID string
	tx.Model(&model.UserRoleModel{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Limit(1).
		Pluck("role_id", &roleID)
	return roleID
}
