package engine

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// loadQueryDocument 加载质询文档变更及其所属质询
func loadQueryDocument(tx *gorm.DB, queryDocumentID string) (*model.QueryDocumentModel, *model.QueryModel, error) {
	var qdoc model.QueryDocumentModel
	if err := lockForUpdate(tx).Where("id = ?", queryDocumentID).First(&qdoc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("query document %s not found", queryDocumentID)
		}
		return nil, nil, err
	}
	var query model.QueryModel
	if err := tx.Where("id = ?", qdoc.QueryID).First(&query).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, invariant("query document %s references missing query %s", qdoc.ID, qdoc.QueryID)
		}
		return nil, nil, err
	}
	return &qdoc, &query, nil
}

// ApproveQueryDocument 文档变更审批投票
// 全体同意时在同一事务内执行替换,Executed 条件更新保证替换恰好发生一次
func (e *Engine) ApproveQueryDocument(ctx context.Context, queryDocumentID, approverID string, approved bool) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		qdoc, query, err := loadQueryDocument(tx, queryDocumentID)
		if err != nil {
			return err
		}
		if !qdoc.RequiresApproval {
			return failed(ReasonInvalidQueryState, "document change %s does not require approval", qdoc.ID)
		}
		if qdoc.Executed {
			return failed(ReasonAlreadyResolved, "document change %s has already been executed", qdoc.ID)
		}

		now := time.Now()
		res := tx.Model(&model.QueryDocumentApprovalModel{}).
			Where("query_document_id = ? AND approver_id = ?", qdoc.ID, approverID).
			Updates(map[string]interface{}{
				"approved":    approved,
				"approved_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return failed(ReasonNotApprover, "actor %s is not an approver of document change %s", approverID, qdoc.ID)
		}

		proc, err := loadProcess(tx, query.ProcessID)
		if err != nil {
			return err
		}

		if approved {
			// 仍未执行且不存在未同意票时才标记执行,并发投票只有一个胜出
			res = tx.Exec(`UPDATE query_documents SET executed = ?, updated_at = ?
				WHERE id = ? AND executed = ?
				AND NOT EXISTS (
					SELECT 1 FROM query_document_approvals
					WHERE query_document_id = ? AND approved = ?
				)`,
				true, now, qdoc.ID, false, qdoc.ID, false)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				if err := e.executeDocumentChange(tx, out, proc, qdoc, query); err != nil {
					return err
				}
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

// executeDocumentChange 执行已获批的文档变更
// 原位替换把台账条目重指向新文档并保留签名,普通替换清空签名重新积累法定人数;
// 非替换型变更作为新条目追加进台账
func (e *Engine) executeDocumentChange(tx *gorm.DB, out *txResult, proc *model.ProcessModel, qdoc *model.QueryDocumentModel, query *model.QueryModel) error {
	now := time.Now()
	if qdoc.ReplacesDocumentID != "" {
		doc, err := loadDocumentEntry(tx, proc.ID, qdoc.ReplacesDocumentID)
		if err != nil {
			return err
		}
		ReplaceEntry(doc, qdoc.DocumentID, qdoc.IsReplacement)
		if err := saveDocumentEntry(tx, doc); err != nil {
			return err
		}
	} else {
		entry := &model.DocumentEntryModel{
			ID:         newID(),
			ProcessID:  proc.ID,
			DocumentID: qdoc.DocumentID,
			WorkName:   "query",
			UploadedBy: qdoc.UploadedBy,
			SignedBy:   model.StringSet{},
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := entry.Validate(); err != nil {
			return invariant("document entry for change %s invalid: %v", qdoc.ID, err)
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
	}

	if qdoc.UploadedBy != "" {
		if err := emitFact(tx, out, Fact{
			Kind:        model.NotificationDocumentApproval,
			RecipientID: qdoc.UploadedBy,
			ProcessID:   proc.ID,
			QueryID:     query.ID,
			Metadata: model.Metadata{
				"process_name": proc.Name,
				"document_id":  qdoc.DocumentID,
				"replaces":     qdoc.ReplacesDocumentID,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}
