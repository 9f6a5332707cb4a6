package engine

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// DocumentChange 质询附带的文档变更
type DocumentChange struct {
	DocumentID         string
	RequiresApproval   bool
	IsReplacement      bool
	ReplacesDocumentID string
}

// RaiseQueryInput 质询发起参数
type RaiseQueryInput struct {
	ProcessID           string
	StepInstanceID      string
	ActorID             string
	Text                string
	DocumentChanges     []DocumentChange
	RecirculateFromStep int
}

// RaiseQuery 对流程发起质询
// 携带回转目标步骤时,按该历史步骤的执行人展开审批人集合并全部初始化为未同意,
// 质询进入 RECIRCULATION_PENDING,只有全体同意才能离开该状态
func (e *Engine) RaiseQuery(ctx context.Context, input RaiseQueryInput) (*model.QueryModel, error) {
	var query *model.QueryModel
	_, err := e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		proc, err := loadProcess(tx, input.ProcessID)
		if err != nil {
			return err
		}

		now := time.Now()
		query = &model.QueryModel{
			ID:                    newID(),
			ProcessID:             proc.ID,
			StepInstanceID:        input.StepInstanceID,
			RaisedBy:              input.ActorID,
			Text:                  input.Text,
			Status:                model.QueryStatusOpen,
			RecirculationFromStep: input.RecirculateFromStep,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := query.Validate(); err != nil {
			return failed("", "invalid query: %v", err)
		}
		if err := tx.Create(query).Error; err != nil {
			return err
		}

		for _, change := range input.DocumentChanges {
			qdoc := &model.QueryDocumentModel{
				ID:                 newID(),
				QueryID:            query.ID,
				DocumentID:         change.DocumentID,
				UploadedBy:         input.ActorID,
				RequiresApproval:   change.RequiresApproval,
				IsReplacement:      change.IsReplacement,
				ReplacesDocumentID: change.ReplacesDocumentID,
				Executed:           !change.RequiresApproval,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			if err := qdoc.Validate(); err != nil {
				return failed("", "invalid query document: %v", err)
			}
			if err := tx.Create(qdoc).Error; err != nil {
				return err
			}
			if !change.RequiresApproval {
				// 无需审批的变更在发起事务内立即生效
				if err := e.executeDocumentChange(tx, out, proc, qdoc, query); err != nil {
					return err
				}
				continue
			}
			approvers, err := documentApprovers(tx, proc, change.ReplacesDocumentID, input.ActorID)
			if err != nil {
				return err
			}
			if len(approvers) == 0 {
				return failed(ReasonNotApprover, "no approvers resolvable for document change %s", change.DocumentID)
			}
			for _, approverID := range approvers {
				if err := tx.Create(&model.QueryDocumentApprovalModel{
					ID:              newID(),
					QueryDocumentID: qdoc.ID,
					ApproverID:      approverID,
					Approved:        false,
					CreatedAt:       now,
					UpdatedAt:       now,
				}).Error; err != nil {
					return err
				}
			}
		}

		if input.RecirculateFromStep > 0 {
			if input.RecirculateFromStep > proc.MaxStepNumberReached {
				return failed(ReasonInvalidQueryState, "step %d was never reached by process %s", input.RecirculateFromStep, proc.ID)
			}
			step := proc.StepByNumber(input.RecirculateFromStep)
			if step == nil {
				return notFound("step %d not found in process %s", input.RecirculateFromStep, proc.ID)
			}
			approvers, err := resolveActors(tx, step.Assignees)
			if err != nil {
				return err
			}
			if len(approvers) == 0 {
				return failed(ReasonNotApprover, "no approvers resolvable for recirculation from step %d", input.RecirculateFromStep)
			}
			for _, approverID := range approvers {
				if err := tx.Create(&model.RecirculationApprovalModel{
					ID:         newID(),
					QueryID:    query.ID,
					ApproverID: approverID,
					Approved:   false,
					CreatedAt:  now,
					UpdatedAt:  now,
				}).Error; err != nil {
					return err
				}
				if err := emitFact(tx, out, Fact{
					Kind:        model.NotificationRecirculationRequest,
					RecipientID: approverID,
					ProcessID:   proc.ID,
					QueryID:     query.ID,
					Metadata: model.Metadata{
						"process_name": proc.Name,
						"from_step":    input.RecirculateFromStep,
					},
				}); err != nil {
					return err
				}
			}
			query.Status = model.QueryStatusRecirculationPending
			if err := tx.Model(&model.QueryModel{}).
				Where("id = ?", query.ID).
				Updates(map[string]interface{}{"status": query.Status, "updated_at": now}).Error; err != nil {
				return err
			}
		}

		if proc.InitiatorID != "" && proc.InitiatorID != input.ActorID {
			if err := emitFact(tx, out, Fact{
				Kind:        model.NotificationQuery,
				RecipientID: proc.InitiatorID,
				ProcessID:   proc.ID,
				QueryID:     query.ID,
				Metadata:    model.Metadata{"process_name": proc.Name, "raised_by": input.ActorID},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return query, nil
}

// ApproveRecirculation 回转审批投票
// 最后一张赞成票通过同一写入内的条件更新判定"是否恰好补齐",
// 并发投票只有一个观察到补齐并触发回转,重复触发被状态条件挡住
func (e *Engine) ApproveRecirculation(ctx context.Context, queryID, approverID string, approved bool, comments string) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		var query model.QueryModel
		if err := lockForUpdate(tx).Where("id = ?", queryID).First(&query).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("query %s not found", queryID)
			}
			return err
		}
		switch query.Status {
		case model.QueryStatusRecirculationPending:
			// 可以投票
		case model.QueryStatusResolved:
			return failed(ReasonAlreadyResolved, "query %s recirculation is already resolved", queryID)
		default:
			return failed(ReasonInvalidQueryState, "query %s has no pending recirculation", queryID)
		}

		now := time.Now()
		res := tx.Model(&model.RecirculationApprovalModel{}).
			Where("query_id = ? AND approver_id = ?", queryID, approverID).
			Updates(map[string]interface{}{
				"approved":    approved,
				"comments":    comments,
				"approved_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return failed(ReasonNotApprover, "actor %s is not an approver of query %s", approverID, queryID)
		}

		if approved {
			// 条件更新原子判定"这是最后一张反对票被翻转":
			// 仍处于 RECIRCULATION_PENDING 且不存在未同意票时才置为 RESOLVED
			res = tx.Exec(`UPDATE process_queries SET status = ?, resolved_at = ?, updated_at = ?
				WHERE id = ? AND status = ?
				AND NOT EXISTS (
					SELECT 1 FROM query_recirculation_approvals
					WHERE query_id = ? AND approved = ?
				)`,
				model.QueryStatusResolved, now, now,
				queryID, model.QueryStatusRecirculationPending,
				queryID, false)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				if err := e.initiateRecirculation(tx, out, &query); err != nil {
					return err
				}
			}
		}

		proc, err := loadProcess(tx, query.ProcessID)
		if err != nil {
			return err
		}
		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}

// initiateRecirculation 执行回转
// 为目标步骤重新创建步骤实例,把流程指针移回目标步骤并恢复 IN_PROGRESS,
// 已有文档的签名和驳回原样保留可见
func (e *Engine) initiateRecirculation(tx *gorm.DB, out *txResult, query *model.QueryModel) error {
	proc, err := loadProcess(tx, query.ProcessID)
	if err != nil {
		return err
	}
	target := query.RecirculationFromStep
	step := proc.StepByNumber(target)
	if step == nil {
		return invariant("query %s targets step %d missing from process %s", query.ID, target, proc.ID)
	}

	from := proc.CurrentStepNumber
	if err := supersedePendingInstances(tx, proc.ID, from); err != nil {
		return err
	}

	proc.CurrentStepNumber = target
	if proc.LastStepDone > target-1 {
		proc.LastStepDone = target - 1
	}
	proc.State = model.ProcessStateInProgress
	proc.Completed = false
	proc.CompletedAt = nil
	proc.CurrentActor = ""
	if err := refreshRevertBlocked(tx, proc); err != nil {
		return err
	}
	if err := proc.Validate(); err != nil {
		return invariant("process %s failed pointer bounds after recirculation: %v", proc.ID, err)
	}
	if err := saveProcess(tx, proc); err != nil {
		return err
	}

	assignees, err := e.createStepInstances(tx, proc, step, model.StepInstanceViaRecirculation, query.ID)
	if err != nil {
		return err
	}
	for _, userID := range assignees {
		if err := emitFact(tx, out, Fact{
			Kind:        model.NotificationRecirculationRequest,
			RecipientID: userID,
			ProcessID:   proc.ID,
			QueryID:     query.ID,
			Metadata: model.Metadata{
				"process_name": proc.Name,
				"step_number":  target,
				"restarted":    true,
			},
		}); err != nil {
			return err
		}
	}
	return recordHistory(tx, proc.ID, from, target, model.HistoryActionRecirculate, query.Text, query.RaisedBy)
}

// documentApprovers 文档变更的审批人集合
// 当前步骤展开后的执行人加上被替换文档的既有签署人,上传人本人除外
func documentApprovers(tx *gorm.DB, proc *model.ProcessModel, replacesDocumentID, uploaderID string) ([]string, error) {
	seen := map[string]bool{uploaderID: true}
	var approvers []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			approvers = append(approvers, id)
		}
	}

	if step := proc.CurrentStep(); step != nil {
		resolved, err := resolveActors(tx, step.Assignees)
		if err != nil {
			return nil, err
		}
		for _, id := range resolved {
			add(id)
		}
	}
	if replacesDocumentID != "" {
		doc, err := loadDocumentEntry(tx, proc.ID, replacesDocumentID)
		if err == nil {
			for _, id := range doc.SignedBy {
				add(id)
			}
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return approvers, nil
}
