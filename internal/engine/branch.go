package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// PublishTarget 发布目标机构
type PublishTarget struct {
	DepartmentName string
	DepartmentID   string
	WorkflowID     string
	RoleIDs        []string
	ToClerk        bool
}

// Publish 把流程发布到多个机构
// 每个 (机构, 角色过滤后执行人集) 组合创建一条连接器,共享同一份文档包;
// 发布要求当前步骤是 publish 类型且操作人是该步骤的执行人
func (e *Engine) Publish(ctx context.Context, processID, actorID string, targets []PublishTarget) (*Result, error) {
	if len(targets) == 0 {
		return nil, failed("", "publish requires at least one target unit")
	}
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		proc, err := loadProcess(tx, processID)
		if err != nil {
			return err
		}
		if proc.Completed {
			return failed(ReasonProcessCompleted, "process %s is already completed", proc.ID)
		}
		step := proc.CurrentStep()
		if step == nil || step.WorkKind != model.WorkKindPublish {
			return failed("", "current step of process %s is not a publish step", proc.ID)
		}
		if err := e.authorizeActor(tx, proc, step, actorID); err != nil {
			return err
		}

		docs, err := loadProcessDocuments(tx, proc.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, target := range targets {
			workflowID := target.WorkflowID
			if workflowID == "" {
				workflowID = proc.WorkflowID
			}
			roleIDs := target.RoleIDs
			if len(roleIDs) == 0 {
				roleIDs = []string{""}
			}
			for _, roleID := range roleIDs {
				conn := &model.ConnectorModel{
					ID:                newID(),
					ProcessID:         proc.ID,
					DepartmentName:    target.DepartmentName,
					DepartmentID:      target.DepartmentID,
					RoleID:            roleID,
					WorkflowID:        workflowID,
					CurrentStepNumber: 1,
					ToClerk:           target.ToClerk,
					CreatedAt:         now,
					UpdatedAt:         now,
				}
				if err := conn.Validate(); err != nil {
					return failed("", "invalid connector: %v", err)
				}
				if err := tx.Create(conn).Error; err != nil {
					return err
				}
				// 共享文档包: 每条连接器得到主干条目的独立副本,签名从零积累
				for i := range docs {
					copyEntry := &model.DocumentEntryModel{
						ID:          newID(),
						ProcessID:   proc.ID,
						ConnectorID: conn.ID,
						DocumentID:  docs[i].DocumentID,
						CabinetNo:   docs[i].CabinetNo,
						WorkName:    docs[i].WorkName,
						SignedBy:    model.StringSet{},
						UploadedBy:  docs[i].UploadedBy,
						CreatedAt:   now,
						UpdatedAt:   now,
					}
					if err := tx.Create(copyEntry).Error; err != nil {
						return err
					}
				}
			}
		}

		proc.IsInterBranch = true
		proc.IsHead = true
		if err := refreshRevertBlocked(tx, proc); err != nil {
			return err
		}
		if err := saveProcess(tx, proc); err != nil {
			return err
		}
		if err := recordHistory(tx, proc.ID, proc.CurrentStepNumber, proc.CurrentStepNumber,
			model.HistoryActionPublish, fmt.Sprintf("published to %d units", len(targets)), actorID); err != nil {
			return err
		}

		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}

// resolveConnectorActors 连接器范围内解析步骤执行人
// 连接器携带角色/部门过滤时,步骤展开出的执行人还要持有该角色才算数,
// 否则同一机构的各角色连接器会解析出完全相同的人
func resolveConnectorActors(tx *gorm.DB, conn *model.ConnectorModel, step *model.Step) ([]string, error) {
	if step == nil {
		return nil, nil
	}
	resolved, err := resolveActors(tx, step.Assignees)
	if err != nil {
		return nil, err
	}
	if conn.RoleID == "" && conn.DepartmentID == "" {
		return resolved, nil
	}
	if len(resolved) == 0 {
		return resolved, nil
	}
	query := tx.Model(&model.UserRoleModel{}).Where("user_id IN ?", resolved)
	if conn.RoleID != "" {
		query = query.Where("role_id = ?", conn.RoleID)
	}
	if conn.DepartmentID != "" {
		query = query.Where("department_id = ?", conn.DepartmentID)
	}
	var members []string
	if err := query.Distinct().Pluck("user_id", &members).Error; err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(members))
	for _, id := range members {
		allowed[id] = true
	}
	var filtered []string
	for _, id := range resolved {
		if allowed[id] {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

// isConnectorActor 判断操作人是否是连接器当前步骤过滤后的执行人
func isConnectorActor(tx *gorm.DB, conn *model.ConnectorModel, step *model.Step, actorID string) (bool, error) {
	resolved, err := resolveConnectorActors(tx, conn, step)
	if err != nil {
		return false, err
	}
	for _, id := range resolved {
		if id == actorID {
			return true, nil
		}
	}
	return false, nil
}

// loadConnector 加载连接器及其所属流程
func loadConnector(tx *gorm.DB, connectorID string) (*model.ConnectorModel, *model.ProcessModel, error) {
	var conn model.ConnectorModel
	if err := tx.Where("id = ?", connectorID).First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("connector %s not found", connectorID)
		}
		return nil, nil, err
	}
	proc, err := loadProcess(tx, conn.ProcessID)
	if err != nil {
		return nil, nil, err
	}
	return &conn, proc, nil
}

// connectorWorkflow 加载连接器的工作流定义
func connectorWorkflow(tx *gorm.DB, conn *model.ConnectorModel) (*model.WorkflowModel, error) {
	var wf model.WorkflowModel
	if err := tx.Where("id = ?", conn.WorkflowID).First(&wf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invariant("connector %s references missing workflow %s", conn.ID, conn.WorkflowID)
		}
		return nil, err
	}
	return &wf, nil
}

// ForwardConnector 推进连接器子流程
// 连接器有自己的指针,末步推进置位 completed;completed 置位后总部汇聚门重新计算
func (e *Engine) ForwardConnector(ctx context.Context, connectorID, actorID, remarks string) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		conn, proc, err := loadConnector(tx, connectorID)
		if err != nil {
			return err
		}
		if conn.Completed {
			return failed(ReasonProcessCompleted, "connector %s is already completed", conn.ID)
		}
		wf, err := connectorWorkflow(tx, conn)
		if err != nil {
			return err
		}
		step := wf.StepByNumber(conn.CurrentStepNumber)
		if step == nil {
			return invariant("connector %s points at step %d missing from workflow %s", conn.ID, conn.CurrentStepNumber, wf.ID)
		}
		if conn.CurrentActor != actorID {
			ok, err := isConnectorActor(tx, conn, step, actorID)
			if err != nil {
				return err
			}
			if !ok {
				return failed(ReasonNotAssignee, "actor %s is not an assignee of connector %s step %d", actorID, conn.ID, conn.CurrentStepNumber)
			}
		}

		docs, err := connectorDocuments(tx, conn)
		if err != nil {
			return err
		}
		resolved, err := resolveConnectorActors(tx, conn, step)
		if err != nil {
			return err
		}
		if !StepForwardable(step, resolved, docs) {
			return failed(ReasonNotForwardable, "connector %s step %d quorum is not complete", conn.ID, conn.CurrentStepNumber)
		}

		now := time.Now()
		if conn.CurrentStepNumber >= len(wf.Steps) {
			conn.Completed = true
			conn.CompletedAt = &now
			conn.LastStepDone = conn.CurrentStepNumber
			if proc.InitiatorID != "" {
				if err := emitFact(tx, out, Fact{
					Kind:        model.NotificationProcessForwarded,
					RecipientID: proc.InitiatorID,
					ProcessID:   proc.ID,
					Metadata: model.Metadata{
						"process_name": proc.Name,
						"connector":    conn.DepartmentName,
						"completed":    true,
					},
				}); err != nil {
					return err
				}
			}
		} else {
			conn.LastStepDone = conn.CurrentStepNumber
			conn.CurrentStepNumber++
			next := wf.StepByNumber(conn.CurrentStepNumber)
			if next != nil {
				assignees, err := resolveConnectorActors(tx, conn, next)
				if err != nil {
					return err
				}
				for _, userID := range assignees {
					if err := emitFact(tx, out, Fact{
						Kind:        model.NotificationProcessForwarded,
						RecipientID: userID,
						ProcessID:   proc.ID,
						Metadata: model.Metadata{
							"process_name": proc.Name,
							"connector":    conn.DepartmentName,
							"step_number":  conn.CurrentStepNumber,
						},
					}); err != nil {
						return err
					}
				}
			}
		}
		conn.CurrentActor = ""
		conn.Remarks = remarks
		conn.UpdatedAt = now
		if err := tx.Model(&model.ConnectorModel{}).
			Where("id = ?", conn.ID).
			Select("*").Omit("id", "created_at").
			Updates(conn).Error; err != nil {
			return err
		}

		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}

// RejectConnector 总部驳回单条分支
// 只翻转目标连接器的 completed 并把其指针移回目标步骤,兄弟分支不受影响
func (e *Engine) RejectConnector(ctx context.Context, connectorID, actorID string, targetStep int, reason string) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		conn, proc, err := loadConnector(tx, connectorID)
		if err != nil {
			return err
		}
		if !proc.IsHead {
			return failed("", "process %s is not a head process", proc.ID)
		}
		headStep := proc.CurrentStep()
		if err := e.authorizeActor(tx, proc, headStep, actorID); err != nil {
			return err
		}
		wf, err := connectorWorkflow(tx, conn)
		if err != nil {
			return err
		}
		if targetStep < 1 {
			targetStep = 1
		}
		if wf.StepByNumber(targetStep) == nil {
			return notFound("step %d not found in workflow %s", targetStep, wf.ID)
		}

		from := conn.CurrentStepNumber
		now := time.Now()
		conn.Completed = false
		conn.CompletedAt = nil
		conn.CurrentStepNumber = targetStep
		if conn.LastStepDone > targetStep-1 {
			conn.LastStepDone = targetStep - 1
		}
		conn.CurrentActor = ""
		conn.Remarks = reason
		conn.UpdatedAt = now
		if err := tx.Model(&model.ConnectorModel{}).
			Where("id = ?", conn.ID).
			Select("*").Omit("id", "created_at").
			Updates(conn).Error; err != nil {
			return err
		}

		step := wf.StepByNumber(targetStep)
		assignees, err := resolveConnectorActors(tx, conn, step)
		if err != nil {
			return err
		}
		for _, userID := range assignees {
			if err := emitFact(tx, out, Fact{
				Kind:        model.NotificationProcessForwarded,
				RecipientID: userID,
				ProcessID:   proc.ID,
				Metadata: model.Metadata{
					"process_name": proc.Name,
					"connector":    conn.DepartmentName,
					"step_number":  targetStep,
					"action":       "branch_rejected",
					"reason":       reason,
				},
			}); err != nil {
				return err
			}
		}
		if err := recordHistory(tx, proc.ID, from, targetStep, model.HistoryActionHeadReject, reason, actorID); err != nil {
			return err
		}

		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}

// connectorDocuments 加载连接器自己的文档副本
func connectorDocuments(tx *gorm.DB, conn *model.ConnectorModel) ([]model.DocumentEntryModel, error) {
	var docs []model.DocumentEntryModel
	err := tx.Where("process_id = ? AND connector_id = ?", conn.ProcessID, conn.ID).
		Order("created_at ASC").Find(&docs).Error
	return docs, err
}

// SignConnectorDocument 在连接器范围内签署文档
func (e *Engine) SignConnectorDocument(ctx context.Context, connectorID, documentID, actorID string) (*Result, error) {
	return e.connectorDocumentMutation(ctx, connectorID, documentID, actorID,
		func(conn *model.ConnectorModel, doc *model.DocumentEntryModel) error {
			return SignEntry(doc, actorID, conn.CurrentStepNumber)
		})
}

// RejectConnectorDocument 在连接器范围内驳回文档
func (e *Engine) RejectConnectorDocument(ctx context.Context, connectorID, documentID, actorID, reason string) (*Result, error) {
	return e.connectorDocumentMutation(ctx, connectorID, documentID, actorID,
		func(conn *model.ConnectorModel, doc *model.DocumentEntryModel) error {
			return RejectEntry(doc, actorID, "", conn.CurrentStepNumber, reason)
		})
}

// connectorDocumentMutation 连接器文档台账操作的公共骨架
func (e *Engine) connectorDocumentMutation(
	ctx context.Context,
	connectorID, documentID, actorID string,
	apply func(conn *model.ConnectorModel, doc *model.DocumentEntryModel) error,
) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		conn, proc, err := loadConnector(tx, connectorID)
		if err != nil {
			return err
		}
		if conn.Completed {
			return failed(ReasonProcessCompleted, "connector %s is already completed", conn.ID)
		}
		wf, err := connectorWorkflow(tx, conn)
		if err != nil {
			return err
		}
		step := wf.StepByNumber(conn.CurrentStepNumber)
		if conn.CurrentActor != actorID {
			ok, err := isConnectorActor(tx, conn, step, actorID)
			if err != nil {
				return err
			}
			if !ok {
				return failed(ReasonNotAssignee, "actor %s is not an assignee of connector %s step %d", actorID, conn.ID, conn.CurrentStepNumber)
			}
		}

		var doc model.DocumentEntryModel
		if err := tx.Where("process_id = ? AND connector_id = ? AND document_id = ?",
			conn.ProcessID, conn.ID, documentID).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("document %s not found in connector %s", documentID, conn.ID)
			}
			return err
		}
		if err := apply(conn, &doc); err != nil {
			return err
		}
		if err := saveDocumentEntry(tx, &doc); err != nil {
			return err
		}

		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}
