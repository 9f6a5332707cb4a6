package engine

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// InitiateInput 流程创建参数
type InitiateInput struct {
	Name                  string
	WorkflowID            string
	DocumentsPath         string
	Remarks               string
	InitiatorID           string
	MaxReceiverStepNumber int
	IsInterBranch         bool
	Documents             []DocumentInput
}

// DocumentInput 创建/上传时的文档条目参数
type DocumentInput struct {
	DocumentID string
	CabinetNo  int
	WorkName   string
}

// Initiate 从工作流定义创建流程实例
// 步骤定义在创建时刻快照,之后工作流更新不影响已创建的流程
func (e *Engine) Initiate(ctx context.Context, input InitiateInput) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		var wf model.WorkflowModel
		if err := tx.Where("id = ?", input.WorkflowID).First(&wf).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("workflow %s not found", input.WorkflowID)
			}
			return err
		}

		now := time.Now()
		proc := &model.ProcessModel{
			ID:                    newID(),
			Name:                  input.Name,
			WorkflowID:            wf.ID,
			WorkflowSnapshot:      wf.Steps,
			State:                 model.ProcessStateInProgress,
			CurrentStepNumber:     1,
			LastStepDone:          0,
			MaxStepNumberReached:  1,
			MaxReceiverStepNumber: input.MaxReceiverStepNumber,
			IsInterBranch:         input.IsInterBranch,
			DocumentsPath:         input.DocumentsPath,
			Remarks:               input.Remarks,
			SkippedSteps:          model.IntSet{},
			Version:               1,
			InitiatorID:           input.InitiatorID,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := proc.Validate(); err != nil {
			return failed("", "invalid process: %v", err)
		}
		if err := tx.Create(proc).Error; err != nil {
			return err
		}

		for _, d := range input.Documents {
			entry := &model.DocumentEntryModel{
				ID:         newID(),
				ProcessID:  proc.ID,
				DocumentID: d.DocumentID,
				CabinetNo:  d.CabinetNo,
				WorkName:   d.WorkName,
				SignedBy:   model.StringSet{},
				UploadedBy: input.InitiatorID,
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

		firstStep := proc.StepByNumber(1)
		assignees, err := e.createStepInstances(tx, proc, firstStep, model.StepInstanceViaInitiation, "")
		if err != nil {
			return err
		}
		for _, userID := range assignees {
			if err := emitFact(tx, out, Fact{
				Kind:        model.NotificationProcessForwarded,
				RecipientID: userID,
				ProcessID:   proc.ID,
				Metadata:    model.Metadata{"process_name": proc.Name, "step_number": 1},
			}); err != nil {
				return err
			}
		}
		if err := recordHistory(tx, proc.ID, 0, 1, model.HistoryActionForward, "process initiated", input.InitiatorID); err != nil {
			return err
		}

		flags, err := computeFlags(tx, proc)
		if err != nil {
			return err
		}
		out.process = proc
		out.flags = flags
		return nil
	})
}

// ForwardOptions 推进选项
type ForwardOptions struct {
	// TargetStep 显式跳步目标,0 表示默认下一步
	TargetStep int
	// CompleteBefore 在末步之前提前完结流程
	CompleteBefore bool
	Remarks        string
}

// Forward 把流程指针向前推进
// 默认目标是下一步;显式跳步目标不得超过 maxReceiverStepNumber,
// 且目标步骤的执行人集合中不能包含操作人本人(禁止跳步自批)
func (e *Engine) Forward(ctx context.Context, processID, actorID string, opts ForwardOptions) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		proc, err := loadProcess(tx, processID)
		if err != nil {
			return err
		}
		if proc.Completed {
			return failed(ReasonProcessCompleted, "process %s is already completed", proc.ID)
		}
		step := proc.CurrentStep()
		if step == nil {
			return invariant("process %s current step %d has no definition", proc.ID, proc.CurrentStepNumber)
		}

		if err := e.authorizeActor(tx, proc, step, actorID); err != nil {
			return err
		}

		flags, err := computeFlags(tx, proc)
		if err != nil {
			return err
		}
		if !flags.IsForwardable {
			if !headGateOpenForProcess(tx, proc) {
				return failed(ReasonBranchIncomplete, "published branches of process %s are not all completed", proc.ID)
			}
			return failed(ReasonNotForwardable, "step %d of process %s does not satisfy the sign quorum", step.StepNumber, proc.ID)
		}

		current := proc.CurrentStepNumber
		lastStep := len(proc.WorkflowSnapshot)

		// 完结路径: 末步推进或显式提前完结
		if current == lastStep || opts.CompleteBefore {
			return e.complete(tx, out, proc, actorID, opts.Remarks)
		}

		target := current + 1
		if opts.TargetStep != 0 && opts.TargetStep != target {
			if opts.TargetStep <= current {
				return failed(ReasonSkipBeyondLimit, "target step %d is not ahead of step %d", opts.TargetStep, current)
			}
			if proc.MaxReceiverStepNumber == 0 || opts.TargetStep > proc.MaxReceiverStepNumber {
				return failed(ReasonSkipBeyondLimit, "target step %d exceeds the receiver limit %d", opts.TargetStep, proc.MaxReceiverStepNumber)
			}
			targetStep := proc.StepByNumber(opts.TargetStep)
			if targetStep == nil {
				return notFound("step %d not found in process %s", opts.TargetStep, proc.ID)
			}
			selfAssigned, err := isStepActor(tx, targetStep, actorID)
			if err != nil {
				return err
			}
			if selfAssigned {
				return failed(ReasonSelfApproval, "actor %s cannot skip forward to a step assigned to themselves", actorID)
			}
			for skipped := current + 1; skipped < opts.TargetStep; skipped++ {
				proc.SkippedSteps = proc.SkippedSteps.Add(skipped)
			}
			target = opts.TargetStep
		}

		targetStep := proc.StepByNumber(target)
		if targetStep == nil {
			return invariant("process %s has no step %d despite bounds check", proc.ID, target)
		}

		if err := settleStepInstances(tx, proc.ID, current, actorID); err != nil {
			return err
		}

		proc.LastStepDone = current
		proc.CurrentStepNumber = target
		if target > proc.MaxStepNumberReached {
			proc.MaxStepNumberReached = target
		}
		proc.CurrentActor = ""
		if opts.Remarks != "" {
			proc.Remarks = opts.Remarks
		}
		if err := refreshRevertBlocked(tx, proc); err != nil {
			return err
		}
		if err := proc.Validate(); err != nil {
			return invariant("process %s failed pointer bounds after forward: %v", proc.ID, err)
		}
		if err := saveProcess(tx, proc); err != nil {
			return err
		}

		assignees, err := e.createStepInstances(tx, proc, targetStep, model.StepInstanceViaForward, "")
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
					"step_number":  target,
					"from_step":    current,
				},
			}); err != nil {
				return err
			}
		}
		if err := recordHistory(tx, proc.ID, current, target, model.HistoryActionForward, opts.Remarks, actorID); err != nil {
			return err
		}

		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}

// complete 完结流程
// completed 单调置位,之后只能通过质询回转进入新一轮流转,历史不被改写
func (e *Engine) complete(tx *gorm.DB, out *txResult, proc *model.ProcessModel, actorID, remarks string) error {
	current := proc.CurrentStepNumber
	now := time.Now()

	if err := settleStepInstances(tx, proc.ID, current, actorID); err != nil {
		return err
	}

	proc.LastStepDone = current
	proc.Completed = true
	proc.CompletedAt = &now
	proc.State = model.ProcessStateCompleted
	proc.CurrentActor = ""
	proc.RevertBlocked = false
	if remarks != "" {
		proc.Remarks = remarks
	}
	if err := saveProcess(tx, proc); err != nil {
		return err
	}
	if err := recordHistory(tx, proc.ID, current, current, model.HistoryActionComplete, remarks, actorID); err != nil {
		return err
	}
	if proc.InitiatorID != "" {
		if err := emitFact(tx, out, Fact{
			Kind:        model.NotificationProcessCompleted,
			RecipientID: proc.InitiatorID,
			ProcessID:   proc.ID,
			Metadata:    model.Metadata{"process_name": proc.Name, "completed_by": actorID},
		}); err != nil {
			return err
		}
	}

	flags, err := computeFlags(tx, proc)
	if err != nil {
		return err
	}
	out.process = proc
	out.flags = flags
	return nil
}

// Complete 显式完结流程
// 只有末步执行人可以完结,且此前所有步骤满足推进条件
func (e *Engine) Complete(ctx context.Context, processID, actorID, remarks string) (*Result, error) {
	return e.Forward(ctx, processID, actorID, ForwardOptions{CompleteBefore: true, Remarks: remarks})
}

// Reject 把流程退回到操作人最后出现的步骤之后的那一步
// 未被重新到达的步骤上的签名和驳回全部保留,只移动指针并重算派生标志
func (e *Engine) Reject(ctx context.Context, processID, actorID, remarks string) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		proc, err := loadProcess(tx, processID)
		if err != nil {
			return err
		}
		if proc.Completed {
			return failed(ReasonProcessCompleted, "process %s is already completed", proc.ID)
		}
		step := proc.CurrentStep()
		if err := e.authorizeActor(tx, proc, step, actorID); err != nil {
			return err
		}
		if !StepRevertable(proc) {
			return failed(ReasonNotRevertable, "process %s cannot be reverted at step %d", proc.ID, proc.CurrentStepNumber)
		}

		current := proc.CurrentStepNumber
		lastActorStep := 0
		for n := current - 1; n >= 1; n-- {
			isActor, err := isStepActor(tx, proc.StepByNumber(n), actorID)
			if err != nil {
				return err
			}
			if isActor {
				lastActorStep = n
				break
			}
		}
		target := lastActorStep + 1
		if target >= current {
			return failed(ReasonNotRevertable, "no earlier step to revert process %s to", proc.ID)
		}
		targetStep := proc.StepByNumber(target)
		if targetStep == nil {
			return invariant("process %s has no step %d for revert target", proc.ID, target)
		}

		if err := supersedePendingInstances(tx, proc.ID, current); err != nil {
			return err
		}

		proc.CurrentStepNumber = target
		if proc.LastStepDone > target-1 {
			proc.LastStepDone = target - 1
		}
		proc.CurrentActor = ""
		if remarks != "" {
			proc.Remarks = remarks
		}
		if err := refreshRevertBlocked(tx, proc); err != nil {
			return err
		}
		if err := proc.Validate(); err != nil {
			return invariant("process %s failed pointer bounds after reject: %v", proc.ID, err)
		}
		if err := saveProcess(tx, proc); err != nil {
			return err
		}

		assignees, err := e.createStepInstances(tx, proc, targetStep, model.StepInstanceViaForward, "")
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
					"step_number":  target,
					"action":       "reverted",
					"remarks":      remarks,
				},
			}); err != nil {
				return err
			}
		}
		if err := recordHistory(tx, proc.ID, current, target, model.HistoryActionReject, remarks, actorID); err != nil {
			return err
		}

		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}

// Pick 独占认领流程
// 对 currentActor 的单条条件更新实现比较交换,并发认领只有一个成功,
// 失败方收到 AlreadyPicked 而不是被静默覆盖
func (e *Engine) Pick(ctx context.Context, processID, actorID string) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		proc, err := loadProcess(tx, processID)
		if err != nil {
			return err
		}
		if proc.Completed {
			return failed(ReasonProcessCompleted, "process %s is already completed", proc.ID)
		}
		isActor, err := isStepActor(tx, proc.CurrentStep(), actorID)
		if err != nil {
			return err
		}
		if !isActor {
			return failed(ReasonNotAssignee, "actor %s is not an assignee of step %d", actorID, proc.CurrentStepNumber)
		}

		res := tx.Model(&model.ProcessModel{}).
			Where("id = ? AND (current_actor = ? OR current_actor = ?)", proc.ID, "", actorID).
			Updates(map[string]interface{}{
				"current_actor": actorID,
				"version":       gorm.Expr("version + 1"),
				"updated_at":    time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict(ReasonAlreadyPicked, "process %s is already picked by another actor", proc.ID)
		}

		now := time.Now()
		if err := tx.Model(&model.StepInstanceModel{}).
			Where("process_id = ? AND step_number = ? AND assignee_id = ? AND status = ?",
				proc.ID, proc.CurrentStepNumber, actorID, model.StepInstanceStatusPending).
			Updates(map[string]interface{}{
				"status":     model.StepInstanceStatusInProgress,
				"picked_by":  actorID,
				"claimed_at": now,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		// 认领后同组其他候选人的实例作废,其通知标记为已认领
		var superseded []string
		if err := tx.Model(&model.StepInstanceModel{}).
			Where("process_id = ? AND step_number = ? AND status = ?",
				proc.ID, proc.CurrentStepNumber, model.StepInstanceStatusPending).
			Pluck("assignee_id", &superseded).Error; err != nil {
			return err
		}
		if err := supersedePendingInstances(tx, proc.ID, proc.CurrentStepNumber); err != nil {
			return err
		}
		if len(superseded) > 0 {
			// 只收敛本步骤的待办通知,回转投票等其他提醒仍归各人自己处理
			if err := tx.Model(&model.NotificationModel{}).
				Where("process_id = ? AND recipient_id IN ? AND status = ? AND kind = ?",
					proc.ID, superseded, model.NotificationStatusActive, model.NotificationProcessForwarded).
				Updates(map[string]interface{}{
					"status":     model.NotificationStatusClaimed,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		if proc.InitiatorID != "" && proc.InitiatorID != actorID {
			if err := emitFact(tx, out, Fact{
				Kind:        model.NotificationProcessPicked,
				RecipientID: proc.InitiatorID,
				ProcessID:   proc.ID,
				Metadata:    model.Metadata{"process_name": proc.Name, "picked_by": actorID},
			}); err != nil {
				return err
			}
		}

		proc, err = loadProcess(tx, proc.ID)
		if err != nil {
			return err
		}
		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}

// authorizeActor 验证操作人有当前步骤的操作权
// 步骤执行人(含角色展开)或已认领流程的 currentActor 都可以操作
func (e *Engine) authorizeActor(tx *gorm.DB, proc *model.ProcessModel, step *model.Step, actorID string) error {
	if proc.CurrentActor != "" {
		if proc.CurrentActor != actorID {
			return failed(ReasonAlreadyPicked, "process %s is picked by another actor", proc.ID)
		}
		return nil
	}
	isActor, err := isStepActor(tx, step, actorID)
	if err != nil {
		return err
	}
	if !isActor {
		return failed(ReasonNotAssignee, "actor %s is not an assignee of step %d", actorID, proc.CurrentStepNumber)
	}
	return nil
}

// settleStepInstances 步骤推进时结清该步骤的实例
// 操作人的实例置为完成,其余待处理实例作废
func settleStepInstances(tx *gorm.DB, processID string, stepNumber int, actorID string) error {
	now := time.Now()
	if err := tx.Model(&model.StepInstanceModel{}).
		Where("process_id = ? AND step_number = ? AND assignee_id = ? AND status IN ?",
			processID, stepNumber, actorID,
			[]string{model.StepInstanceStatusPending, model.StepInstanceStatusInProgress}).
		Updates(map[string]interface{}{
			"status":     model.StepInstanceStatusCompleted,
			"updated_at": now,
		}).Error; err != nil {
		return err
	}
	return supersedePendingInstances(tx, processID, stepNumber)
}

// supersedePendingInstances 作废步骤上剩余的待处理实例
func supersedePendingInstances(tx *gorm.DB, processID string, stepNumber int) error {
	return tx.Model(&model.StepInstanceModel{}).
		Where("process_id = ? AND step_number = ? AND status = ?",
			processID, stepNumber, model.StepInstanceStatusPending).
		Updates(map[string]interface{}{
			"status":     model.StepInstanceStatusSuperseded,
			"updated_at": time.Now(),
		}).Error
}

// headGateOpenForProcess 总部末步汇聚门的即时检查
func headGateOpenForProcess(tx *gorm.DB, proc *model.ProcessModel) bool {
	connectors, err := loadConnectors(tx, proc.ID)
	if err != nil {
		return false
	}
	return headGateOpen(proc, connectors)
}
