package engine

import (
	"context"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// UpdateSteps 修改运行中流程的工作流快照
// 已到达过的步骤(步骤号 ≤ maxStepNumberReached)被冻结,只能插入或重排其后的步骤
func (e *Engine) UpdateSteps(ctx context.Context, processID, actorID string, steps []model.Step) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		proc, err := loadProcess(tx, processID)
		if err != nil {
			return err
		}
		if proc.Completed {
			return failed(ReasonProcessCompleted, "process %s is already completed", proc.ID)
		}

		frozen := proc.MaxStepNumberReached
		if frozen > len(steps) {
			return failed(ReasonStepFrozen, "new step list drops reached steps of process %s", proc.ID)
		}
		for i := 0; i < frozen; i++ {
			if !sameStep(&proc.WorkflowSnapshot[i], &steps[i]) {
				return failed(ReasonStepFrozen, "step %d of process %s has been reached and is frozen", i+1, proc.ID)
			}
		}

		proc.WorkflowSnapshot = model.StepList(steps)
		if err := proc.Validate(); err != nil {
			return failed("", "invalid step list: %v", err)
		}
		if proc.MaxReceiverStepNumber > len(steps) {
			proc.MaxReceiverStepNumber = len(steps)
		}
		if err := refreshRevertBlocked(tx, proc); err != nil {
			return err
		}
		if err := saveProcess(tx, proc); err != nil {
			return err
		}
		if err := recordHistory(tx, proc.ID, proc.CurrentStepNumber, proc.CurrentStepNumber,
			model.HistoryActionForward, "workflow steps updated", actorID); err != nil {
			return err
		}

		out.process = proc
		out.flags, err = computeFlags(tx, proc)
		return err
	})
}

// sameStep 冻结比较: 步骤号、类型和执行人集合逐一相等
func sameStep(a, b *model.Step) bool {
	if a.StepNumber != b.StepNumber || a.WorkKind != b.WorkKind || a.AllowParallel != b.AllowParallel {
		return false
	}
	if len(a.Assignees) != len(b.Assignees) {
		return false
	}
	for i := range a.Assignees {
		if a.Assignees[i] != b.Assignees[i] {
			return false
		}
	}
	return true
}
