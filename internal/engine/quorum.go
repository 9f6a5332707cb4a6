package engine

import (
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// Flags 每次引擎调用返回的派生标志
// 调用层只读取这些布尔值,不自行重算法定人数逻辑
type Flags struct {
	IsForwardable         bool `json:"is_forwardable"`
	IsRevertable          bool `json:"is_revertable"`
	MaxReceiverStepNumber int  `json:"max_receiver_step_number"`
}

// requiredSigners 步骤要求的签署人
// 快照中直接指定用户的执行人,角色型执行人由调用方先展开
func requiredSigners(step *model.Step, resolved []string) []string {
	if len(resolved) > 0 {
		return resolved
	}
	var signers []string
	for _, a := range step.Assignees {
		if a.UserID != "" {
			signers = append(signers, a.UserID)
		}
	}
	return signers
}

// StepForwardable 当前步骤的文档是否满足推进条件
// sign 步骤: 每份文档要么被全部要求签署人签署,要么是此前步骤遗留的驳回
// (当前步骤上的驳回阻塞推进,直到撤销或回转处理);其他步骤类型无文档门槛
func StepForwardable(step *model.Step, resolvedSigners []string, docs []model.DocumentEntryModel) bool {
	if step == nil {
		return false
	}
	if step.WorkKind != model.WorkKindSign {
		return true
	}
	signers := requiredSigners(step, resolvedSigners)
	for i := range docs {
		doc := &docs[i]
		if doc.Rejection != nil {
			if doc.Rejection.StepNumber == step.StepNumber {
				return false
			}
			// 此前步骤的驳回随流程携带,不阻塞当前步骤
			continue
		}
		for _, s := range signers {
			if !doc.SignedBy.Contains(s) {
				return false
			}
		}
	}
	return true
}

// StepRevertable 流程当前是否允许回退
// 第一步不可回退;RevertBlocked 是写入时预计算的标志,
// 当前步骤的法定人数已经凑齐时回退会作废一次完整的签署,予以阻止
func StepRevertable(proc *model.ProcessModel) bool {
	if proc.Completed {
		return false
	}
	if proc.CurrentStepNumber <= 1 {
		return false
	}
	return !proc.RevertBlocked
}

// computeRevertBlocked 重新计算回退阻塞标志
// 在每次签署/驳回/撤销和指针移动后调用,读取端保持 O(1)
func computeRevertBlocked(step *model.Step, resolvedSigners []string, docs []model.DocumentEntryModel) bool {
	if step == nil || step.WorkKind != model.WorkKindSign {
		return false
	}
	anySigned := false
	for i := range docs {
		if len(docs[i].SignedBy) > 0 {
			anySigned = true
			break
		}
	}
	return anySigned && StepForwardable(step, resolvedSigners, docs)
}

// headGateOpen 总部流程末步的汇聚门
// 所有连接器都完成前,末步不可推进
func headGateOpen(proc *model.ProcessModel, connectors []model.ConnectorModel) bool {
	if !proc.IsHead || proc.CurrentStepNumber != len(proc.WorkflowSnapshot) {
		return true
	}
	for i := range connectors {
		if !connectors[i].Completed {
			return false
		}
	}
	return true
}
