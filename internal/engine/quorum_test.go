package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

func signedDoc(docID string, signers ...string) model.DocumentEntryModel {
	set := model.StringSet{}
	for _, s := range signers {
		set = set.Add(s)
	}
	return model.DocumentEntryModel{ID: "entry-" + docID, DocumentID: docID, SignedBy: set}
}

// TestStepForwardable 测试推进门槛的法定人数判定
func TestStepForwardable(t *testing.T) {
	signStep := userStep(2, model.WorkKindSign, "u1", "u2")

	// 非签署步骤无文档门槛
	uploadStep := userStep(1, model.WorkKindUpload, "u1")
	assert.True(t, StepForwardable(&uploadStep, nil, []model.DocumentEntryModel{signedDoc("d1")}))

	// 空步骤不可推进
	assert.False(t, StepForwardable(nil, nil, nil))

	// 未凑齐全部要求签署人
	docs := []model.DocumentEntryModel{signedDoc("d1", "u1")}
	assert.False(t, StepForwardable(&signStep, []string{"u1", "u2"}, docs))

	// 全部签署后可推进
	docs = []model.DocumentEntryModel{signedDoc("d1", "u1", "u2"), signedDoc("d2", "u1", "u2")}
	assert.True(t, StepForwardable(&signStep, []string{"u1", "u2"}, docs))

	// 当前步骤上的驳回阻塞推进
	rejected := signedDoc("d3")
	rejected.Rejection = &model.Rejection{StepNumber: 2, ActorUser: "u1", Reason: "redo"}
	assert.False(t, StepForwardable(&signStep, []string{"u1", "u2"},
		[]model.DocumentEntryModel{signedDoc("d1", "u1", "u2"), rejected}))

	// 此前步骤遗留的驳回随流程携带,不参与本步骤法定人数
	carried := signedDoc("d4")
	carried.Rejection = &model.Rejection{StepNumber: 1, ActorUser: "u0", Reason: "stale"}
	assert.True(t, StepForwardable(&signStep, []string{"u1", "u2"},
		[]model.DocumentEntryModel{signedDoc("d1", "u1", "u2"), carried}))

	// 单调性: 追加签名不会把可推进翻回不可推进
	extra := signedDoc("d1", "u1", "u2", "u3")
	assert.True(t, StepForwardable(&signStep, []string{"u1", "u2"}, []model.DocumentEntryModel{extra}))
}

// TestStepRevertable 测试回退允许条件
func TestStepRevertable(t *testing.T) {
	proc := &model.ProcessModel{CurrentStepNumber: 2}
	assert.True(t, StepRevertable(proc))

	proc.CurrentStepNumber = 1
	assert.False(t, StepRevertable(proc))

	proc.CurrentStepNumber = 3
	proc.RevertBlocked = true
	assert.False(t, StepRevertable(proc))

	proc.RevertBlocked = false
	proc.Completed = true
	assert.False(t, StepRevertable(proc))
}

// TestComputeRevertBlocked 测试回退阻塞标志的预计算
func TestComputeRevertBlocked(t *testing.T) {
	signStep := userStep(2, model.WorkKindSign, "u1")

	// 非签署步骤从不阻塞
	custom := userStep(2, model.WorkKindCustom, "u1")
	assert.False(t, computeRevertBlocked(&custom, []string{"u1"}, []model.DocumentEntryModel{signedDoc("d1", "u1")}))

	// 没有任何签名不阻塞
	assert.False(t, computeRevertBlocked(&signStep, []string{"u1"}, []model.DocumentEntryModel{signedDoc("d1")}))

	// 有签名但法定人数未满不阻塞
	partial := []model.DocumentEntryModel{signedDoc("d1", "u1"), signedDoc("d2")}
	assert.False(t, computeRevertBlocked(&signStep, []string{"u1"}, partial))

	// 法定人数凑齐后阻塞回退
	full := []model.DocumentEntryModel{signedDoc("d1", "u1"), signedDoc("d2", "u1")}
	assert.True(t, computeRevertBlocked(&signStep, []string{"u1"}, full))
}

// TestHeadGateOpen 测试总部末步的分支汇聚门
func TestHeadGateOpen(t *testing.T) {
	snapshot := model.StepList{
		userStep(1, model.WorkKindPublish, "u1"),
		userStep(2, model.WorkKindCustom, "u1"),
	}
	head := &model.ProcessModel{IsHead: true, WorkflowSnapshot: snapshot, CurrentStepNumber: 2}
	connectors := []model.ConnectorModel{{ID: "c1"}, {ID: "c2", Completed: true}}

	// 有未完成分支时末步关闭
	assert.False(t, headGateOpen(head, connectors))

	// 全部分支完成后打开
	connectors[0].Completed = true
	assert.True(t, headGateOpen(head, connectors))

	// 非末步不受汇聚门约束
	head.CurrentStepNumber = 1
	connectors[0].Completed = false
	assert.True(t, headGateOpen(head, connectors))

	// 非总部流程不受约束
	normal := &model.ProcessModel{WorkflowSnapshot: snapshot, CurrentStepNumber: 2}
	assert.True(t, headGateOpen(normal, connectors))
}
