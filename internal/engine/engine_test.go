package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// TestInitiateCreatesSnapshot 测试流程创建的初始状态
func TestInitiateCreatesSnapshot(t *testing.T) {
	eng, db, emitter := newTestEngine(t)
	wf := seedWorkflow(t, db, "purchase",
		userStep(1, model.WorkKindSign, "u1", "u2"),
		userStep(2, model.WorkKindSign, "u3"),
	)

	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name:          "purchase-001",
		WorkflowID:    wf.ID,
		DocumentsPath: "/docs/purchase-001",
		InitiatorID:   "init-1",
		Documents: []DocumentInput{
			{DocumentID: "d1", CabinetNo: 1, WorkName: "contract"},
			{DocumentID: "d2", CabinetNo: 2, WorkName: "invoice"},
		},
	})
	require.NoError(t, err)

	proc := res.Process
	assert.Equal(t, model.ProcessStateInProgress, proc.State)
	assert.Equal(t, 1, proc.CurrentStepNumber)
	assert.Equal(t, 0, proc.LastStepDone)
	assert.Equal(t, 1, proc.MaxStepNumberReached)
	assert.Equal(t, 1, proc.Version)
	assert.Len(t, proc.WorkflowSnapshot, 2)
	assert.False(t, proc.Completed)

	// 文档台账条目初始无签名无驳回
	var docs []model.DocumentEntryModel
	require.NoError(t, db.Where("process_id = ?", proc.ID).Find(&docs).Error)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.Empty(t, d.SignedBy)
		assert.Nil(t, d.Rejection)
	}

	// 第一步的每个执行人一条待处理实例
	var instances []model.StepInstanceModel
	require.NoError(t, db.Where("process_id = ?", proc.ID).Find(&instances).Error)
	require.Len(t, instances, 2)
	for _, inst := range instances {
		assert.Equal(t, 1, inst.StepNumber)
		assert.Equal(t, model.StepInstanceStatusPending, inst.Status)
		assert.Equal(t, model.StepInstanceViaInitiation, inst.CreatedVia)
		require.NotNil(t, inst.Deadline)
	}

	// 通知事实随事务落库并在提交后投递
	assert.EqualValues(t, 2, countNotifications(t, db, proc.ID, model.NotificationProcessForwarded))
	assert.Len(t, emitter.facts, 2)

	// 创建记为一次 0→1 的推进
	var hist []model.StateHistoryModel
	require.NoError(t, db.Where("process_id = ?", proc.ID).Find(&hist).Error)
	require.Len(t, hist, 1)
	assert.Equal(t, 0, hist[0].FromStep)
	assert.Equal(t, 1, hist[0].ToStep)
	assert.Equal(t, model.HistoryActionForward, hist[0].Action)

	// 签署步骤有未签文档时不可推进,第一步不可回退
	assert.False(t, res.Flags.IsForwardable)
	assert.False(t, res.Flags.IsRevertable)
}

// TestInitiateWorkflowNotFound 测试工作流不存在
func TestInitiateWorkflowNotFound(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	_, err := eng.Initiate(context.Background(), InitiateInput{
		Name:          "ghost",
		WorkflowID:    "missing",
		DocumentsPath: "/docs/ghost",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// TestForwardRequiresSignQuorum 测试签署步骤的推进门槛
func TestForwardRequiresSignQuorum(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "contract",
		userStep(1, model.WorkKindSign, "u1"),
		userStep(2, model.WorkKindCustom, "u2"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "contract-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
		Documents: []DocumentInput{{DocumentID: "d1", CabinetNo: 1, WorkName: "contract"}},
	})
	require.NoError(t, err)
	procID := res.Process.ID

	// 法定人数未满,推进被拒绝
	_, err = eng.Forward(context.Background(), procID, "u1", ForwardOptions{})
	require.Error(t, err)
	assert.Equal(t, ReasonNotForwardable, ReasonOf(err))
	assert.True(t, errors.Is(err, ErrPreconditionFailed))

	// 全部要求签署人签署后可推进
	signed, err := eng.SignDocument(context.Background(), procID, "d1", "u1", "ok")
	require.NoError(t, err)
	assert.True(t, signed.Flags.IsForwardable)

	res, err = eng.Forward(context.Background(), procID, "u1", ForwardOptions{Remarks: "to step 2"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Process.CurrentStepNumber)
	assert.Equal(t, 1, res.Process.LastStepDone)
	assert.Equal(t, 2, res.Process.MaxStepNumberReached)

	// 下一步执行人收到实例
	var instances []model.StepInstanceModel
	require.NoError(t, db.Where("process_id = ? AND step_number = ?", procID, 2).Find(&instances).Error)
	require.Len(t, instances, 1)
	assert.Equal(t, "u2", instances[0].AssigneeID)
	assert.Equal(t, model.StepInstanceViaForward, instances[0].CreatedVia)
}

// TestForwardAuthorization 测试非执行人不可推进
func TestForwardAuthorization(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "auth", userStep(1, model.WorkKindCustom, "u1"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "auth-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
	})
	require.NoError(t, err)

	_, err = eng.Forward(context.Background(), res.Process.ID, "outsider", ForwardOptions{})
	require.Error(t, err)
	assert.Equal(t, ReasonNotAssignee, ReasonOf(err))
}

// TestForwardSkip 测试跳步转发及其限制
func TestForwardSkip(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "skip",
		userStep(1, model.WorkKindCustom, "u1"),
		userStep(2, model.WorkKindCustom, "u2"),
		userStep(3, model.WorkKindCustom, "u3"),
		userStep(4, model.WorkKindCustom, "u4"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "skip-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
		MaxReceiverStepNumber: 3,
	})
	require.NoError(t, err)
	procID := res.Process.ID

	// 超过接收上限
	_, err = eng.Forward(context.Background(), procID, "u1", ForwardOptions{TargetStep: 4})
	require.Error(t, err)
	assert.Equal(t, ReasonSkipBeyondLimit, ReasonOf(err))

	// 目标不在当前步骤之后
	_, err = eng.Forward(context.Background(), procID, "u1", ForwardOptions{TargetStep: 1})
	require.Error(t, err)
	assert.Equal(t, ReasonSkipBeyondLimit, ReasonOf(err))

	// 合法跳步,被跳过的步骤记录在案
	res, err = eng.Forward(context.Background(), procID, "u1", ForwardOptions{TargetStep: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Process.CurrentStepNumber)
	assert.True(t, res.Process.SkippedSteps.Contains(2))
	assert.False(t, res.Process.SkippedSteps.Contains(3))
}

// TestForwardSkipSelfApproval 测试跳步不能落在自己负责的步骤
func TestForwardSkipSelfApproval(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "selfskip",
		userStep(1, model.WorkKindCustom, "u1"),
		userStep(2, model.WorkKindCustom, "u2"),
		userStep(3, model.WorkKindCustom, "u1"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "selfskip-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
		MaxReceiverStepNumber: 3,
	})
	require.NoError(t, err)

	_, err = eng.Forward(context.Background(), res.Process.ID, "u1", ForwardOptions{TargetStep: 3})
	require.Error(t, err)
	assert.Equal(t, ReasonSelfApproval, ReasonOf(err))
}

// TestCompleteOnLastStep 测试末步推进完结流程
func TestCompleteOnLastStep(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "finish",
		userStep(1, model.WorkKindCustom, "u1"),
		userStep(2, model.WorkKindCustom, "u2"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "finish-001", WorkflowID: wf.ID, DocumentsPath: "/docs", InitiatorID: "init-1",
	})
	require.NoError(t, err)
	procID := res.Process.ID

	_, err = eng.Forward(context.Background(), procID, "u1", ForwardOptions{})
	require.NoError(t, err)

	res, err = eng.Forward(context.Background(), procID, "u2", ForwardOptions{Remarks: "done"})
	require.NoError(t, err)
	assert.True(t, res.Process.Completed)
	assert.Equal(t, model.ProcessStateCompleted, res.Process.State)
	require.NotNil(t, res.Process.CompletedAt)
	assert.False(t, res.Flags.IsRevertable)

	// 发起人收到完结通知
	assert.EqualValues(t, 1, countNotifications(t, db, procID, model.NotificationProcessCompleted))

	// 完结后不可再推进
	_, err = eng.Forward(context.Background(), procID, "u2", ForwardOptions{})
	require.Error(t, err)
	assert.Equal(t, ReasonProcessCompleted, ReasonOf(err))
}

// TestCompleteBeforeLastStep 测试提前完结
func TestCompleteBeforeLastStep(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "early",
		userStep(1, model.WorkKindCustom, "u1"),
		userStep(2, model.WorkKindCustom, "u2"),
		userStep(3, model.WorkKindCustom, "u3"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "early-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
	})
	require.NoError(t, err)

	res, err = eng.Complete(context.Background(), res.Process.ID, "u1", "no further review needed")
	require.NoError(t, err)
	assert.True(t, res.Process.Completed)

	var hist []model.StateHistoryModel
	require.NoError(t, db.Where("process_id = ? AND action = ?", res.Process.ID, model.HistoryActionComplete).Find(&hist).Error)
	assert.Len(t, hist, 1)
}

// TestRejectWalksBack 测试回退到操作人最后出现步骤之后
func TestRejectWalksBack(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "revert",
		userStep(1, model.WorkKindCustom, "u1"),
		userStep(2, model.WorkKindCustom, "u2"),
		userStep(3, model.WorkKindCustom, "u3"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "revert-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
	})
	require.NoError(t, err)
	procID := res.Process.ID

	_, err = eng.Forward(context.Background(), procID, "u1", ForwardOptions{})
	require.NoError(t, err)
	_, err = eng.Forward(context.Background(), procID, "u2", ForwardOptions{})
	require.NoError(t, err)

	// u3 未在此前任何步骤出现,回退到第 1 步
	res, err = eng.Reject(context.Background(), procID, "u3", "incomplete documents")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Process.CurrentStepNumber)
	assert.Equal(t, 0, res.Process.LastStepDone)
	assert.Equal(t, 3, res.Process.MaxStepNumberReached)
	assert.False(t, res.Process.Completed)

	var hist []model.StateHistoryModel
	require.NoError(t, db.Where("process_id = ? AND action = ?", procID, model.HistoryActionReject).Find(&hist).Error)
	require.Len(t, hist, 1)
	assert.Equal(t, 3, hist[0].FromStep)
	assert.Equal(t, 1, hist[0].ToStep)
}

// TestRejectNoEarlierStep 测试操作人紧邻上一步出现时无处可退
func TestRejectNoEarlierStep(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "noearlier",
		userStep(1, model.WorkKindCustom, "u1"),
		userStep(2, model.WorkKindCustom, "u1", "u2"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "noearlier-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
	})
	require.NoError(t, err)
	procID := res.Process.ID

	_, err = eng.Forward(context.Background(), procID, "u1", ForwardOptions{})
	require.NoError(t, err)

	// u1 在第 1 步出现过,目标步骤不早于当前步骤
	_, err = eng.Reject(context.Background(), procID, "u1", "")
	require.Error(t, err)
	assert.Equal(t, ReasonNotRevertable, ReasonOf(err))
}

// TestRejectAtFirstStep 测试第一步不可回退
func TestRejectAtFirstStep(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "first", userStep(1, model.WorkKindCustom, "u1"), userStep(2, model.WorkKindCustom, "u2"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "first-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
	})
	require.NoError(t, err)

	_, err = eng.Reject(context.Background(), res.Process.ID, "u1", "")
	require.Error(t, err)
	assert.Equal(t, ReasonNotRevertable, ReasonOf(err))
}

// TestRejectBlockedByCompletedQuorum 测试签署已凑齐时回退被阻塞
func TestRejectBlockedByCompletedQuorum(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "blocked",
		userStep(1, model.WorkKindCustom, "u1"),
		userStep(2, model.WorkKindSign, "u2"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "blocked-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
		Documents: []DocumentInput{{DocumentID: "d1", CabinetNo: 1, WorkName: "report"}},
	})
	require.NoError(t, err)
	procID := res.Process.ID

	_, err = eng.Forward(context.Background(), procID, "u1", ForwardOptions{})
	require.NoError(t, err)

	// 法定人数凑齐,回退会作废一次完整签署
	res, err = eng.SignDocument(context.Background(), procID, "d1", "u2", "")
	require.NoError(t, err)
	assert.True(t, res.Process.RevertBlocked)
	assert.False(t, res.Flags.IsRevertable)

	_, err = eng.Reject(context.Background(), procID, "u2", "")
	require.Error(t, err)
	assert.Equal(t, ReasonNotRevertable, ReasonOf(err))

	// 撤销签名后恢复可回退
	res, err = eng.RevokeSign(context.Background(), procID, "d1", "u2")
	require.NoError(t, err)
	assert.False(t, res.Process.RevertBlocked)

	res, err = eng.Reject(context.Background(), procID, "u2", "resend")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Process.CurrentStepNumber)
}

// TestPickExclusive 测试独占认领的比较交换语义
func TestPickExclusive(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "pick", userStep(1, model.WorkKindCustom, "u1", "u2"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "pick-001", WorkflowID: wf.ID, DocumentsPath: "/docs", InitiatorID: "init-1",
	})
	require.NoError(t, err)
	procID := res.Process.ID

	// 非执行人不能认领
	_, err = eng.Pick(context.Background(), procID, "outsider")
	require.Error(t, err)
	assert.Equal(t, ReasonNotAssignee, ReasonOf(err))

	res, err = eng.Pick(context.Background(), procID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.Process.CurrentActor)

	// 竞争失败方收到冲突而不是被静默覆盖
	_, err = eng.Pick(context.Background(), procID, "u2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, ReasonAlreadyPicked, ReasonOf(err))

	// 认领人的实例进行中,同组其他实例作废
	var instances []model.StepInstanceModel
	require.NoError(t, db.Where("process_id = ?", procID).Find(&instances).Error)
	statuses := map[string]string{}
	for _, inst := range instances {
		statuses[inst.AssigneeID] = inst.Status
	}
	assert.Equal(t, model.StepInstanceStatusInProgress, statuses["u1"])
	assert.Equal(t, model.StepInstanceStatusSuperseded, statuses["u2"])

	// 被认领后其他执行人不能操作
	_, err = eng.Forward(context.Background(), procID, "u2", ForwardOptions{})
	require.Error(t, err)
	assert.Equal(t, ReasonAlreadyPicked, ReasonOf(err))

	// 发起人收到认领通知
	assert.EqualValues(t, 1, countNotifications(t, db, procID, model.NotificationProcessPicked))
}

// TestPickClaimsOnlyForwardNotices 测试认领只收敛同组候选人的待办通知
func TestPickClaimsOnlyForwardNotices(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "pick-scope", userStep(1, model.WorkKindCustom, "u1", "u2"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "pick-scope-001", WorkflowID: wf.ID, DocumentsPath: "/docs", InitiatorID: "init-1",
	})
	require.NoError(t, err)
	procID := res.Process.ID

	// u2 另有一条等待表决的回流提醒,不归组内认领收敛
	now := time.Now()
	require.NoError(t, db.Create(&model.NotificationModel{
		ID:          "n-recirc",
		Kind:        model.NotificationRecirculationRequest,
		RecipientID: "u2",
		ProcessID:   procID,
		Status:      model.NotificationStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	_, err = eng.Pick(context.Background(), procID, "u1")
	require.NoError(t, err)

	var notices []model.NotificationModel
	require.NoError(t, db.Where("process_id = ? AND recipient_id = ?", procID, "u2").Find(&notices).Error)
	statuses := map[model.NotificationKind]string{}
	for _, n := range notices {
		statuses[n.Kind] = n.Status
	}
	assert.Equal(t, model.NotificationStatusClaimed, statuses[model.NotificationProcessForwarded])
	assert.Equal(t, model.NotificationStatusActive, statuses[model.NotificationRecirculationRequest])
}

// TestLockForUpdateDialects 测试行级锁子句只对支持 FOR UPDATE 的方言生成
func TestLockForUpdateDialects(t *testing.T) {
	db := newTestDB(t)
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return lockForUpdate(tx).Table("process_queries").Take(&model.QueryModel{})
	})
	assert.NotContains(t, sql, "FOR UPDATE")

	dummy, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	require.NoError(t, err)
	sql = dummy.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return lockForUpdate(tx).Table("process_queries").Take(&model.QueryModel{})
	})
	assert.Contains(t, sql, "FOR UPDATE")
}

// TestSaveProcessConflict 测试乐观锁版本冲突
func TestSaveProcessConflict(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "version", userStep(1, model.WorkKindCustom, "u1"), userStep(2, model.WorkKindCustom, "u2"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "version-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
	})
	require.NoError(t, err)

	proc := res.Process
	stale := *proc
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return saveProcess(tx, proc)
	}))

	err = db.Transaction(func(tx *gorm.DB) error {
		return saveProcess(tx, &stale)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
}

// TestUpdateStepsFrozenPrefix 测试已到达步骤被冻结
func TestUpdateStepsFrozenPrefix(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "steps",
		userStep(1, model.WorkKindCustom, "u1"),
		userStep(2, model.WorkKindCustom, "u2"),
		userStep(3, model.WorkKindCustom, "u3"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "steps-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
		MaxReceiverStepNumber: 3,
	})
	require.NoError(t, err)
	procID := res.Process.ID

	// 修改已到达的第 1 步被拒绝
	_, err = eng.UpdateSteps(context.Background(), procID, "u1", []model.Step{
		userStep(1, model.WorkKindCustom, "someone-else"),
		userStep(2, model.WorkKindCustom, "u2"),
		userStep(3, model.WorkKindCustom, "u3"),
	})
	require.Error(t, err)
	assert.Equal(t, ReasonStepFrozen, ReasonOf(err))

	// 丢弃已到达步骤同样被拒绝
	_, err = eng.UpdateSteps(context.Background(), procID, "u1", nil)
	require.Error(t, err)
	assert.Equal(t, ReasonStepFrozen, ReasonOf(err))

	// 未到达的步骤可以改动和裁剪
	res, err = eng.UpdateSteps(context.Background(), procID, "u1", []model.Step{
		userStep(1, model.WorkKindCustom, "u1"),
		userStep(2, model.WorkKindCustom, "u5"),
	})
	require.NoError(t, err)
	assert.Len(t, res.Process.WorkflowSnapshot, 2)
	assert.Equal(t, "u5", res.Process.WorkflowSnapshot[1].Assignees[0].UserID)
	// 接收上限收缩到新的步骤数
	assert.Equal(t, 2, res.Process.MaxReceiverStepNumber)
}

// TestRoleAssigneeResolution 测试角色型执行人展开
func TestRoleAssigneeResolution(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	require.NoError(t, db.Create(&model.UserRoleModel{
		ID: "ur-1", UserID: "role-user-1", RoleID: "approver", DepartmentID: "dep-a",
	}).Error)
	require.NoError(t, db.Create(&model.UserRoleModel{
		ID: "ur-2", UserID: "role-user-2", RoleID: "approver", DepartmentID: "dep-b",
	}).Error)

	wf := seedWorkflow(t, db, "roles", model.Step{
		StepNumber: 1,
		StepName:   "approve",
		WorkKind:   model.WorkKindCustom,
		Assignees:  []model.ActorRef{{RoleID: "approver", DepartmentID: "dep-a"}},
	})
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "roles-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
	})
	require.NoError(t, err)
	procID := res.Process.ID

	// 部门过滤后只展开出 dep-a 的用户
	var instances []model.StepInstanceModel
	require.NoError(t, db.Where("process_id = ?", procID).Find(&instances).Error)
	require.Len(t, instances, 1)
	assert.Equal(t, "role-user-1", instances[0].AssigneeID)

	// 展开出的用户具备操作权,未展开的没有
	_, err = eng.Forward(context.Background(), procID, "role-user-2", ForwardOptions{})
	require.Error(t, err)
	res, err = eng.Forward(context.Background(), procID, "role-user-1", ForwardOptions{})
	require.NoError(t, err)
	assert.True(t, res.Process.Completed)
}
