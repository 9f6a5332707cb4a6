package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// setupHeadProcess 创建带发布步骤的总部流程和分支工作流
func setupHeadProcess(t *testing.T) (*Engine, *gorm.DB, string, string) {
	eng, db, _ := newTestEngine(t)
	headWF := seedWorkflow(t, db, "head",
		userStep(1, model.WorkKindPublish, "h1"),
		userStep(2, model.WorkKindCustom, "h1"),
	)
	branchWF := seedWorkflow(t, db, "branch",
		userStep(1, model.WorkKindSign, "b1"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "head-001", WorkflowID: headWF.ID, DocumentsPath: "/docs", InitiatorID: "init-1",
		Documents: []DocumentInput{{DocumentID: "d1", CabinetNo: 1, WorkName: "circular"}},
	})
	require.NoError(t, err)
	return eng, db, res.Process.ID, branchWF.ID
}

func listConnectors(t *testing.T, db *gorm.DB, procID string) []model.ConnectorModel {
	t.Helper()
	var connectors []model.ConnectorModel
	require.NoError(t, db.Where("process_id = ?", procID).Order("created_at ASC").Find(&connectors).Error)
	return connectors
}

// TestPublishCreatesConnectors 测试发布为每个机构创建独立分支
func TestPublishCreatesConnectors(t *testing.T) {
	eng, db, procID, branchWF := setupHeadProcess(t)

	res, err := eng.Publish(context.Background(), procID, "h1", []PublishTarget{
		{DepartmentName: "east", WorkflowID: branchWF},
		{DepartmentName: "west", WorkflowID: branchWF, RoleIDs: []string{"clerk", "chief"}},
	})
	require.NoError(t, err)
	assert.True(t, res.Process.IsHead)
	assert.True(t, res.Process.IsInterBranch)

	// east 一条,west 按角色拆成两条
	connectors := listConnectors(t, db, procID)
	require.Len(t, connectors, 3)
	seen := map[string]bool{}
	for _, c := range connectors {
		seen[c.DepartmentName+":"+c.RoleID] = true
		assert.Equal(t, 1, c.CurrentStepNumber)
		assert.False(t, c.Completed)

		// 每条分支拿到文档包的独立副本,签名从零积累
		var docs []model.DocumentEntryModel
		require.NoError(t, db.Where("process_id = ? AND connector_id = ?", procID, c.ID).Find(&docs).Error)
		require.Len(t, docs, 1)
		assert.Equal(t, "d1", docs[0].DocumentID)
		assert.Empty(t, docs[0].SignedBy)
	}
	assert.True(t, seen["east:"])
	assert.True(t, seen["west:clerk"])
	assert.True(t, seen["west:chief"])

	var hist []model.StateHistoryModel
	require.NoError(t, db.Where("process_id = ? AND action = ?", procID, model.HistoryActionPublish).Find(&hist).Error)
	assert.Len(t, hist, 1)
}

// TestConnectorRoleFilterScopesActors 测试角色拆分的分支只接受持有该角色的执行人
func TestConnectorRoleFilterScopesActors(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	headWF := seedWorkflow(t, db, "head-roles", userStep(1, model.WorkKindPublish, "h1"))
	branchWF := seedWorkflow(t, db, "branch-roles", model.Step{
		StepNumber: 1,
		StepName:   "sign",
		WorkKind:   model.WorkKindSign,
		Assignees: []model.ActorRef{
			{RoleID: "clerk"},
			{RoleID: "chief"},
		},
	})
	require.NoError(t, db.Create(&model.UserRoleModel{ID: "ur1", UserID: "u-clerk", RoleID: "clerk"}).Error)
	require.NoError(t, db.Create(&model.UserRoleModel{ID: "ur2", UserID: "u-chief", RoleID: "chief"}).Error)

	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "head-roles-001", WorkflowID: headWF.ID, DocumentsPath: "/docs", InitiatorID: "init-1",
		Documents: []DocumentInput{{DocumentID: "d1", CabinetNo: 1, WorkName: "circular"}},
	})
	require.NoError(t, err)
	procID := res.Process.ID

	_, err = eng.Publish(context.Background(), procID, "h1", []PublishTarget{
		{DepartmentName: "west", WorkflowID: branchWF.ID, RoleIDs: []string{"clerk", "chief"}},
	})
	require.NoError(t, err)

	var clerkConn model.ConnectorModel
	require.NoError(t, db.Where("process_id = ? AND role_id = ?", procID, "clerk").First(&clerkConn).Error)

	// 角色不符的执行人被拒之门外,否则两条分支会解析出同一批人
	_, err = eng.SignConnectorDocument(context.Background(), clerkConn.ID, "d1", "u-chief")
	require.Error(t, err)
	assert.Equal(t, ReasonNotAssignee, ReasonOf(err))

	// 本角色的执行人独自凑齐法定人数并完成分支
	_, err = eng.SignConnectorDocument(context.Background(), clerkConn.ID, "d1", "u-clerk")
	require.NoError(t, err)
	_, err = eng.ForwardConnector(context.Background(), clerkConn.ID, "u-clerk", "")
	require.NoError(t, err)

	require.NoError(t, db.Where("id = ?", clerkConn.ID).First(&clerkConn).Error)
	assert.True(t, clerkConn.Completed)
}

// TestPublishRequiresPublishStep 测试只能在发布步骤发布
func TestPublishRequiresPublishStep(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "nopublish", userStep(1, model.WorkKindCustom, "u1"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "nopublish-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
	})
	require.NoError(t, err)

	_, err = eng.Publish(context.Background(), res.Process.ID, "u1", []PublishTarget{
		{DepartmentName: "east"},
	})
	require.Error(t, err)
}

// TestHeadGateBlocksUntilBranchesComplete 测试汇聚门阻塞总部末步
func TestHeadGateBlocksUntilBranchesComplete(t *testing.T) {
	eng, db, procID, branchWF := setupHeadProcess(t)

	_, err := eng.Publish(context.Background(), procID, "h1", []PublishTarget{
		{DepartmentName: "east", WorkflowID: branchWF},
		{DepartmentName: "west", WorkflowID: branchWF},
	})
	require.NoError(t, err)

	// 发布步骤本身照常推进到末步
	res, err := eng.Forward(context.Background(), procID, "h1", ForwardOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Process.CurrentStepNumber)
	assert.False(t, res.Flags.IsForwardable)

	// 分支未完成,末步推进被汇聚门拦下
	_, err = eng.Forward(context.Background(), procID, "h1", ForwardOptions{})
	require.Error(t, err)
	assert.Equal(t, ReasonBranchIncomplete, ReasonOf(err))

	// 分支签署并推进至完成
	connectors := listConnectors(t, db, procID)
	require.Len(t, connectors, 2)
	for _, c := range connectors {
		_, err = eng.SignConnectorDocument(context.Background(), c.ID, "d1", "b1")
		require.NoError(t, err)
		res, err = eng.ForwardConnector(context.Background(), c.ID, "b1", "branch done")
		require.NoError(t, err)
	}
	for _, c := range listConnectors(t, db, procID) {
		assert.True(t, c.Completed)
		require.NotNil(t, c.CompletedAt)
	}

	// 全部分支完成后末步可以完结
	assert.True(t, res.Flags.IsForwardable)
	res, err = eng.Forward(context.Background(), procID, "h1", ForwardOptions{})
	require.NoError(t, err)
	assert.True(t, res.Process.Completed)
}

// TestForwardConnectorQuorum 测试分支步骤的签署门槛独立计算
func TestForwardConnectorQuorum(t *testing.T) {
	eng, db, procID, branchWF := setupHeadProcess(t)
	_, err := eng.Publish(context.Background(), procID, "h1", []PublishTarget{
		{DepartmentName: "east", WorkflowID: branchWF},
	})
	require.NoError(t, err)
	conn := listConnectors(t, db, procID)[0]

	// 分支副本未签署,分支不可推进
	_, err = eng.ForwardConnector(context.Background(), conn.ID, "b1", "")
	require.Error(t, err)
	assert.Equal(t, ReasonNotForwardable, ReasonOf(err))

	// 非分支执行人不能操作
	_, err = eng.SignConnectorDocument(context.Background(), conn.ID, "d1", "h1")
	require.Error(t, err)
	assert.Equal(t, ReasonNotAssignee, ReasonOf(err))

	_, err = eng.SignConnectorDocument(context.Background(), conn.ID, "d1", "b1")
	require.NoError(t, err)
	_, err = eng.ForwardConnector(context.Background(), conn.ID, "b1", "")
	require.NoError(t, err)

	// 已完成的分支不能再推进
	_, err = eng.ForwardConnector(context.Background(), conn.ID, "b1", "")
	require.Error(t, err)
	assert.Equal(t, ReasonProcessCompleted, ReasonOf(err))
}

// TestRejectConnectorReopensBranch 测试总部驳回单条分支
func TestRejectConnectorReopensBranch(t *testing.T) {
	eng, db, procID, branchWF := setupHeadProcess(t)
	_, err := eng.Publish(context.Background(), procID, "h1", []PublishTarget{
		{DepartmentName: "east", WorkflowID: branchWF},
		{DepartmentName: "west", WorkflowID: branchWF},
	})
	require.NoError(t, err)

	connectors := listConnectors(t, db, procID)
	for _, c := range connectors {
		_, err = eng.SignConnectorDocument(context.Background(), c.ID, "d1", "b1")
		require.NoError(t, err)
		_, err = eng.ForwardConnector(context.Background(), c.ID, "b1", "")
		require.NoError(t, err)
	}

	// 总部驳回 east 分支,west 分支不受影响
	_, err = eng.RejectConnector(context.Background(), connectors[0].ID, "h1", 1, "figures do not add up")
	require.NoError(t, err)

	var east, west model.ConnectorModel
	require.NoError(t, db.Where("id = ?", connectors[0].ID).First(&east).Error)
	require.NoError(t, db.Where("id = ?", connectors[1].ID).First(&west).Error)
	assert.False(t, east.Completed)
	assert.Nil(t, east.CompletedAt)
	assert.Equal(t, 1, east.CurrentStepNumber)
	assert.Equal(t, 0, east.LastStepDone)
	assert.True(t, west.Completed)

	var hist []model.StateHistoryModel
	require.NoError(t, db.Where("process_id = ? AND action = ?", procID, model.HistoryActionHeadReject).Find(&hist).Error)
	assert.Len(t, hist, 1)
}

// TestRejectDocumentInConnector 测试分支范围内的文档驳回
func TestRejectDocumentInConnector(t *testing.T) {
	eng, db, procID, branchWF := setupHeadProcess(t)
	_, err := eng.Publish(context.Background(), procID, "h1", []PublishTarget{
		{DepartmentName: "east", WorkflowID: branchWF},
	})
	require.NoError(t, err)
	conn := listConnectors(t, db, procID)[0]

	_, err = eng.RejectConnectorDocument(context.Background(), conn.ID, "d1", "b1", "blurry")
	require.NoError(t, err)

	var doc model.DocumentEntryModel
	require.NoError(t, db.Where("process_id = ? AND connector_id = ? AND document_id = ?",
		procID, conn.ID, "d1").First(&doc).Error)
	require.NotNil(t, doc.Rejection)
	assert.Equal(t, "b1", doc.Rejection.ActorUser)

	// 主干的同名文档不受分支驳回影响
	trunk := loadDoc(t, db, procID, "d1")
	assert.Nil(t, trunk.Rejection)
}
