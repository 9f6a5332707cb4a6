package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// TestSignDocumentAuthorization 测试文档操作的步骤授权
func TestSignDocumentAuthorization(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "docauth", userStep(1, model.WorkKindSign, "u1"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "docauth-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
		Documents: []DocumentInput{{DocumentID: "d1", CabinetNo: 1, WorkName: "contract"}},
	})
	require.NoError(t, err)
	procID := res.Process.ID

	_, err = eng.SignDocument(context.Background(), procID, "d1", "outsider", "")
	require.Error(t, err)
	assert.Equal(t, ReasonNotAssignee, ReasonOf(err))

	_, err = eng.SignDocument(context.Background(), procID, "missing", "u1", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// TestRejectDocumentBlocksStep 测试当前步骤驳回阻塞推进直到撤销
func TestRejectDocumentBlocksStep(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "docreject",
		userStep(1, model.WorkKindSign, "u1"),
		userStep(2, model.WorkKindCustom, "u2"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "docreject-001", WorkflowID: wf.ID, DocumentsPath: "/docs", InitiatorID: "init-1",
		Documents: []DocumentInput{
			{DocumentID: "d1", CabinetNo: 1, WorkName: "contract"},
			{DocumentID: "d2", CabinetNo: 2, WorkName: "invoice"},
		},
	})
	require.NoError(t, err)
	procID := res.Process.ID

	res, err = eng.RejectDocument(context.Background(), procID, "d2", "u1", "illegible scan")
	require.NoError(t, err)
	assert.False(t, res.Flags.IsForwardable)

	doc := loadDoc(t, db, procID, "d2")
	require.NotNil(t, doc.Rejection)
	assert.Equal(t, "u1", doc.Rejection.ActorUser)
	assert.Equal(t, 1, doc.Rejection.StepNumber)
	assert.Equal(t, "illegible scan", doc.Rejection.Reason)

	// 驳回的文档不能签署
	_, err = eng.SignDocument(context.Background(), procID, "d2", "u1", "")
	require.Error(t, err)
	assert.Equal(t, ReasonAlreadyRejectedAtStep, ReasonOf(err))

	// 发起人收到驳回通知
	assert.EqualValues(t, 1, countNotifications(t, db, procID, model.NotificationDocumentRejected))

	// 撤销驳回并补齐签署后恢复推进
	_, err = eng.RevokeRejection(context.Background(), procID, "d2", "u1")
	require.NoError(t, err)
	_, err = eng.SignDocument(context.Background(), procID, "d1", "u1", "")
	require.NoError(t, err)
	res, err = eng.SignDocument(context.Background(), procID, "d2", "u1", "")
	require.NoError(t, err)
	assert.True(t, res.Flags.IsForwardable)
}

// TestRejectDocumentRecordsActorRole 测试驳回记录带上操作人主角色
func TestRejectDocumentRecordsActorRole(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	require.NoError(t, db.Create(&model.UserRoleModel{
		ID: "ur-1", UserID: "u1", RoleID: "auditor", DepartmentID: "dep-a",
	}).Error)
	wf := seedWorkflow(t, db, "docrole", userStep(1, model.WorkKindSign, "u1"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "docrole-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
		Documents: []DocumentInput{{DocumentID: "d1", CabinetNo: 1, WorkName: "contract"}},
	})
	require.NoError(t, err)

	_, err = eng.RejectDocument(context.Background(), res.Process.ID, "d1", "u1", "outdated")
	require.NoError(t, err)
	doc := loadDoc(t, db, res.Process.ID, "d1")
	require.NotNil(t, doc.Rejection)
	assert.Equal(t, "auditor", doc.Rejection.ActorRole)
}

// TestUploadDocuments 测试追加文档并重算法定人数
func TestUploadDocuments(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "upload",
		userStep(1, model.WorkKindSign, "u1"),
	)
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "upload-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
		Documents: []DocumentInput{{DocumentID: "d1", CabinetNo: 1, WorkName: "contract"}},
	})
	require.NoError(t, err)
	procID := res.Process.ID

	res, err = eng.SignDocument(context.Background(), procID, "d1", "u1", "")
	require.NoError(t, err)
	assert.True(t, res.Flags.IsForwardable)

	// 追加新文档后法定人数按新文档集重算,推进门槛重新关闭
	res, err = eng.UploadDocuments(context.Background(), procID, "u1", []DocumentInput{
		{DocumentID: "d2", CabinetNo: 2, WorkName: "appendix"},
	})
	require.NoError(t, err)
	assert.False(t, res.Flags.IsForwardable)

	doc := loadDoc(t, db, procID, "d2")
	assert.Equal(t, "u1", doc.UploadedBy)
	assert.Empty(t, doc.SignedBy)

	// 非执行人不能上传
	_, err = eng.UploadDocuments(context.Background(), procID, "outsider", []DocumentInput{
		{DocumentID: "d3", CabinetNo: 3, WorkName: "extra"},
	})
	require.Error(t, err)
	assert.Equal(t, ReasonNotAssignee, ReasonOf(err))
}

// TestDocumentMutationOnCompletedProcess 测试完结流程的台账冻结
func TestDocumentMutationOnCompletedProcess(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "frozen", userStep(1, model.WorkKindCustom, "u1"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "frozen-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
		Documents: []DocumentInput{{DocumentID: "d1", CabinetNo: 1, WorkName: "contract"}},
	})
	require.NoError(t, err)
	procID := res.Process.ID

	_, err = eng.Forward(context.Background(), procID, "u1", ForwardOptions{})
	require.NoError(t, err)

	_, err = eng.SignDocument(context.Background(), procID, "d1", "u1", "")
	require.Error(t, err)
	assert.Equal(t, ReasonProcessCompleted, ReasonOf(err))
}
