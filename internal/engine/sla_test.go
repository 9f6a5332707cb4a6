package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// TestScanOverdueNotifiesOnce 测试超时实例至多通知一次
func TestScanOverdueNotifiesOnce(t *testing.T) {
	// 负期限使创建出的实例立即超时
	eng, db, _ := newTestEngine(t, WithStepDeadline(-time.Hour))
	wf := seedWorkflow(t, db, "sla", userStep(1, model.WorkKindCustom, "u1"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "sla-001", WorkflowID: wf.ID, DocumentsPath: "/docs", InitiatorID: "init-1",
	})
	require.NoError(t, err)
	procID := res.Process.ID

	count, err := eng.ScanOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// 执行人与发起人各收到一条超时事实
	assert.EqualValues(t, 2, countNotifications(t, db, procID, model.NotificationProcessOverdue))

	var inst model.StepInstanceModel
	require.NoError(t, db.Where("process_id = ?", procID).First(&inst).Error)
	assert.True(t, inst.OverdueNotified)

	// 再次扫描不重复发现
	count, err = eng.ScanOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.EqualValues(t, 2, countNotifications(t, db, procID, model.NotificationProcessOverdue))
}

// TestScanOverdueSkipsFutureDeadlines 测试未到期限的实例不触发
func TestScanOverdueSkipsFutureDeadlines(t *testing.T) {
	eng, db, _ := newTestEngine(t, WithStepDeadline(24*time.Hour))
	wf := seedWorkflow(t, db, "fresh", userStep(1, model.WorkKindCustom, "u1"))
	_, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "fresh-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
	})
	require.NoError(t, err)

	count, err := eng.ScanOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
