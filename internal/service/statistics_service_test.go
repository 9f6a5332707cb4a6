package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/database"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedStatProcess(t *testing.T, db *gorm.DB, id, workflowID, state string, completedAt *time.Time) {
	t.Helper()
	now := time.Now()
	proc := &model.ProcessModel{
		ID:   id,
		Name: "proc-" + id,
		WorkflowSnapshot: model.StepList{
			{StepNumber: 1, WorkKind: model.WorkKindCustom, Assignees: []model.ActorRef{{UserID: "u1"}}},
		},
		WorkflowID:        workflowID,
		State:             state,
		CurrentStepNumber: 1,
		Completed:         completedAt != nil,
		CompletedAt:       completedAt,
		DocumentsPath:     "/docs/" + id,
		SkippedSteps:      model.IntSet{},
		Version:           1,
		CreatedAt:         now.Add(-time.Hour),
		UpdatedAt:         now,
	}
	require.NoError(t, db.Create(proc).Error)
}

// TestStatisticsByState 测试按状态统计流程数量
func TestStatisticsByState(t *testing.T) {
	db := newTestDB(t)
	svc := NewStatisticsService(db)

	seedStatProcess(t, db, "p1", "wf-1", model.ProcessStateInProgress, nil)
	seedStatProcess(t, db, "p2", "wf-1", model.ProcessStateInProgress, nil)
	done := time.Now()
	seedStatProcess(t, db, "p3", "wf-2", model.ProcessStateCompleted, &done)

	stats, err := svc.GetProcessStatisticsByState()
	require.NoError(t, err)

	byState := map[string]int64{}
	for _, s := range stats {
		byState[s.State] = s.Count
	}
	assert.EqualValues(t, 2, byState[model.ProcessStateInProgress])
	assert.EqualValues(t, 1, byState[model.ProcessStateCompleted])
}

// TestStatisticsByWorkflow 测试按工作流统计,名称缺失时回退为 unknown
func TestStatisticsByWorkflow(t *testing.T) {
	db := newTestDB(t)
	svc := NewStatisticsService(db)

	now := time.Now()
	require.NoError(t, db.Create(&model.WorkflowModel{
		ID: "wf-1", Name: "purchase", Version: 1,
		Steps:     model.StepList{{StepNumber: 1, WorkKind: model.WorkKindSign, Assignees: []model.ActorRef{{UserID: "u1"}}}},
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	seedStatProcess(t, db, "p1", "wf-1", model.ProcessStateInProgress, nil)
	seedStatProcess(t, db, "p2", "wf-1", model.ProcessStateInProgress, nil)
	seedStatProcess(t, db, "p3", "wf-gone", model.ProcessStateInProgress, nil)

	stats, err := svc.GetProcessStatisticsByWorkflow()
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byID := map[string]*ProcessStatisticsByWorkflow{}
	for _, s := range stats {
		byID[s.WorkflowID] = s
	}
	assert.Equal(t, "purchase", byID["wf-1"].WorkflowName)
	assert.EqualValues(t, 2, byID["wf-1"].Count)
	assert.Equal(t, "unknown", byID["wf-gone"].WorkflowName)
}

// TestCompletionStatistics 测试完结率与退回次数统计
func TestCompletionStatistics(t *testing.T) {
	db := newTestDB(t)
	svc := NewStatisticsService(db)

	done := time.Now()
	seedStatProcess(t, db, "p1", "wf-1", model.ProcessStateCompleted, &done)
	seedStatProcess(t, db, "p2", "wf-1", model.ProcessStateInProgress, nil)
	seedStatProcess(t, db, "p3", "wf-1", model.ProcessStateInProgress, nil)
	seedStatProcess(t, db, "p4", "wf-1", model.ProcessStateInProgress, nil)

	// 退回历史:普通退回与总点驳回各一次,前进不计
	now := time.Now()
	for i, action := range []string{model.HistoryActionReject, model.HistoryActionHeadReject, model.HistoryActionForward} {
		require.NoError(t, db.Create(&model.StateHistoryModel{
			ID: "h" + string(rune('1'+i)), ProcessID: "p2", Action: action,
			FromStep: 2, ToStep: 1, Operator: "u1", CreatedAt: now,
		}).Error)
	}

	stats, err := svc.GetCompletionStatistics()
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalProcesses)
	assert.EqualValues(t, 1, stats.CompletedCount)
	assert.EqualValues(t, 2, stats.RevertCount)
	assert.InDelta(t, 0.25, stats.CompletionRate, 1e-9)
	assert.Greater(t, stats.AverageCompletionTime, 0.0)
}

// TestOverdueStatistics 测试超时步骤统计
func TestOverdueStatistics(t *testing.T) {
	db := newTestDB(t)
	svc := NewStatisticsService(db)

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	for _, inst := range []*model.StepInstanceModel{
		{ID: "si1", ProcessID: "p1", StepNumber: 1, AssigneeID: "u1", Status: model.StepInstanceStatusPending, Deadline: &past, OverdueNotified: true, CreatedVia: model.StepInstanceViaInitiation, CreatedAt: now, UpdatedAt: now},
		{ID: "si2", ProcessID: "p1", StepNumber: 1, AssigneeID: "u1", Status: model.StepInstanceStatusInProgress, Deadline: &past, CreatedVia: model.StepInstanceViaInitiation, CreatedAt: now, UpdatedAt: now},
		{ID: "si3", ProcessID: "p1", StepNumber: 1, AssigneeID: "u2", Status: model.StepInstanceStatusPending, Deadline: &future, CreatedVia: model.StepInstanceViaInitiation, CreatedAt: now, UpdatedAt: now},
		{ID: "si4", ProcessID: "p1", StepNumber: 1, AssigneeID: "u2", Status: model.StepInstanceStatusCompleted, Deadline: &past, CreatedVia: model.StepInstanceViaInitiation, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, db.Create(inst).Error)
	}

	stats, err := svc.GetOverdueStatistics()
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.OverdueSteps)
	assert.EqualValues(t, 1, stats.NotifiedSteps)
	require.Len(t, stats.OverdueByActor, 1)
	assert.Equal(t, "u1", stats.OverdueByActor[0].ActorID)
	assert.EqualValues(t, 2, stats.OverdueByActor[0].Count)
}
