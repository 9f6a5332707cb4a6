package repository

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

func seedProcess(t *testing.T, db *gorm.DB, id, name, state string, completed bool, initiator string) *model.ProcessModel {
	t.Helper()
	now := time.Now()
	proc := &model.ProcessModel{
		ID:   id,
		Name: name,
		WorkflowSnapshot: model.StepList{
			{StepNumber: 1, WorkKind: model.WorkKindCustom, Assignees: []model.ActorRef{{UserID: "u1"}}},
		},
		WorkflowID:        "wf-1",
		State:             state,
		CurrentStepNumber: 1,
		Completed:         completed,
		DocumentsPath:     "/docs/" + id,
		InitiatorID:       initiator,
		SkippedSteps:      model.IntSet{},
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, db.Create(proc).Error)
	return proc
}

// TestProcessRepositoryFilter 测试过滤器查询
func TestProcessRepositoryFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewProcessRepository(db)

	seedProcess(t, db, "p1", "alpha", model.ProcessStateInProgress, false, "init-1")
	seedProcess(t, db, "p2", "beta", model.ProcessStateCompleted, true, "init-1")
	seedProcess(t, db, "p3", "gamma", model.ProcessStateInProgress, false, "init-2")

	state := model.ProcessStateInProgress
	got, err := repo.FindByFilter(&ProcessFilter{State: &state})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	initiator := "init-1"
	completed := true
	got, err = repo.FindByFilter(&ProcessFilter{InitiatorID: &initiator, Completed: &completed})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)

	// 无过滤条件返回全部
	got, err = repo.FindByFilter(nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

// TestProcessRepositorySorting 测试排序参数
func TestProcessRepositorySorting(t *testing.T) {
	db := newTestDB(t)
	repo := NewProcessRepository(db)

	seedProcess(t, db, "p1", "charlie", model.ProcessStateInProgress, false, "")
	seedProcess(t, db, "p2", "alpha", model.ProcessStateInProgress, false, "")
	seedProcess(t, db, "p3", "bravo", model.ProcessStateInProgress, false, "")

	got, err := repo.FindByFilter(&ProcessFilter{SortBy: "name", SortOrder: "ASC"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "alpha", got[0].Name)
	assert.Equal(t, "charlie", got[2].Name)
}

// TestProcessRepositoryPendingForUser 测试待办流程查询
func TestProcessRepositoryPendingForUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewProcessRepository(db)

	active := seedProcess(t, db, "p1", "alpha", model.ProcessStateInProgress, false, "")
	done := seedProcess(t, db, "p2", "beta", model.ProcessStateCompleted, true, "")
	now := time.Now()
	for i, proc := range []*model.ProcessModel{active, done} {
		require.NoError(t, db.Create(&model.StepInstanceModel{
			ID: "si-" + proc.ID, ProcessID: proc.ID, StepNumber: 1, AssigneeID: "u1",
			Status: model.StepInstanceStatusPending, CreatedVia: model.StepInstanceViaInitiation,
			CreatedAt: now.Add(time.Duration(i) * time.Second), UpdatedAt: now,
		}).Error)
	}
	// 作废实例不产生待办
	require.NoError(t, db.Create(&model.StepInstanceModel{
		ID: "si-superseded", ProcessID: active.ID, StepNumber: 1, AssigneeID: "u2",
		Status: model.StepInstanceStatusSuperseded, CreatedVia: model.StepInstanceViaInitiation,
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	got, err := repo.FindPendingForUser("u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)

	got, err = repo.FindPendingForUser("u2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestProcessRepositoryArchive 测试只归档已完结流程
func TestProcessRepositoryArchive(t *testing.T) {
	db := newTestDB(t)
	repo := NewProcessRepository(db)

	seedProcess(t, db, "p1", "alpha", model.ProcessStateInProgress, false, "")
	seedProcess(t, db, "p2", "beta", model.ProcessStateCompleted, true, "")

	require.NoError(t, repo.Archive("p1"))
	require.NoError(t, repo.Archive("p2"))

	running, err := repo.FindByID("p1")
	require.NoError(t, err)
	assert.False(t, running.Archived)

	finished, err := repo.FindByID("p2")
	require.NoError(t, err)
	assert.True(t, finished.Archived)
}

// TestProcessRepositoryCountByState 测试按状态统计
func TestProcessRepositoryCountByState(t *testing.T) {
	db := newTestDB(t)
	repo := NewProcessRepository(db)

	seedProcess(t, db, "p1", "alpha", model.ProcessStateInProgress, false, "")
	seedProcess(t, db, "p2", "beta", model.ProcessStateInProgress, false, "")
	seedProcess(t, db, "p3", "gamma", model.ProcessStateCompleted, true, "")

	counts, err := repo.CountByState()
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[model.ProcessStateInProgress])
	assert.EqualValues(t, 1, counts[model.ProcessStateCompleted])
}

// TestWorkflowRepositoryVersions 测试工作流按名称取最新版本
func TestWorkflowRepositoryVersions(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkflowRepository(db)

	steps := model.StepList{{StepNumber: 1, WorkKind: model.WorkKindSign, Assignees: []model.ActorRef{{UserID: "u1"}}}}
	now := time.Now()
	for v := 1; v <= 3; v++ {
		require.NoError(t, repo.Save(&model.WorkflowModel{
			ID: "wf-" + string(rune('0'+v)), Name: "purchase", Version: v, Steps: steps,
			CreatedAt: now, UpdatedAt: now,
		}))
	}

	latest, err := repo.FindByName("purchase")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)

	_, err = repo.FindByName("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestNotificationRepositoryDismiss 测试通知消除的归属校验
func TestNotificationRepositoryDismiss(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)

	now := time.Now()
	for _, n := range []*model.NotificationModel{
		{ID: "n1", Kind: model.NotificationProcessForwarded, RecipientID: "u1", ProcessID: "p1", Status: model.NotificationStatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: "n2", Kind: model.NotificationQuery, RecipientID: "u1", ProcessID: "p1", Status: model.NotificationStatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: "n3", Kind: model.NotificationQuery, RecipientID: "u2", ProcessID: "p1", Status: model.NotificationStatusActive, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, db.Create(n).Error)
	}

	count, err := repo.CountActive("u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// 只能消除发给自己的通知
	require.NoError(t, repo.Dismiss("n3", "u1"))
	other, err := repo.FindByID("n3")
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusActive, other.Status)

	require.NoError(t, repo.DismissAll("u1"))
	count, err = repo.CountActive("u1")
	require.NoError(t, err)
	assert.Zero(t, count)

	active, err := repo.FindActiveForUser("u2")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

// TestNotificationRepositoryClaim 测试通知认领的归属与状态校验
func TestNotificationRepositoryClaim(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)

	now := time.Now()
	for _, n := range []*model.NotificationModel{
		{ID: "n1", Kind: model.NotificationProcessForwarded, RecipientID: "u1", ProcessID: "p1", Status: model.NotificationStatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: "n2", Kind: model.NotificationProcessForwarded, RecipientID: "u2", ProcessID: "p1", Status: model.NotificationStatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: "n3", Kind: model.NotificationQuery, RecipientID: "u1", ProcessID: "p1", Status: model.NotificationStatusDismissed, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, db.Create(n).Error)
	}

	require.NoError(t, repo.Claim("n1", "u1"))
	claimed, err := repo.FindByID("n1")
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusClaimed, claimed.Status)

	// 只能认领发给自己的通知
	require.NoError(t, repo.Claim("n2", "u1"))
	other, err := repo.FindByID("n2")
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusActive, other.Status)

	// 已消除的通知不会被翻回
	require.NoError(t, repo.Claim("n3", "u1"))
	dismissed, err := repo.FindByID("n3")
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusDismissed, dismissed.Status)
}

// TestStepInstanceRepositoryOverdue 测试超时实例查询
func TestStepInstanceRepositoryOverdue(t *testing.T) {
	db := newTestDB(t)
	repo := NewStepInstanceRepository(db)

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	for _, inst := range []*model.StepInstanceModel{
		{ID: "si1", ProcessID: "p1", StepNumber: 1, AssigneeID: "u1", Status: model.StepInstanceStatusPending, Deadline: &past, CreatedVia: model.StepInstanceViaInitiation, CreatedAt: now, UpdatedAt: now},
		{ID: "si2", ProcessID: "p1", StepNumber: 1, AssigneeID: "u2", Status: model.StepInstanceStatusPending, Deadline: &future, CreatedVia: model.StepInstanceViaInitiation, CreatedAt: now, UpdatedAt: now},
		{ID: "si3", ProcessID: "p1", StepNumber: 1, AssigneeID: "u3", Status: model.StepInstanceStatusCompleted, Deadline: &past, CreatedVia: model.StepInstanceViaInitiation, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, db.Create(inst).Error)
	}

	overdue, err := repo.FindOverdue(now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "si1", overdue[0].ID)
}

// TestQueryRepositoryApprovals 测试回转审批记录查询
func TestQueryRepositoryApprovals(t *testing.T) {
	db := newTestDB(t)
	repo := NewQueryRepository(db)

	now := time.Now()
	require.NoError(t, db.Create(&model.QueryModel{
		ID: "q1", ProcessID: "p1", RaisedBy: "u1", Text: "redo", Status: model.QueryStatusRecirculationPending,
		RecirculationFromStep: 1, CreatedAt: now, UpdatedAt: now,
	}).Error)
	for i, approver := range []string{"a1", "a2"} {
		require.NoError(t, db.Create(&model.RecirculationApprovalModel{
			ID: "ra-" + approver, QueryID: "q1", ApproverID: approver,
			CreatedAt: now.Add(time.Duration(i) * time.Second), UpdatedAt: now,
		}).Error)
	}

	approvals, err := repo.FindRecirculationApprovals("q1")
	require.NoError(t, err)
	require.Len(t, approvals, 2)
	assert.Equal(t, "a1", approvals[0].ApproverID)

	pending, err := repo.FindPendingApprovals("a2")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "q1", pending[0].QueryID)
}
