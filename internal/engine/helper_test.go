package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/database"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// newTestDB 创建内存数据库并完成迁移
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库只允许单连接,避免连接池切换导致表丢失
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

// captureEmitter 收集引擎投递的通知事实
type captureEmitter struct {
	facts []Fact
}

func (e *captureEmitter) Dispatch(facts []Fact) {
	e.facts = append(e.facts, facts...)
}

// newTestEngine 创建测试引擎
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *gorm.DB, *captureEmitter) {
	t.Helper()
	db := newTestDB(t)
	emitter := &captureEmitter{}
	return New(db, emitter, opts...), db, emitter
}

// userStep 构造直接指定用户执行人的步骤
func userStep(n int, kind model.WorkKind, users ...string) model.Step {
	step := model.Step{
		StepNumber: n,
		StepName:   "step",
		WorkKind:   kind,
	}
	for _, u := range users {
		step.Assignees = append(step.Assignees, model.ActorRef{UserID: u})
	}
	return step
}

// seedWorkflow 写入工作流定义
func seedWorkflow(t *testing.T, db *gorm.DB, name string, steps ...model.Step) *model.WorkflowModel {
	t.Helper()
	now := time.Now()
	wf := &model.WorkflowModel{
		ID:        "wf-" + name,
		Name:      name,
		Version:   1,
		Steps:     model.StepList(steps),
		CreatedBy: "tester",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, wf.Validate())
	require.NoError(t, db.Create(wf).Error)
	return wf
}

// loadDoc 读取流程主干文档条目
func loadDoc(t *testing.T, db *gorm.DB, processID, documentID string) *model.DocumentEntryModel {
	t.Helper()
	var doc model.DocumentEntryModel
	require.NoError(t, db.Where("process_id = ? AND connector_id = ? AND document_id = ?",
		processID, "", documentID).First(&doc).Error)
	return &doc
}

// countNotifications 统计某类通知事实
func countNotifications(t *testing.T, db *gorm.DB, processID string, kind model.NotificationKind) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.NotificationModel{}).
		Where("process_id = ? AND kind = ?", processID, kind).Count(&n).Error)
	return n
}
