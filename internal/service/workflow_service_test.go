package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/repository"
)

func signSteps() []model.Step {
	return []model.Step{
		{StepNumber: 1, StepName: "审批", WorkKind: model.WorkKindSign, Assignees: []model.ActorRef{{UserID: "u1"}}},
	}
}

// TestWorkflowServiceCreate 测试工作流创建与重名保护
func TestWorkflowServiceCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewWorkflowService(repository.NewWorkflowRepository(db), nil)
	ctx := context.WithValue(context.Background(), "user_id", "admin")

	created, err := svc.Create(ctx, &CreateWorkflowRequest{Name: "purchase", Steps: signSteps()})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, "admin", created.CreatedBy)

	// 同名工作流只能走新版本
	_, err = svc.Create(ctx, &CreateWorkflowRequest{Name: "purchase", Steps: signSteps()})
	assert.Error(t, err)
}

// TestWorkflowServiceNewVersion 测试新版本递增且旧版本保留
func TestWorkflowServiceNewVersion(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewWorkflowRepository(db)
	svc := NewWorkflowService(repo, nil)
	ctx := context.Background()

	v1, err := svc.Create(ctx, &CreateWorkflowRequest{Name: "purchase", Steps: signSteps()})
	require.NoError(t, err)

	v2, err := svc.NewVersion(ctx, &CreateWorkflowRequest{Name: "purchase", Steps: signSteps()})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.NotEqual(t, v1.ID, v2.ID)

	old, err := svc.Get(v1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, old.Version)

	latest, err := svc.GetLatestByName("purchase")
	require.NoError(t, err)
	assert.Equal(t, v2.ID, latest.ID)

	_, err = svc.NewVersion(ctx, &CreateWorkflowRequest{Name: "missing", Steps: signSteps()})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestWorkflowServiceValidation 测试非法定义被拒绝
func TestWorkflowServiceValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewWorkflowService(repository.NewWorkflowRepository(db), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateWorkflowRequest{Name: "", Steps: signSteps()})
	assert.Error(t, err)

	// 步骤号必须从 1 连续编号
	bad := []model.Step{
		{StepNumber: 2, WorkKind: model.WorkKindSign, Assignees: []model.ActorRef{{UserID: "u1"}}},
	}
	_, err = svc.Create(ctx, &CreateWorkflowRequest{Name: "gapped", Steps: bad})
	assert.Error(t, err)

	_, err = svc.Create(ctx, &CreateWorkflowRequest{Name: "<script>", Steps: signSteps()})
	assert.Error(t, err)
}

// TestWorkflowServiceDelete 测试删除工作流
func TestWorkflowServiceDelete(t *testing.T) {
	db := newTestDB(t)
	svc := NewWorkflowService(repository.NewWorkflowRepository(db), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateWorkflowRequest{Name: "short-lived", Steps: signSteps()})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID, "admin"))
	_, err = svc.Get(created.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
