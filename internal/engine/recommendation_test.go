package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

func setupRecommendation(t *testing.T) (*Engine, *gorm.DB, string) {
	eng, db, _ := newTestEngine(t)
	wf := seedWorkflow(t, db, "advice", userStep(1, model.WorkKindCustom, "u1"))
	res, err := eng.Initiate(context.Background(), InitiateInput{
		Name: "advice-001", WorkflowID: wf.ID, DocumentsPath: "/docs",
	})
	require.NoError(t, err)
	return eng, db, res.Process.ID
}

// TestRecommendationLifecycle 测试征询意见的请求与答复
func TestRecommendationLifecycle(t *testing.T) {
	eng, db, procID := setupRecommendation(t)

	rec, err := eng.RequestRecommendation(context.Background(), procID, "", "u1", "expert-1", "is this vendor reliable")
	require.NoError(t, err)
	assert.Equal(t, model.RecommendationStatusPending, rec.Status)
	assert.EqualValues(t, 1, countNotifications(t, db, procID, model.NotificationRecommendationRequest))

	// 只有被征询人可以答复
	_, err = eng.RespondRecommendation(context.Background(), rec.ID, "u1", "no idea")
	require.Error(t, err)
	assert.Equal(t, ReasonNotAssignee, ReasonOf(err))

	responded, err := eng.RespondRecommendation(context.Background(), rec.ID, "expert-1", "worked with them before, reliable")
	require.NoError(t, err)
	assert.Equal(t, model.RecommendationStatusResponded, responded.Status)
	require.NotNil(t, responded.RespondedAt)

	// 已答复的征询不能重复答复
	_, err = eng.RespondRecommendation(context.Background(), rec.ID, "expert-1", "again")
	require.Error(t, err)
	assert.Equal(t, ReasonAlreadyResolved, ReasonOf(err))
}

// TestClarificationRoundTrip 测试征询的澄清问答
func TestClarificationRoundTrip(t *testing.T) {
	eng, db, procID := setupRecommendation(t)

	rec, err := eng.RequestRecommendation(context.Background(), procID, "", "u1", "expert-1", "review the figures")
	require.NoError(t, err)

	// 被征询人提出澄清,通知发给请求方
	clar, err := eng.RaiseClarification(context.Background(), rec.ID, "expert-1", "which fiscal year")
	require.NoError(t, err)
	assert.EqualValues(t, 1, countNotifications(t, db, procID, model.NotificationRecommendationClarifReq))

	answered, err := eng.AnswerClarification(context.Background(), clar.ID, "u1", "FY2025")
	require.NoError(t, err)
	assert.Equal(t, "FY2025", answered.Answer)

	_, err = eng.AnswerClarification(context.Background(), clar.ID, "u1", "again")
	require.Error(t, err)
	assert.Equal(t, ReasonAlreadyResolved, ReasonOf(err))
}
