package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

func newEntry(docID string) *model.DocumentEntryModel {
	return &model.DocumentEntryModel{
		ID:         "entry-" + docID,
		ProcessID:  "p1",
		DocumentID: docID,
		WorkName:   "contract",
		SignedBy:   model.StringSet{},
	}
}

// TestSignEntry 测试签署台账操作
func TestSignEntry(t *testing.T) {
	doc := newEntry("d1")
	require.NoError(t, SignEntry(doc, "u1", 1))
	assert.True(t, doc.IsSignedBy("u1"))

	// 重复签署被拒绝
	err := SignEntry(doc, "u1", 1)
	require.Error(t, err)
	assert.Equal(t, ReasonAlreadySigned, ReasonOf(err))

	// 当前步骤已驳回的文档不能签署
	doc2 := newEntry("d2")
	require.NoError(t, RejectEntry(doc2, "u2", "", 1, "bad copy"))
	err = SignEntry(doc2, "u1", 1)
	require.Error(t, err)
	assert.Equal(t, ReasonAlreadyRejectedAtStep, ReasonOf(err))

	// 此前步骤遗留的驳回不阻止本步骤签署
	require.NoError(t, SignEntry(doc2, "u1", 2))
}

// TestRejectEntryExclusivity 测试同一步骤签署与驳回互斥
func TestRejectEntryExclusivity(t *testing.T) {
	doc := newEntry("d1")
	require.NoError(t, SignEntry(doc, "u1", 1))

	// 本人已签署,必须先撤销签名
	err := RejectEntry(doc, "u1", "reviewer", 1, "wrong version")
	require.Error(t, err)
	assert.Equal(t, ReasonAlreadySignedByActor, ReasonOf(err))

	require.NoError(t, RevokeSignEntry(doc, "u1"))
	require.NoError(t, RejectEntry(doc, "u1", "reviewer", 1, "wrong version"))
	require.NotNil(t, doc.Rejection)
	assert.Equal(t, "u1", doc.Rejection.ActorUser)
	assert.Equal(t, "reviewer", doc.Rejection.ActorRole)
	assert.Equal(t, 1, doc.Rejection.StepNumber)
}

// TestRevokeEntries 测试撤销签名和撤销驳回
func TestRevokeEntries(t *testing.T) {
	doc := newEntry("d1")

	// 没有签名可撤
	err := RevokeSignEntry(doc, "u1")
	require.Error(t, err)
	assert.Equal(t, ReasonNothingToRevoke, ReasonOf(err))

	require.NoError(t, RejectEntry(doc, "u1", "", 2, "typo"))

	// 其他人不能撤销驳回
	err = RevokeRejectEntry(doc, "u2", 2)
	require.Error(t, err)
	assert.Equal(t, ReasonNothingToRevoke, ReasonOf(err))

	// 换了步骤后本人也不能撤销
	err = RevokeRejectEntry(doc, "u1", 3)
	require.Error(t, err)
	assert.Equal(t, ReasonNothingToRevoke, ReasonOf(err))

	require.NoError(t, RevokeRejectEntry(doc, "u1", 2))
	assert.Nil(t, doc.Rejection)
}

// TestReplaceEntry 测试文档替换的签名携带语义
func TestReplaceEntry(t *testing.T) {
	doc := newEntry("d1")
	require.NoError(t, SignEntry(doc, "u1", 1))
	require.NoError(t, SignEntry(doc, "u2", 1))

	// 普通替换清空签名,新文档重新积累法定人数
	ReplaceEntry(doc, "d2", false)
	assert.Equal(t, "d2", doc.DocumentID)
	assert.Equal(t, "d1", doc.ReplacedFrom)
	assert.Empty(t, doc.SignedBy)
	assert.Nil(t, doc.Rejection)

	// 原位替换保留既有签名
	doc2 := newEntry("d3")
	require.NoError(t, SignEntry(doc2, "u1", 1))
	ReplaceEntry(doc2, "d4", true)
	assert.Equal(t, "d4", doc2.DocumentID)
	assert.True(t, doc2.IsSignedBy("u1"))
}
