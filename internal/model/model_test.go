package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWorkflowModelValidation 测试工作流模型验证
func TestWorkflowModelValidation(t *testing.T) {
	wf := &WorkflowModel{
		ID:      "wf-001",
		Name:    "采购审批",
		Version: 1,
		Steps: StepList{
			{StepNumber: 1, StepName: "初审", WorkKind: WorkKindSign, Assignees: []ActorRef{{UserID: "u1"}}},
			{StepNumber: 2, StepName: "签发", WorkKind: WorkKindSign, Assignees: []ActorRef{{UserID: "u2"}}},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	assert.NoError(t, wf.Validate())
	assert.Equal(t, "workflows", wf.TableName())

	// 步骤号必须从 1 连续编号
	wf.Steps[1].StepNumber = 3
	assert.Error(t, wf.Validate())
	wf.Steps[1].StepNumber = 2

	// 步骤必须有执行人
	wf.Steps[0].Assignees = nil
	assert.Error(t, wf.Validate())

	empty := &WorkflowModel{ID: "wf-002", Name: "empty"}
	assert.Error(t, empty.Validate())
}

// TestProcessModelPointerBounds 测试流程指针边界不变式
func TestProcessModelPointerBounds(t *testing.T) {
	pm := &ProcessModel{
		ID:   "p-001",
		Name: "purchase-001",
		WorkflowSnapshot: StepList{
			{StepNumber: 1, WorkKind: WorkKindSign, Assignees: []ActorRef{{UserID: "u1"}}},
			{StepNumber: 2, WorkKind: WorkKindSign, Assignees: []ActorRef{{UserID: "u2"}}},
		},
		State:             ProcessStateInProgress,
		CurrentStepNumber: 1,
		DocumentsPath:     "/docs",
	}
	require.NoError(t, pm.Validate())
	assert.Equal(t, "processes", pm.TableName())

	// 指针允许越过末步一格表示收尾
	pm.CurrentStepNumber = 3
	assert.NoError(t, pm.Validate())

	pm.CurrentStepNumber = 4
	assert.Error(t, pm.Validate())

	pm.CurrentStepNumber = 0
	assert.Error(t, pm.Validate())

	pm.CurrentStepNumber = 2
	pm.LastStepDone = 3
	assert.Error(t, pm.Validate())
}

// TestProcessModelStepLookup 测试快照步骤查找
func TestProcessModelStepLookup(t *testing.T) {
	pm := &ProcessModel{
		WorkflowSnapshot: StepList{
			{StepNumber: 1, StepName: "draft"},
			{StepNumber: 2, StepName: "review"},
		},
		CurrentStepNumber: 2,
	}
	require.NotNil(t, pm.CurrentStep())
	assert.Equal(t, "review", pm.CurrentStep().StepName)
	assert.Nil(t, pm.StepByNumber(5))
	assert.Equal(t, "review", pm.LastStep().StepName)
}

// TestDocumentEntryHelpers 测试文档条目辅助方法
func TestDocumentEntryHelpers(t *testing.T) {
	doc := &DocumentEntryModel{
		ID:         "entry-1",
		ProcessID:  "p-001",
		DocumentID: "d1",
		WorkName:   "contract",
		SignedBy:   StringSet{"u1"},
	}
	assert.NoError(t, doc.Validate())
	assert.True(t, doc.IsSignedBy("u1"))
	assert.False(t, doc.IsSignedBy("u2"))
	assert.False(t, doc.IsRejected())

	doc.Rejection = &Rejection{StepNumber: 2, ActorUser: "u2", Reason: "stale"}
	assert.True(t, doc.IsRejected())
	assert.True(t, doc.IsRejectedAt(2))
	assert.False(t, doc.IsRejectedAt(1))
}

// TestStringSetOperations 测试字符串集合操作
func TestStringSetOperations(t *testing.T) {
	s := StringSet{}
	s = s.Add("u1").Add("u2").Add("u1")
	assert.Len(t, s, 2)
	assert.True(t, s.Contains("u1"))

	s = s.Remove("u1")
	assert.False(t, s.Contains("u1"))
	assert.True(t, s.Contains("u2"))
	s = s.Remove("missing")
	assert.Len(t, s, 1)
}

// TestIntSetOperations 测试整数集合操作
func TestIntSetOperations(t *testing.T) {
	s := IntSet{}
	s = s.Add(2).Add(3).Add(2)
	assert.Len(t, s, 2)
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(4))
}

// TestJSONColumnRoundTrip 测试 jsonb 列的序列化与扫描
func TestJSONColumnRoundTrip(t *testing.T) {
	list := StepList{{StepNumber: 1, StepName: "draft", WorkKind: WorkKindUpload, Assignees: []ActorRef{{UserID: "u1"}}}}
	val, err := list.Value()
	require.NoError(t, err)

	var decoded StepList
	// SQLite 以 string 返回,PostgreSQL 以 []byte 返回,两者都要能扫描
	require.NoError(t, decoded.Scan(string(val.([]byte))))
	require.Len(t, decoded, 1)
	assert.Equal(t, WorkKindUpload, decoded[0].WorkKind)

	var decoded2 StepList
	require.NoError(t, decoded2.Scan(val))
	assert.Equal(t, decoded, decoded2)

	// 空值与 nil 不报错
	var empty Metadata
	assert.NoError(t, empty.Scan(nil))
	assert.NoError(t, empty.Scan(""))
}

// TestQueryModelValidation 测试质询模型验证与状态默认值
func TestQueryModelValidation(t *testing.T) {
	q := &QueryModel{ID: "q-1", ProcessID: "p-1", RaisedBy: "u1", Text: "why"}
	require.NoError(t, q.Validate())
	assert.Equal(t, QueryStatusOpen, q.Status)

	bad := &QueryModel{ID: "q-2", ProcessID: "p-1", RaisedBy: "u1"}
	assert.Error(t, bad.Validate())
}

// TestQueryDocumentValidation 测试替换型变更必须指明被替换文档
func TestQueryDocumentValidation(t *testing.T) {
	qd := &QueryDocumentModel{ID: "qd-1", QueryID: "q-1", DocumentID: "d2", IsReplacement: true}
	assert.Error(t, qd.Validate())

	qd.ReplacesDocumentID = "d1"
	assert.NoError(t, qd.Validate())
}

// TestConnectorValidation 测试连接器模型验证
func TestConnectorValidation(t *testing.T) {
	c := &ConnectorModel{ID: "c-1", ProcessID: "p-1", DepartmentName: "east", WorkflowID: "wf-1"}
	assert.NoError(t, c.Validate())
	assert.Equal(t, "process_connectors", c.TableName())

	c.DepartmentName = ""
	assert.Error(t, c.Validate())
}
