package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestValidateWorkflowName 测试工作流名称验证
func TestValidateWorkflowName(t *testing.T) {
	assert.NoError(t, ValidateWorkflowName("采购审批流程"))
	assert.NoError(t, ValidateWorkflowName("purchase-approval-v2"))

	assert.Equal(t, ErrEmptyName, ValidateWorkflowName("   "))
	assert.Equal(t, ErrNameTooLong, ValidateWorkflowName(strings.Repeat("a", 256)))
	assert.Equal(t, ErrDangerousChars, ValidateWorkflowName("<script>alert(1)</script>"))
	assert.Equal(t, ErrDangerousChars, ValidateWorkflowName("flow'; DROP TABLE workflows"))
}

// TestValidateProcessID 测试流程 ID 格式验证
func TestValidateProcessID(t *testing.T) {
	assert.NoError(t, ValidateProcessID("550e8400-e29b-41d4-a716-446655440000"))
	assert.NoError(t, ValidateProcessID("proc_001"))

	assert.Equal(t, ErrEmptyID, ValidateProcessID(""))
	assert.Equal(t, ErrInvalidIDFormat, ValidateProcessID("id with spaces"))
	assert.Equal(t, ErrInvalidIDFormat, ValidateProcessID("id;drop"))
	assert.Equal(t, ErrIDTooLong, ValidateProcessID(strings.Repeat("a", 65)))
}

// TestSanitizeString 测试字符串清理
func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", SanitizeString("<b>bold</b>"))
	// 控制字符被移除,换行和制表符保留
	assert.Equal(t, "a\nb\tc", SanitizeString("a\nb\tc\x00\x07"))
}

// TestTrimAndValidate 测试清理并验证
func TestTrimAndValidate(t *testing.T) {
	got, err := TrimAndValidate("  remarks  ", 32)
	assert.NoError(t, err)
	assert.Equal(t, "remarks", got)

	_, err = TrimAndValidate("   ", 32)
	assert.Equal(t, ErrEmptyString, err)

	_, err = TrimAndValidate(strings.Repeat("a", 33), 32)
	assert.Equal(t, ErrStringTooLong, err)
}
