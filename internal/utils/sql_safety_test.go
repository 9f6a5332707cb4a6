package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestValidateSortField 测试排序字段白名单校验
func TestValidateSortField(t *testing.T) {
	assert.NoError(t, ValidateSortField("created_at"))
	assert.NoError(t, ValidateSortField("processes.updated_at"))

	assert.Error(t, ValidateSortField(""))
	assert.Error(t, ValidateSortField("created_at; DROP TABLE processes"))
	assert.Error(t, ValidateSortField("name DESC"))
	// 完整 SQL 关键字被拒绝
	assert.Error(t, ValidateSortField("select"))
}

// TestValidateSortOrder 测试排序方向校验
func TestValidateSortOrder(t *testing.T) {
	assert.NoError(t, ValidateSortOrder("asc"))
	assert.NoError(t, ValidateSortOrder(" DESC "))
	assert.Error(t, ValidateSortOrder("sideways"))
}

// TestSanitizeSortOrder 测试排序方向清理的默认值
func TestSanitizeSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", SanitizeSortOrder("asc"))
	assert.Equal(t, "DESC", SanitizeSortOrder("desc"))
	assert.Equal(t, "DESC", SanitizeSortOrder("anything else"))
}

// TestSanitizeSortField 测试排序字段清理
func TestSanitizeSortField(t *testing.T) {
	assert.Equal(t, "created_at", SanitizeSortField("created_at;--"))
	assert.Equal(t, "t.name", SanitizeSortField("t.name "))
}
