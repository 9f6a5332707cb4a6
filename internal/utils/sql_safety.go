package utils

import (
	"errors"
	"regexp"
	"strings"
)

// 排序字段只允许字母、数字、下划线和表名限定点号
var sortFieldPattern = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

// 排序字段中作为完整单词出现即拒绝的 SQL 关键字
// 按单词边界匹配,created_at 里的 "AT" 不会误伤
var sqlKeywordPattern = regexp.MustCompile(`\b(SELECT|INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|EXEC|EXECUTE|UNION|SCRIPT|DECLARE|CAST|CONVERT|FROM|WHERE|ORDER|BY|GROUP|HAVING|JOIN|INNER|OUTER|LEFT|RIGHT|ON|AS|AND|OR|NOT|IN)\b`)

// ValidateSortField 验证排序字段,拒绝可注入的输入
func ValidateSortField(field string) error {
	if field == "" {
		return errors.New("sort field cannot be empty")
	}
	if !sortFieldPattern.MatchString(field) {
		return errors.New("invalid sort field format")
	}
	if sqlKeywordPattern.MatchString(strings.ToUpper(field)) {
		return errors.New("sort field contains SQL keyword")
	}
	return nil
}

// ValidateSortOrder 验证排序方向
func ValidateSortOrder(order string) error {
	switch strings.ToUpper(strings.TrimSpace(order)) {
	case "ASC", "DESC":
		return nil
	}
	return errors.New("sort order must be ASC or DESC")
}

var sortFieldStrip = regexp.MustCompile(`[^a-zA-Z0-9_.]`)

// SanitizeSortField 剥离排序字段中的非法字符
func SanitizeSortField(field string) string {
	return sortFieldStrip.ReplaceAllString(field, "")
}

// SanitizeSortOrder 规范化排序方向,无法识别时回退降序
func SanitizeSortOrder(order string) string {
	upper := strings.ToUpper(strings.TrimSpace(order))
	if upper == "ASC" || upper == "DESC" {
		return upper
	}
	return "DESC"
}
