package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxNameLength = 255
	maxIDLength   = 64
)

// processIDPattern 流程 ID 只允许字母、数字、连字符和下划线
var processIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// injectionPatterns 常见的 XSS、SQL 注入片段，全部小写
var injectionPatterns = []string{
	"<script",
	"</script>",
	"<iframe",
	"<img",
	"<svg",
	"javascript:",
	"onerror=",
	"onload=",
	"';",
	"'; --",
	"drop table",
	"delete from",
	"insert into",
	"update set",
	"union select",
}

// ValidationError 输入校验错误,Code 供接口层做错误码映射
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrEmptyName       = &ValidationError{Code: "EMPTY_NAME", Message: "name cannot be empty"}
	ErrNameTooLong     = &ValidationError{Code: "NAME_TOO_LONG", Message: "name exceeds maximum length"}
	ErrDangerousChars  = &ValidationError{Code: "DANGEROUS_CHARS", Message: "name contains dangerous characters"}
	ErrEmptyID         = &ValidationError{Code: "EMPTY_ID", Message: "id cannot be empty"}
	ErrInvalidIDFormat = &ValidationError{Code: "INVALID_ID_FORMAT", Message: "id contains invalid characters"}
	ErrIDTooLong       = &ValidationError{Code: "ID_TOO_LONG", Message: "id exceeds maximum length"}
	ErrEmptyString     = &ValidationError{Code: "EMPTY_STRING", Message: "string cannot be empty"}
	ErrStringTooLong   = &ValidationError{Code: "STRING_TOO_LONG", Message: "string exceeds maximum length"}
)

// ValidateWorkflowName 校验工作流名称:非空、不超长、不含注入片段
func ValidateWorkflowName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return ErrEmptyName
	case len(trimmed) > maxNameLength:
		return ErrNameTooLong
	case containsInjection(trimmed):
		return ErrDangerousChars
	}
	return nil
}

// ValidateProcessID 校验流程 ID 格式
func ValidateProcessID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if !processIDPattern.MatchString(id) {
		return ErrInvalidIDFormat
	}
	if len(id) > maxIDLength {
		return ErrIDTooLong
	}
	return nil
}

// ValidateWorkflowID 工作流 ID 与流程 ID 规则一致
func ValidateWorkflowID(id string) error {
	return ValidateProcessID(id)
}

// SanitizeString HTML 转义并剔除控制字符,换行和制表符保留
func SanitizeString(input string) string {
	escaped := html.EscapeString(input)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, escaped)
}

// TrimAndValidate 去除首尾空白、限长并清理后返回可入库的字符串
func TrimAndValidate(s string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", ErrEmptyString
	}
	if maxLen > 0 && len(trimmed) > maxLen {
		return "", ErrStringTooLong
	}
	return SanitizeString(trimmed), nil
}

func containsInjection(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range injectionPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
