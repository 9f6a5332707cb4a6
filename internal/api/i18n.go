package api

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// 引擎失败原因的本地化消息目录
// 键是引擎返回的 Reason 代码,找不到翻译时回退英文再回退键本身
var i18nCatalog = map[string]map[string]string{
	"en": {
		"NotForwardable":        "the current step quorum is not complete",
		"NotRevertable":         "the process cannot be reverted from here",
		"NotAssignee":           "you are not an assignee of the current step",
		"NotApprover":           "you are not an approver of this request",
		"AlreadySigned":         "you have already signed this document",
		"AlreadyRejectedAtStep": "this document was already rejected at the current step",
		"AlreadyPicked":         "another assignee has already claimed this step",
		"AlreadyResolved":       "this request was already resolved",
		"SelfApproval":          "the initiator cannot approve their own process",
		"SkipBeyondLimit":       "the target step is outside the allowed skip range",
		"BranchIncomplete":      "branch reviews are still in progress",
		"ProcessCompleted":      "the process is already completed",
		"StepFrozen":            "steps the process has reached cannot be changed",
		"error.not_found":       "resource not found",
		"error.unauthorized":    "unauthorized",
		"error.internal":        "internal server error",
	},
	"zh": {
		"NotForwardable":        "当前步骤的法定人数尚未达成",
		"NotRevertable":         "流程无法从当前位置回退",
		"NotAssignee":           "你不是当前步骤的执行人",
		"NotApprover":           "你不是该申请的审批人",
		"AlreadySigned":         "你已签署过该文档",
		"AlreadyRejectedAtStep": "该文档在当前步骤已被驳回",
		"AlreadyPicked":         "该步骤已被其他执行人认领",
		"AlreadyResolved":       "该申请已处理完毕",
		"SelfApproval":          "发起人不能审批自己的流程",
		"SkipBeyondLimit":       "目标步骤超出允许的跳转范围",
		"BranchIncomplete":      "分支审批尚未全部完成",
		"ProcessCompleted":      "流程已完结",
		"StepFrozen":            "流程已到达的步骤不可修改",
		"error.not_found":       "资源未找到",
		"error.unauthorized":    "未授权",
		"error.internal":        "服务器内部错误",
	},
}

// I18nMiddleware 语言协商中间件
// lang 查询参数优先,其次 Accept-Language 头,默认英文
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := "en"
		if q := c.Query("lang"); q != "" {
			lang = normalizeLanguage(q)
		} else if h := c.GetHeader("Accept-Language"); h != "" {
			lang = preferredLanguage(h)
		}
		c.Set("language", lang)
		c.Next()
	}
}

// GetLanguage 从上下文读取协商出的语言
func GetLanguage(c *gin.Context) string {
	if v, ok := c.Get("language"); ok {
		if lang, ok := v.(string); ok {
			return lang
		}
	}
	return "en"
}

// T 按请求语言翻译消息键
func T(c *gin.Context, key string) string {
	lang := GetLanguage(c)
	if msg, ok := i18nCatalog[lang][key]; ok {
		return msg
	}
	if msg, ok := i18nCatalog["en"][key]; ok {
		return msg
	}
	return key
}

// normalizeLanguage 把区域化代码折叠到目录支持的语言
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(lang)
	switch {
	case strings.HasPrefix(lang, "zh"):
		return "zh"
	case strings.HasPrefix(lang, "en"):
		return "en"
	}
	return lang
}

// preferredLanguage 解析 Accept-Language 的首选项
// 形如 "zh-CN,zh;q=0.9,en;q=0.8",质量因子忽略,取第一项
func preferredLanguage(header string) string {
	first := header
	if idx := strings.IndexByte(first, ','); idx != -1 {
		first = first[:idx]
	}
	if idx := strings.IndexByte(first, ';'); idx != -1 {
		first = first[:idx]
	}
	return normalizeLanguage(strings.TrimSpace(first))
}
