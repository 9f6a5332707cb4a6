package engine

import (
	"errors"
	"fmt"
)

// 错误分类
// PreconditionFailed: 状态/法定人数不满足,可恢复,向操作人解释原因
// Conflict: 并发认领/投票竞争失败,调用方刷新状态后重试
// NotFound: 流程/文档/质询引用失效,本次请求终止
// InvariantViolation: 内部不变式被破坏,必须记录,不允许静默忽略
var (
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrInvariantViolation = errors.New("invariant violation")
)

// 失败原因代码,随错误返回给调用层
const (
	ReasonAlreadySigned         = "AlreadySigned"
	ReasonAlreadyRejectedAtStep = "AlreadyRejectedAtStep"
	ReasonAlreadySignedByActor  = "AlreadySignedByActor"
	ReasonNothingToRevoke       = "NothingToRevoke"
	ReasonAlreadyPicked         = "AlreadyPicked"
	ReasonInvalidQueryState     = "InvalidQueryState"
	ReasonAlreadyResolved       = "AlreadyResolved"
	ReasonNotForwardable        = "NotForwardable"
	ReasonNotRevertable         = "NotRevertable"
	ReasonNotAssignee           = "NotAssignee"
	ReasonSelfApproval          = "SelfApproval"
	ReasonSkipBeyondLimit       = "SkipBeyondLimit"
	ReasonBranchIncomplete      = "BranchIncomplete"
	ReasonProcessCompleted      = "ProcessCompleted"
	ReasonStepFrozen            = "StepFrozen"
	ReasonNotApprover           = "NotApprover"
)

// Error 引擎错误
// Kind 标识错误分类,Reason 是机器可读的失败原因,Message 是面向操作人的解释
type Error struct {
	Kind    error
	Reason  string
	Message string
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return e.Message
}

// Unwrap 支持 errors.Is 按分类匹配
func (e *Error) Unwrap() error {
	return e.Kind
}

// failed 构造 PreconditionFailed 错误
func failed(reason, format string, args ...interface{}) error {
	return &Error{Kind: ErrPreconditionFailed, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// conflict 构造 Conflict 错误
func conflict(reason, format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// notFound 构造 NotFound 错误
func notFound(format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// invariant 构造 InvariantViolation 错误
// 该类错误意味着引擎自身存在缺陷,调用层必须记录日志并中断
func invariant(format string, args ...interface{}) error {
	return &Error{Kind: ErrInvariantViolation, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf 提取错误的失败原因代码,非引擎错误返回空串
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
