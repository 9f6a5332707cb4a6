package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/engine"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// EngineError 把引擎错误映射为 HTTP 响应
// PreconditionFailed→422, Conflict→409, NotFound→404, InvariantViolation→500
func EngineError(c *gin.Context, err error) {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		switch {
		case errors.Is(err, engine.ErrPreconditionFailed):
			Error(c, http.StatusUnprocessableEntity, engErr.Reason, reasonDetail(c, engErr))
		case errors.Is(err, engine.ErrConflict):
			Error(c, http.StatusConflict, engErr.Reason, reasonDetail(c, engErr))
		case errors.Is(err, engine.ErrNotFound):
			Error(c, http.StatusNotFound, "not found", engErr.Message)
		default:
			logrus.WithError(err).Error("engine invariant violation")
			Error(c, http.StatusInternalServerError, "internal error", engErr.Message)
		}
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		Error(c, http.StatusNotFound, "not found", err.Error())
		return
	}
	Error(c, http.StatusInternalServerError, "internal error", err.Error())
}

// reasonDetail 失败原因有翻译时使用本地化文案,否则用引擎原始消息
func reasonDetail(c *gin.Context, engErr *engine.Error) string {
	if msg := T(c, engErr.Reason); msg != engErr.Reason {
		return msg
	}
	return engErr.Message
}

