package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一成功响应
// @Description 统一成功响应,code 恒为 0,data 携带业务数据
type Response struct {
	Code    int         `json:"code" example:"0"`
	Message string      `json:"message" example:"success"`
	Data    interface{} `json:"data"`
}

// ErrorResponse 统一错误响应
// @Description 统一错误响应,message 是机器可读原因,detail 面向操作人
type ErrorResponse struct {
	Code    int    `json:"code" example:"422"`
	Message string `json:"message" example:"NotForwardable"`
	Detail  string `json:"detail,omitempty" example:"step 2 quorum incomplete"`
}

// Success 写出成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 写出错误响应,code 不在 HTTP 状态码范围内时按 500 发送
func Error(c *gin.Context, code int, message string, detail string) {
	status := http.StatusInternalServerError
	if code >= 400 && code < 600 {
		status = code
	}
	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: message,
		Detail:  detail,
	})
}
