package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDMiddleware 请求 ID 中间件
// 沿用上游传入的 X-Request-ID,缺失时生成新 ID
// 同时把客户端信息放入 context 供审计日志使用
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Set("ip", c.ClientIP())
		c.Set("user_agent", c.Request.UserAgent())
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}
