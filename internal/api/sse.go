package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/auth"
)

// sseHeartbeatInterval 心跳间隔，保持代理与浏览器不断开长连接
const sseHeartbeatInterval = 30 * time.Second

// sseEvent 服务端推送事件
type sseEvent struct {
	Type      string `json:"type"`
	ProcessID string `json:"process_id"`
	UserID    string `json:"user_id,omitempty"`
	Time      int64  `json:"time"`
}

// SSEHandler 流程状态实时推送。EventSource 无法携带自定义请求头，
// 因此 token 通过 query 参数传入并在建立连接前校验。
func SSEHandler(validator *auth.KeycloakTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.Abort()
			Error(c, http.StatusUnauthorized, "missing token", "")
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.Abort()
			Error(c, http.StatusUnauthorized, "invalid token", "")
			return
		}

		processID := c.Param("id")
		if processID == "" {
			c.Abort()
			Error(c, http.StatusBadRequest, "process id required", "")
			return
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.Abort()
			Error(c, http.StatusInternalServerError, "streaming not supported", "")
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		// 禁用 Nginx 缓冲，否则事件会被攒批
		c.Header("X-Accel-Buffering", "no")

		if err := writeSSEEvent(c.Writer, sseEvent{
			Type:      "connected",
			ProcessID: processID,
			UserID:    claims.Sub,
			Time:      time.Now().Unix(),
		}); err != nil {
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(sseHeartbeatInterval)
		defer ticker.Stop()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				err := writeSSEEvent(c.Writer, sseEvent{
					Type:      "heartbeat",
					ProcessID: processID,
					Time:      now.Unix(),
				})
				if err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// writeSSEEvent 按 text/event-stream 格式写出一条事件
func writeSSEEvent(w io.Writer, ev sseEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
