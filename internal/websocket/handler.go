package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/auth"
)

var upgrader = gorillaWS.Upgrader{
	// 浏览器端 Origin 在网关层校验
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketHandler 升级连接并挂进 Hub。浏览器的 WebSocket API 不支持
// 自定义请求头,token 经 query 参数传入。
func WebSocketHandler(hub *Hub, validator *auth.KeycloakTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade 失败时响应已经写出,这里只记日志
			logrus.WithError(err).Warn("websocket upgrade failed")
			return
		}

		client := NewClient(uuid.New().String(), claims.Sub, hub, conn)
		hub.Register <- client

		go client.ReadPump()
		go client.WritePump()
	}
}
