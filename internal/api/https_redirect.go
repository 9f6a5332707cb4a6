package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HTTPSRedirectMiddleware HTTPS 重定向中间件
// enabled 为 false 时直接放行,生产环境在路由装配处开启
func HTTPSRedirectMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || isSecureRequest(c) {
			c.Next()
			return
		}

		host := c.Request.Host
		if host == "" {
			host = "localhost"
		}
		c.Redirect(http.StatusMovedPermanently, "https://"+host+c.Request.RequestURI)
		c.Abort()
	}
}

// isSecureRequest 判断请求是否经由 HTTPS 到达
// 反向代理场景靠 X-Forwarded-Proto / X-Forwarded-SSL 判断
func isSecureRequest(c *gin.Context) bool {
	if strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		return true
	}
	if c.GetHeader("X-Forwarded-SSL") == "on" {
		return true
	}
	if c.Request.URL.Scheme == "https" {
		return true
	}
	return c.Request.TLS != nil
}
