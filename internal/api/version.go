package api

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// VersionMiddleware API 版本中间件
// 版本取自 URL 路径 (/api/v1/...),显式的 API-Version 请求头优先
func VersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		version := versionFromPath(c.Request.URL.Path)
		if header := c.GetHeader("API-Version"); header != "" {
			version = header
		}
		c.Set("api_version", version)
		c.Header("X-API-Version", version)
		c.Next()
	}
}

// versionFromPath 从 /api/vN/ 前缀提取版本号,缺失时返回 v1
func versionFromPath(path string) string {
	const prefix = "/api/"
	if !strings.HasPrefix(path, prefix) {
		return "v1"
	}
	rest := path[len(prefix):]
	if idx := strings.IndexByte(rest, '/'); idx > 0 {
		rest = rest[:idx]
	}
	if strings.HasPrefix(rest, "v") && len(rest) > 1 {
		return rest
	}
	return "v1"
}

// GetAPIVersion 从上下文读取请求的 API 版本
func GetAPIVersion(c *gin.Context) string {
	if v, ok := c.Get("api_version"); ok {
		if version, ok := v.(string); ok {
			return version
		}
	}
	return "v1"
}
