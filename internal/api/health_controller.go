package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/auth"
)

// HealthController 健康检查控制器
// 聚合数据库和 OpenFGA 的联通性,任一依赖不可用时返回 503
type HealthController struct {
	db        *gorm.DB
	fgaClient *auth.OpenFGAClient
}

// NewHealthController 创建健康检查控制器
func NewHealthController(db *gorm.DB, fgaClient *auth.OpenFGAClient) *HealthController {
	return &HealthController{db: db, fgaClient: fgaClient}
}

// Check 健康检查
func (c *HealthController) Check(ctx *gin.Context) {
	checks := make(map[string]string)
	healthy := true

	record := func(name string, err error) {
		switch {
		case err != nil:
			healthy = false
			checks[name] = "unhealthy: " + err.Error()
		default:
			checks[name] = "healthy"
		}
	}

	if c.db != nil {
		record("database", c.pingDatabase(ctx.Request.Context()))
	} else {
		checks["database"] = "not configured"
	}
	if c.fgaClient != nil {
		record("openfga", c.pingOpenFGA(ctx.Request.Context()))
	} else {
		checks["openfga"] = "not configured"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	ctx.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// pingDatabase 带超时探测数据库
func (c *HealthController) pingDatabase(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// pingOpenFGA 用一次无副作用的权限查询探测 OpenFGA
// 资源不存在导致的业务错误视为联通,只有传输层错误算失败
func (c *HealthController) pingOpenFGA(ctx context.Context) error {
	_, err := c.fgaClient.CheckPermission(ctx, "health-check-user", "viewer", "process", "health-check-resource")
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "connection refused") {
		return err
	}
	return nil
}
