package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/service"
)

// NotificationController 通知控制器
type NotificationController struct {
	notificationService service.NotificationService
}

// NewNotificationController 创建通知控制器
func NewNotificationController(notificationService service.NotificationService) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
	}
}

// ListActive 查询未处理通知
// @Summary      查询当前用户的未处理通知
// @Tags         通知管理
// @Produce      json
// @Success      200  {object}  Response
// @Router       /notifications [get]
// @Security     BearerAuth
func (c *NotificationController) ListActive(ctx *gin.Context) {
	notifications, err := c.notificationService.ListActive(ctx.GetString("user_id"))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list notifications", err.Error())
		return
	}

	Success(ctx, notifications)
}

// CountActive 统计未处理通知
// @Summary      统计当前用户的未处理通知数
// @Tags         通知管理
// @Produce      json
// @Success      200  {object}  Response
// @Router       /notifications/count [get]
// @Security     BearerAuth
func (c *NotificationController) CountActive(ctx *gin.Context) {
	count, err := c.notificationService.CountActive(ctx.GetString("user_id"))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to count notifications", err.Error())
		return
	}

	Success(ctx, gin.H{"count": count})
}

// Claim 认领通知
// @Summary      认领单条通知
// @Tags         通知管理
// @Produce      json
// @Param        id path string true "通知 ID"
// @Success      200  {object}  Response
// @Failure      500  {object}  ErrorResponse
// @Router       /notifications/{id}/claim [post]
// @Security     BearerAuth
func (c *NotificationController) Claim(ctx *gin.Context) {
	if err := c.notificationService.Claim(ctx.Param("id"), ctx.GetString("user_id")); err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to claim notification", err.Error())
		return
	}

	Success(ctx, nil)
}

// Dismiss 关闭通知
// @Summary      关闭单条通知
// @Tags         通知管理
// @Produce      json
// @Param        id path string true "通知 ID"
// @Success      200  {object}  Response
// @Failure      500  {object}  ErrorResponse
// @Router       /notifications/{id}/dismiss [post]
// @Security     BearerAuth
func (c *NotificationController) Dismiss(ctx *gin.Context) {
	if err := c.notificationService.Dismiss(ctx.Param("id"), ctx.GetString("user_id")); err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to dismiss notification", err.Error())
		return
	}

	Success(ctx, nil)
}

// DismissAll 关闭全部通知
// @Summary      关闭当前用户的全部通知
// @Tags         通知管理
// @Produce      json
// @Success      200  {object}  Response
// @Router       /notifications/dismiss-all [post]
// @Security     BearerAuth
func (c *NotificationController) DismissAll(ctx *gin.Context) {
	if err := c.notificationService.DismissAll(ctx.GetString("user_id")); err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to dismiss notifications", err.Error())
		return
	}

	Success(ctx, nil)
}
