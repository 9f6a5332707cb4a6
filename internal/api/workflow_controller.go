package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/service"
)

// WorkflowController 工作流控制器
type WorkflowController struct {
	workflowService service.WorkflowService
}

// NewWorkflowController 创建工作流控制器
func NewWorkflowController(workflowService service.WorkflowService) *WorkflowController {
	return &WorkflowController{
		workflowService: workflowService,
	}
}

// Create 创建工作流
// @Summary      创建工作流定义
// @Description  创建新的工作流定义,版本号从 1 开始
// @Tags         工作流管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateWorkflowRequest true "工作流定义"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /workflows [post]
// @Security     BearerAuth
func (c *WorkflowController) Create(ctx *gin.Context) {
	var req service.CreateWorkflowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	workflow, err := c.workflowService.Create(ctx, &req)
	if err != nil {
		Error(ctx, http.StatusBadRequest, "failed to create workflow", err.Error())
		return
	}

	Success(ctx, workflow)
}

// NewVersion 创建新版本
// @Summary      创建工作流新版本
// @Description  基于最新版本创建新版工作流,运行中流程继续使用其快照
// @Tags         工作流管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateWorkflowRequest true "工作流定义"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /workflows/versions [post]
// @Security     BearerAuth
func (c *WorkflowController) NewVersion(ctx *gin.Context) {
	var req service.CreateWorkflowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	workflow, err := c.workflowService.NewVersion(ctx, &req)
	if err != nil {
		Error(ctx, http.StatusBadRequest, "failed to create workflow version", err.Error())
		return
	}

	Success(ctx, workflow)
}

// Get 获取工作流
// @Summary      获取工作流详情
// @Tags         工作流管理
// @Produce      json
// @Param        id path string true "工作流 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /workflows/{id} [get]
// @Security     BearerAuth
func (c *WorkflowController) Get(ctx *gin.Context) {
	workflow, err := c.workflowService.Get(ctx.Param("id"))
	if err != nil {
		Error(ctx, http.StatusNotFound, "workflow not found", err.Error())
		return
	}

	Success(ctx, workflow)
}

// List 查询工作流列表
// @Summary      查询全部工作流
// @Tags         工作流管理
// @Produce      json
// @Success      200  {object}  Response
// @Router       /workflows [get]
// @Security     BearerAuth
func (c *WorkflowController) List(ctx *gin.Context) {
	workflows, err := c.workflowService.List()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list workflows", err.Error())
		return
	}

	Success(ctx, workflows)
}

// Delete 删除工作流
// @Summary      删除工作流定义
// @Tags         工作流管理
// @Produce      json
// @Param        id path string true "工作流 ID"
// @Success      200  {object}  Response
// @Failure      500  {object}  ErrorResponse
// @Router       /workflows/{id} [delete]
// @Security     BearerAuth
func (c *WorkflowController) Delete(ctx *gin.Context) {
	if err := c.workflowService.Delete(ctx, ctx.Param("id"), ctx.GetString("user_id")); err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to delete workflow", err.Error())
		return
	}

	Success(ctx, nil)
}
