package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/engine"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/repository"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/service"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/utils"
)

// ProcessController 流程控制器
type ProcessController struct {
	processService service.ProcessService
}

// NewProcessController 创建流程控制器
func NewProcessController(processService service.ProcessService) *ProcessController {
	return &ProcessController{
		processService: processService,
	}
}

// validateProcessID 验证流程 ID 并在无效时返回错误响应
func (c *ProcessController) validateProcessID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateProcessID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid process ID", err.Error())
		return false
	}
	return true
}

// RemarksRequest 备注请求体
// @Description 携带备注的通用请求体
type RemarksRequest struct {
	Remarks string `json:"remarks" example:"同意"`
}

// ReasonRequest 驳回原因请求体
// @Description 携带驳回原因的通用请求体
type ReasonRequest struct {
	Reason string `json:"reason" example:"金额超出预算"`
}

// PublishRequest 分支发布请求体
// @Description 把流程发布到分支机构的请求体
type PublishRequest struct {
	Targets []engine.PublishTarget `json:"targets" binding:"required"`
}

// UpdateStepsRequest 修改步骤请求体
// @Description 修改运行中流程步骤定义的请求体,已到达的步骤不可更改
type UpdateStepsRequest struct {
	Steps []model.Step `json:"steps" binding:"required"`
}

// UploadDocumentsRequest 追加文档请求体
// @Description 向流程追加文档的请求体
type UploadDocumentsRequest struct {
	Documents []engine.DocumentInput `json:"documents" binding:"required"`
}

// RejectConnectorRequest 总部驳回连接器请求体
// @Description 总部把连接器退回到指定步骤的请求体
type RejectConnectorRequest struct {
	TargetStep int    `json:"target_step" example:"1" binding:"required"`
	Reason     string `json:"reason" example:"材料不全"`
}

// Create 创建流程
// @Summary      创建流程实例
// @Description  基于工作流定义创建新的流程实例
// @Tags         流程管理
// @Accept       json
// @Produce      json
// @Param        request body service.InitiateProcessRequest true "流程信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /processes [post]
// @Security     BearerAuth
func (c *ProcessController) Create(ctx *gin.Context) {
	var req service.InitiateProcessRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.processService.Initiate(ctx, &req)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// Get 获取流程
// @Summary      获取流程详情
// @Description  根据 ID 获取流程及其派生标志
// @Tags         流程管理
// @Produce      json
// @Param        id path string true "流程 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /processes/{id} [get]
// @Security     BearerAuth
func (c *ProcessController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateProcessID(ctx, id) {
		return
	}

	result, err := c.processService.Get(ctx, id)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// List 查询流程列表
// @Summary      查询流程列表
// @Description  按状态、发起人、工作流等条件过滤流程
// @Tags         流程管理
// @Produce      json
// @Param        state        query string false "流程状态"
// @Param        initiator_id query string false "发起人 ID"
// @Param        workflow_id  query string false "工作流 ID"
// @Param        completed    query bool   false "是否已完结"
// @Success      200  {object}  Response
// @Router       /processes [get]
// @Security     BearerAuth
func (c *ProcessController) List(ctx *gin.Context) {
	filter := &repository.ProcessFilter{}
	if state := ctx.Query("state"); state != "" {
		filter.State = &state
	}
	if initiatorID := ctx.Query("initiator_id"); initiatorID != "" {
		filter.InitiatorID = &initiatorID
	}
	if workflowID := ctx.Query("workflow_id"); workflowID != "" {
		filter.WorkflowID = &workflowID
	}
	if raw := ctx.Query("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid completed flag", err.Error())
			return
		}
		filter.Completed = &completed
	}
	filter.SortBy = ctx.Query("sort_by")
	filter.SortOrder = ctx.Query("order")

	processes, err := c.processService.List(filter)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list processes", err.Error())
		return
	}

	Success(ctx, processes)
}

// ListPending 查询待办流程
// @Summary      查询当前用户的待办流程
// @Description  返回当前用户作为处理人且尚未处理的流程
// @Tags         流程管理
// @Produce      json
// @Success      200  {object}  Response
// @Router       /processes/pending [get]
// @Security     BearerAuth
func (c *ProcessController) ListPending(ctx *gin.Context) {
	processes, err := c.processService.ListPendingForUser(ctx.GetString("user_id"))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list pending processes", err.Error())
		return
	}

	Success(ctx, processes)
}

// Forward 推进流程
// @Summary      推进流程
// @Description  把流程指针推进到下一步或指定的跳步目标
// @Tags         流程管理
// @Accept       json
// @Produce      json
// @Param        id path string true "流程 ID"
// @Param        request body service.ForwardRequest true "推进参数"
// @Success      200  {object}  Response
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/forward [post]
// @Security     BearerAuth
func (c *ProcessController) Forward(ctx *gin.Context) {
	if !c.validateProcessID(ctx, ctx.Param("id")) {
		return
	}

	var req service.ForwardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.processService.Forward(ctx, ctx.Param("id"), ctx.GetString("user_id"), &req)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// Complete 提前完结流程
// @Summary      提前完结流程
// @Description  在到达末步之前完结流程
// @Tags         流程管理
// @Accept       json
// @Produce      json
// @Param        id path string true "流程 ID"
// @Param        request body RemarksRequest false "备注"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/complete [post]
// @Security     BearerAuth
func (c *ProcessController) Complete(ctx *gin.Context) {
	var req RemarksRequest
	_ = ctx.ShouldBindJSON(&req)

	result, err := c.processService.Complete(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Remarks)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// Reject 退回流程
// @Summary      退回流程
// @Description  把流程退回到操作人最后出现的步骤之后的那一步
// @Tags         流程管理
// @Accept       json
// @Produce      json
// @Param        id path string true "流程 ID"
// @Param        request body RemarksRequest false "备注"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/reject [post]
// @Security     BearerAuth
func (c *ProcessController) Reject(ctx *gin.Context) {
	var req RemarksRequest
	_ = ctx.ShouldBindJSON(&req)

	result, err := c.processService.Reject(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Remarks)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// Pick 认领流程
// @Summary      独占认领流程
// @Description  同组候选人中第一个认领者获得独占处理权,并发认领只有一个成功
// @Tags         流程管理
// @Produce      json
// @Param        id path string true "流程 ID"
// @Success      200  {object}  Response
// @Failure      409  {object}  ErrorResponse
// @Router       /processes/{id}/pick [post]
// @Security     BearerAuth
func (c *ProcessController) Pick(ctx *gin.Context) {
	result, err := c.processService.Pick(ctx, ctx.Param("id"), ctx.GetString("user_id"))
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// Publish 发布到分支机构
// @Summary      把流程发布到分支机构
// @Description  在发布步骤为每个目标机构与角色创建连接器子流程
// @Tags         流程管理
// @Accept       json
// @Produce      json
// @Param        id path string true "流程 ID"
// @Param        request body PublishRequest true "发布目标"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/publish [post]
// @Security     BearerAuth
func (c *ProcessController) Publish(ctx *gin.Context) {
	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.processService.Publish(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Targets)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// UpdateSteps 修改步骤定义
// @Summary      修改运行中流程的步骤定义
// @Description  只允许修改尚未到达的步骤,已到达的前缀被冻结
// @Tags         流程管理
// @Accept       json
// @Produce      json
// @Param        id path string true "流程 ID"
// @Param        request body UpdateStepsRequest true "新步骤定义"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/steps [put]
// @Security     BearerAuth
func (c *ProcessController) UpdateSteps(ctx *gin.Context) {
	var req UpdateStepsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.processService.UpdateSteps(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Steps)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// ListStepInstances 查询步骤实例
// @Summary      查询流程的步骤实例
// @Tags         流程管理
// @Produce      json
// @Param        id path string true "流程 ID"
// @Success      200  {object}  Response
// @Router       /processes/{id}/steps [get]
// @Security     BearerAuth
func (c *ProcessController) ListStepInstances(ctx *gin.Context) {
	instances, err := c.processService.StepInstances(ctx.Param("id"))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list step instances", err.Error())
		return
	}

	Success(ctx, instances)
}

// History 查询指针变更历史
// @Summary      查询流程的指针变更历史
// @Tags         流程管理
// @Produce      json
// @Param        id path string true "流程 ID"
// @Success      200  {object}  Response
// @Router       /processes/{id}/history [get]
// @Security     BearerAuth
func (c *ProcessController) History(ctx *gin.Context) {
	history, err := c.processService.History(ctx.Param("id"))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to load process history", err.Error())
		return
	}

	Success(ctx, history)
}

// Archive 归档流程
// @Summary      归档已完结流程
// @Description  只有已完结的流程可以归档
// @Tags         流程管理
// @Produce      json
// @Param        id path string true "流程 ID"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/archive [post]
// @Security     BearerAuth
func (c *ProcessController) Archive(ctx *gin.Context) {
	if err := c.processService.Archive(ctx, ctx.Param("id"), ctx.GetString("user_id")); err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// ListDocuments 查询文档台账
// @Summary      查询流程主干的文档台账
// @Tags         文档管理
// @Produce      json
// @Param        id path string true "流程 ID"
// @Success      200  {object}  Response
// @Router       /processes/{id}/documents [get]
// @Security     BearerAuth
func (c *ProcessController) ListDocuments(ctx *gin.Context) {
	docs, err := c.processService.Documents(ctx.Param("id"))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list documents", err.Error())
		return
	}

	Success(ctx, docs)
}

// UploadDocuments 追加文档
// @Summary      向流程追加文档
// @Tags         文档管理
// @Accept       json
// @Produce      json
// @Param        id path string true "流程 ID"
// @Param        request body UploadDocumentsRequest true "文档列表"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/documents [post]
// @Security     BearerAuth
func (c *ProcessController) UploadDocuments(ctx *gin.Context) {
	var req UploadDocumentsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.processService.UploadDocuments(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Documents)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// SignDocument 签署文档
// @Summary      签署文档
// @Description  文档在某步骤被驳回后,该步骤不能再签署
// @Tags         文档管理
// @Accept       json
// @Produce      json
// @Param        id    path string true "流程 ID"
// @Param        docId path string true "文档 ID"
// @Param        request body RemarksRequest false "备注"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/documents/{docId}/sign [post]
// @Security     BearerAuth
func (c *ProcessController) SignDocument(ctx *gin.Context) {
	var req RemarksRequest
	_ = ctx.ShouldBindJSON(&req)

	result, err := c.processService.SignDocument(ctx, ctx.Param("id"), ctx.Param("docId"), ctx.GetString("user_id"), req.Remarks)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// RejectDocument 驳回文档
// @Summary      驳回文档
// @Description  每个文档同一时刻最多一个生效驳回
// @Tags         文档管理
// @Accept       json
// @Produce      json
// @Param        id    path string true "流程 ID"
// @Param        docId path string true "文档 ID"
// @Param        request body ReasonRequest true "驳回原因"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/documents/{docId}/reject [post]
// @Security     BearerAuth
func (c *ProcessController) RejectDocument(ctx *gin.Context) {
	var req ReasonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.processService.RejectDocument(ctx, ctx.Param("id"), ctx.Param("docId"), ctx.GetString("user_id"), req.Reason)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// RevokeSign 撤销签署
// @Summary      撤销本人对文档的签署
// @Tags         文档管理
// @Produce      json
// @Param        id    path string true "流程 ID"
// @Param        docId path string true "文档 ID"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/documents/{docId}/revoke-sign [post]
// @Security     BearerAuth
func (c *ProcessController) RevokeSign(ctx *gin.Context) {
	result, err := c.processService.RevokeSign(ctx, ctx.Param("id"), ctx.Param("docId"), ctx.GetString("user_id"))
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// RevokeRejection 撤销驳回
// @Summary      撤销本人对文档的驳回
// @Tags         文档管理
// @Produce      json
// @Param        id    path string true "流程 ID"
// @Param        docId path string true "文档 ID"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /processes/{id}/documents/{docId}/revoke-rejection [post]
// @Security     BearerAuth
func (c *ProcessController) RevokeRejection(ctx *gin.Context) {
	result, err := c.processService.RevokeRejection(ctx, ctx.Param("id"), ctx.Param("docId"), ctx.GetString("user_id"))
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// ListConnectors 查询连接器
// @Summary      查询流程的分支连接器
// @Tags         分支管理
// @Produce      json
// @Param        id path string true "流程 ID"
// @Success      200  {object}  Response
// @Router       /processes/{id}/connectors [get]
// @Security     BearerAuth
func (c *ProcessController) ListConnectors(ctx *gin.Context) {
	connectors, err := c.processService.Connectors(ctx.Param("id"))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list connectors", err.Error())
		return
	}

	Success(ctx, connectors)
}

// ForwardConnector 推进连接器
// @Summary      推进分支连接器
// @Tags         分支管理
// @Accept       json
// @Produce      json
// @Param        id path string true "连接器 ID"
// @Param        request body RemarksRequest false "备注"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /connectors/{id}/forward [post]
// @Security     BearerAuth
func (c *ProcessController) ForwardConnector(ctx *gin.Context) {
	var req RemarksRequest
	_ = ctx.ShouldBindJSON(&req)

	result, err := c.processService.ForwardConnector(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Remarks)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// RejectConnector 总部驳回连接器
// @Summary      总部把连接器退回到指定步骤
// @Tags         分支管理
// @Accept       json
// @Produce      json
// @Param        id path string true "连接器 ID"
// @Param        request body RejectConnectorRequest true "退回参数"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /connectors/{id}/reject [post]
// @Security     BearerAuth
func (c *ProcessController) RejectConnector(ctx *gin.Context) {
	var req RejectConnectorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.processService.RejectConnector(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.TargetStep, req.Reason)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// SignConnectorDocument 签署连接器文档
// @Summary      签署连接器文档
// @Tags         分支管理
// @Produce      json
// @Param        id    path string true "连接器 ID"
// @Param        docId path string true "文档 ID"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /connectors/{id}/documents/{docId}/sign [post]
// @Security     BearerAuth
func (c *ProcessController) SignConnectorDocument(ctx *gin.Context) {
	result, err := c.processService.SignConnectorDocument(ctx, ctx.Param("id"), ctx.Param("docId"), ctx.GetString("user_id"))
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// RejectConnectorDocument 驳回连接器文档
// @Summary      驳回连接器文档
// @Tags         分支管理
// @Accept       json
// @Produce      json
// @Param        id    path string true "连接器 ID"
// @Param        docId path string true "文档 ID"
// @Param        request body ReasonRequest true "驳回原因"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /connectors/{id}/documents/{docId}/reject [post]
// @Security     BearerAuth
func (c *ProcessController) RejectConnectorDocument(ctx *gin.Context) {
	var req ReasonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.processService.RejectConnectorDocument(ctx, ctx.Param("id"), ctx.Param("docId"), ctx.GetString("user_id"), req.Reason)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}
