package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/service"
)

// QueryController 质询控制器
type QueryController struct {
	queryService service.QueryService
}

// NewQueryController 创建质询控制器
func NewQueryController(queryService service.QueryService) *QueryController {
	return &QueryController{
		queryService: queryService,
	}
}

// TextRequest 文本请求体
// @Description 携带一段文本内容的通用请求体
type TextRequest struct {
	Text string `json:"text" example:"请说明附件差异" binding:"required"`
}

// AnswerRequest 回答请求体
// @Description 携带回答内容的通用请求体
type AnswerRequest struct {
	Answer string `json:"answer" example:"附件已按合同更新" binding:"required"`
}

// VoteRequest 表决请求体
// @Description 审批人对回流或文档变更的表决
type VoteRequest struct {
	Approved bool   `json:"approved" example:"true"`
	Comments string `json:"comments" example:"同意回流"`
}

// ResponseRequest 答复请求体
// @Description 携带答复内容的通用请求体
type ResponseRequest struct {
	Response string `json:"response" example:"数据已核实无误" binding:"required"`
}

// Raise 发起质询
// @Summary      发起质询
// @Description  对流程提出质询,可附带文档变更与回流目标
// @Tags         质询管理
// @Accept       json
// @Produce      json
// @Param        request body service.RaiseQueryRequest true "质询信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /queries [post]
// @Security     BearerAuth
func (c *QueryController) Raise(ctx *gin.Context) {
	var req service.RaiseQueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	query, err := c.queryService.Raise(ctx, &req)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, query)
}

// Get 获取质询详情
// @Summary      获取质询详情
// @Description  返回质询及其疑问、回流审批和文档变更
// @Tags         质询管理
// @Produce      json
// @Param        id path string true "质询 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /queries/{id} [get]
// @Security     BearerAuth
func (c *QueryController) Get(ctx *gin.Context) {
	detail, err := c.queryService.Get(ctx.Param("id"))
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, detail)
}

// ListByProcess 查询流程的质询
// @Summary      查询流程下的全部质询
// @Tags         质询管理
// @Produce      json
// @Param        id path string true "流程 ID"
// @Success      200  {object}  Response
// @Router       /processes/{id}/queries [get]
// @Security     BearerAuth
func (c *QueryController) ListByProcess(ctx *gin.Context) {
	queries, err := c.queryService.ListByProcess(ctx.Param("id"))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list queries", err.Error())
		return
	}

	Success(ctx, queries)
}

// ListPendingApprovals 查询待表决的回流审批
// @Summary      查询当前用户待表决的回流审批
// @Tags         质询管理
// @Produce      json
// @Success      200  {object}  Response
// @Router       /queries/pending-approvals [get]
// @Security     BearerAuth
func (c *QueryController) ListPendingApprovals(ctx *gin.Context) {
	approvals, err := c.queryService.ListPendingApprovals(ctx.GetString("user_id"))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list pending approvals", err.Error())
		return
	}

	Success(ctx, approvals)
}

// Resolve 答复质询
// @Summary      答复并关闭质询
// @Description  只有处于 OPEN 状态的质询可以直接关闭
// @Tags         质询管理
// @Accept       json
// @Produce      json
// @Param        id path string true "质询 ID"
// @Param        request body ResponseRequest true "答复内容"
// @Success      200  {object}  Response
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /queries/{id}/resolve [post]
// @Security     BearerAuth
func (c *QueryController) Resolve(ctx *gin.Context) {
	var req ResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	query, err := c.queryService.Resolve(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Response)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, query)
}

// RaiseDoubt 提出疑问
// @Summary      对质询提出疑问
// @Tags         质询管理
// @Accept       json
// @Produce      json
// @Param        id path string true "质询 ID"
// @Param        request body TextRequest true "疑问内容"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /queries/{id}/doubts [post]
// @Security     BearerAuth
func (c *QueryController) RaiseDoubt(ctx *gin.Context) {
	var req TextRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	doubt, err := c.queryService.RaiseDoubt(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Text)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, doubt)
}

// AnswerDoubt 回答疑问
// @Summary      回答质询疑问
// @Tags         质询管理
// @Accept       json
// @Produce      json
// @Param        id path string true "疑问 ID"
// @Param        request body AnswerRequest true "回答内容"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /doubts/{id}/answer [post]
// @Security     BearerAuth
func (c *QueryController) AnswerDoubt(ctx *gin.Context) {
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	doubt, err := c.queryService.AnswerDoubt(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Answer)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, doubt)
}

// ApproveRecirculation 回流表决
// @Summary      对回流请求表决
// @Description  全部审批人同意后流程回流到目标步骤,任何一票否决即终止
// @Tags         质询管理
// @Accept       json
// @Produce      json
// @Param        id path string true "质询 ID"
// @Param        request body VoteRequest true "表决"
// @Success      200  {object}  Response
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /queries/{id}/recirculation/approve [post]
// @Security     BearerAuth
func (c *QueryController) ApproveRecirculation(ctx *gin.Context) {
	var req VoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.queryService.ApproveRecirculation(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Approved, req.Comments)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// ApproveDocument 文档变更表决
// @Summary      对质询文档变更表决
// @Description  全部审批人同意后执行文档替换或新增,精确执行一次
// @Tags         质询管理
// @Accept       json
// @Produce      json
// @Param        id path string true "质询文档 ID"
// @Param        request body VoteRequest true "表决"
// @Success      200  {object}  Response
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /query-documents/{id}/approve [post]
// @Security     BearerAuth
func (c *QueryController) ApproveDocument(ctx *gin.Context) {
	var req VoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.queryService.ApproveDocument(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Approved)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, result)
}

// RequestRecommendation 征求推荐意见
// @Summary      征求推荐意见
// @Tags         推荐意见
// @Accept       json
// @Produce      json
// @Param        request body service.RecommendationRequest true "征求信息"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /recommendations [post]
// @Security     BearerAuth
func (c *QueryController) RequestRecommendation(ctx *gin.Context) {
	var req service.RecommendationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	rec, err := c.queryService.RequestRecommendation(ctx, &req)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, rec)
}

// RespondRecommendation 答复推荐意见
// @Summary      答复推荐意见
// @Tags         推荐意见
// @Accept       json
// @Produce      json
// @Param        id path string true "推荐 ID"
// @Param        request body ResponseRequest true "答复内容"
// @Success      200  {object}  Response
// @Failure      409  {object}  ErrorResponse
// @Router       /recommendations/{id}/respond [post]
// @Security     BearerAuth
func (c *QueryController) RespondRecommendation(ctx *gin.Context) {
	var req ResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	rec, err := c.queryService.RespondRecommendation(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Response)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, rec)
}

// RaiseClarification 提出澄清问题
// @Summary      对推荐意见提出澄清问题
// @Tags         推荐意见
// @Accept       json
// @Produce      json
// @Param        id path string true "推荐 ID"
// @Param        request body TextRequest true "澄清问题"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /recommendations/{id}/clarifications [post]
// @Security     BearerAuth
func (c *QueryController) RaiseClarification(ctx *gin.Context) {
	var req TextRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	clar, err := c.queryService.RaiseClarification(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Text)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, clar)
}

// AnswerClarification 回答澄清问题
// @Summary      回答澄清问题
// @Tags         推荐意见
// @Accept       json
// @Produce      json
// @Param        id path string true "澄清 ID"
// @Param        request body AnswerRequest true "回答内容"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /clarifications/{id}/answer [post]
// @Security     BearerAuth
func (c *QueryController) AnswerClarification(ctx *gin.Context) {
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	clar, err := c.queryService.AnswerClarification(ctx, ctx.Param("id"), ctx.GetString("user_id"), req.Answer)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, clar)
}
