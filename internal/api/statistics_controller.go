package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/service"
)

// StatisticsController 统计控制器
type StatisticsController struct {
	statisticsService service.StatisticsService
}

// NewStatisticsController 创建统计控制器
func NewStatisticsController(statisticsService service.StatisticsService) *StatisticsController {
	return &StatisticsController{
		statisticsService: statisticsService,
	}
}

// ByState 按状态统计
// @Summary      按状态统计流程
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/by-state [get]
// @Security     BearerAuth
func (c *StatisticsController) ByState(ctx *gin.Context) {
	stats, err := c.statisticsService.GetProcessStatisticsByState()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get statistics", err.Error())
		return
	}

	Success(ctx, stats)
}

// ByWorkflow 按工作流统计
// @Summary      按工作流统计流程
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/by-workflow [get]
// @Security     BearerAuth
func (c *StatisticsController) ByWorkflow(ctx *gin.Context) {
	stats, err := c.statisticsService.GetProcessStatisticsByWorkflow()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get statistics", err.Error())
		return
	}

	Success(ctx, stats)
}

// ByTime 按时间统计
// @Summary      最近 30 天按发起日期统计流程
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/by-time [get]
// @Security     BearerAuth
func (c *StatisticsController) ByTime(ctx *gin.Context) {
	stats, err := c.statisticsService.GetProcessStatisticsByTime()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get statistics", err.Error())
		return
	}

	Success(ctx, stats)
}

// Completion 完结统计
// @Summary      流程完结率与平均完结耗时
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/completion [get]
// @Security     BearerAuth
func (c *StatisticsController) Completion(ctx *gin.Context) {
	stats, err := c.statisticsService.GetCompletionStatistics()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get statistics", err.Error())
		return
	}

	Success(ctx, stats)
}

// Overdue 超时统计
// @Summary      超时步骤统计
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics/overdue [get]
// @Security     BearerAuth
func (c *StatisticsController) Overdue(ctx *gin.Context) {
	stats, err := c.statisticsService.GetOverdueStatistics()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get statistics", err.Error())
		return
	}

	Success(ctx, stats)
}
