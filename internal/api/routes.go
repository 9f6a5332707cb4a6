package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/Bhavik-SSBDigital/HAL-sub002/docs" // 导入生成的 docs 包
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/auth"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/config"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/service"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/websocket"
)

// Controllers 路由需要的控制器集合
type Controllers struct {
	Process      *ProcessController
	Workflow     *WorkflowController
	Query        *QueryController
	Notification *NotificationController
	Statistics   *StatisticsController
}

// NewControllers 从服务构造控制器集合
func NewControllers(
	processService service.ProcessService,
	workflowService service.WorkflowService,
	queryService service.QueryService,
	notificationService service.NotificationService,
	statisticsService service.StatisticsService,
) *Controllers {
	return &Controllers{
		Process:      NewProcessController(processService),
		Workflow:     NewWorkflowController(workflowService),
		Query:        NewQueryController(queryService),
		Notification: NewNotificationController(notificationService),
		Statistics:   NewStatisticsController(statisticsService),
	}
}

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, ctrl *Controllers, hub *websocket.Hub, validator *auth.KeycloakTokenValidator, db *gorm.DB, fgaClient *auth.OpenFGAClient) *gin.Engine {
	router := gin.Default()

	// 中间件
	router.Use(HTTPSRedirectMiddleware(cfg.Env == "production"))
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(SecurityHeadersMiddleware())
	router.Use(VersionMiddleware())
	router.Use(I18nMiddleware())
	router.Use(TracingMiddleware())
	router.Use(RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	router.Use(ErrorHandlerMiddleware())

	// 健康检查
	healthController := NewHealthController(db, fgaClient)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由
	if hub != nil && validator != nil {
		router.GET("/ws/processes/:id", websocket.WebSocketHandler(hub, validator))
	}

	// SSE 路由
	if validator != nil {
		router.GET("/sse/processes/:id", SSEHandler(validator))
	}

	// Swagger UI 路由
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("http://localhost:8080/swagger/doc.json"), // Swagger JSON URL
	))

	// CSRF 令牌端点,浏览器会话部署在写请求前先取令牌
	router.GET("/csrf-token", func(c *gin.Context) {
		token, err := GetCSRFToken(c)
		if err != nil {
			c.JSON(500, ErrorResponse{Code: 500, Message: "failed to generate csrf token"})
			return
		}
		c.JSON(200, gin.H{"csrf_token": token})
	})

	// API v1 路由组,全部要求 Keycloak 认证
	v1 := router.Group("/api/v1")
	if cfg.Server.EnableCSRF {
		v1.Use(CSRFMiddleware(DefaultCSRFConfig()))
	}
	if validator != nil {
		v1.Use(auth.KeycloakAuthMiddleware(validator))
	}
	{
		// 工作流定义路由
		workflows := v1.Group("/workflows")
		{
			workflows.POST("", ctrl.Workflow.Create)
			workflows.POST("/versions", ctrl.Workflow.NewVersion)
			workflows.GET("", ctrl.Workflow.List)
			workflows.GET("/:id", ctrl.Workflow.Get)
			workflows.DELETE("/:id", ctrl.Workflow.Delete)
		}

		// 流程管理路由
		processes := v1.Group("/processes")
		{
			processes.POST("", ctrl.Process.Create)
			processes.GET("", ctrl.Process.List)
			processes.GET("/pending", ctrl.Process.ListPending)
			processes.GET("/:id", ctrl.Process.Get)
			processes.POST("/:id/forward", ctrl.Process.Forward)
			processes.POST("/:id/complete", ctrl.Process.Complete)
			processes.POST("/:id/reject", ctrl.Process.Reject)
			processes.POST("/:id/pick", ctrl.Process.Pick)
			processes.POST("/:id/publish", ctrl.Process.Publish)
			processes.POST("/:id/archive", ctrl.Process.Archive)
			processes.PUT("/:id/steps", ctrl.Process.UpdateSteps)
			processes.GET("/:id/steps", ctrl.Process.ListStepInstances)
			processes.GET("/:id/history", ctrl.Process.History)
			processes.GET("/:id/connectors", ctrl.Process.ListConnectors)
			processes.GET("/:id/documents", ctrl.Process.ListDocuments)
			processes.POST("/:id/documents", ctrl.Process.UploadDocuments)
			processes.POST("/:id/documents/:docId/sign", ctrl.Process.SignDocument)
			processes.POST("/:id/documents/:docId/reject", ctrl.Process.RejectDocument)
			processes.POST("/:id/documents/:docId/revoke-sign", ctrl.Process.RevokeSign)
			processes.POST("/:id/documents/:docId/revoke-rejection", ctrl.Process.RevokeRejection)
			processes.GET("/:id/queries", ctrl.Query.ListByProcess)
		}

		// 连接器路由
		connectors := v1.Group("/connectors")
		{
			connectors.POST("/:id/forward", ctrl.Process.ForwardConnector)
			connectors.POST("/:id/reject", ctrl.Process.RejectConnector)
			connectors.POST("/:id/documents/:docId/sign", ctrl.Process.SignConnectorDocument)
			connectors.POST("/:id/documents/:docId/reject", ctrl.Process.RejectConnectorDocument)
		}

		// 质询路由
		queries := v1.Group("/queries")
		{
			queries.POST("", ctrl.Query.Raise)
			queries.GET("/pending-approvals", ctrl.Query.ListPendingApprovals)
			queries.GET("/:id", ctrl.Query.Get)
			queries.POST("/:id/resolve", ctrl.Query.Resolve)
			queries.POST("/:id/doubts", ctrl.Query.RaiseDoubt)
			queries.POST("/:id/recirculation/approve", ctrl.Query.ApproveRecirculation)
		}
		v1.POST("/doubts/:id/answer", ctrl.Query.AnswerDoubt)
		v1.POST("/query-documents/:id/approve", ctrl.Query.ApproveDocument)

		// 推荐意见路由
		recommendations := v1.Group("/recommendations")
		{
			recommendations.POST("", ctrl.Query.RequestRecommendation)
			recommendations.POST("/:id/respond", ctrl.Query.RespondRecommendation)
			recommendations.POST("/:id/clarifications", ctrl.Query.RaiseClarification)
		}
		v1.POST("/clarifications/:id/answer", ctrl.Query.AnswerClarification)

		// 通知路由
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", ctrl.Notification.ListActive)
			notifications.GET("/count", ctrl.Notification.CountActive)
			notifications.POST("/dismiss-all", ctrl.Notification.DismissAll)
			notifications.POST("/:id/claim", ctrl.Notification.Claim)
			notifications.POST("/:id/dismiss", ctrl.Notification.Dismiss)
		}

		// 统计路由
		statistics := v1.Group("/statistics")
		{
			statistics.GET("/by-state", ctrl.Statistics.ByState)
			statistics.GET("/by-workflow", ctrl.Statistics.ByWorkflow)
			statistics.GET("/by-time", ctrl.Statistics.ByTime)
			statistics.GET("/completion", ctrl.Statistics.Completion)
			statistics.GET("/overdue", ctrl.Statistics.Overdue)
		}
	}

	return router
}
