package container

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/auth"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/config"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/database"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/engine"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/notify"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/repository"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/service"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/websocket"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、引擎、服务、客户端等
type Container struct {
	db                *gorm.DB
	hub               *websocket.Hub
	dispatcher        *notify.Dispatcher
	eng               *engine.Engine
	fgaClient         *auth.OpenFGAClient
	keycloakValidator *auth.KeycloakTokenValidator

	processService      service.ProcessService
	workflowService     service.WorkflowService
	queryService        service.QueryService
	notificationService service.NotificationService
	statisticsService   service.StatisticsService
	auditLogService     service.AuditLogService
	slaMonitor          *service.SLAMonitor
	archiveExporter     *service.ArchiveExporter
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化 WebSocket Hub 与通知分发器
	hub := websocket.NewHub()
	dispatcher := notify.NewDispatcher(hub, 5, logrus.StandardLogger())

	// 3. 初始化推进引擎
	stepDeadline := time.Duration(cfg.Engine.StepDeadlineHours) * time.Hour
	eng := engine.New(db, dispatcher, engine.WithStepDeadline(stepDeadline))

	// 4. 初始化 OpenFGA 客户端（带重试机制）
	fgaClient, err := auth.NewOpenFGAClientWithRetry(cfg.OpenFGA.APIURL, cfg.OpenFGA.StoreID, cfg.OpenFGA.ModelID, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenFGA client: %w", err)
	}

	// 判定结果走 TTL 缓存,写关系时逐条失效
	relationStore := auth.NewCachedOpenFGAClient(fgaClient, auth.NewPermissionCache(5*time.Minute))

	// 5. 初始化 Keycloak Token 验证器
	keycloakValidator := auth.NewKeycloakTokenValidator(cfg.Keycloak.Issuer)

	// 6. 初始化仓储与服务
	processRepo := repository.NewProcessRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	queryRepo := repository.NewQueryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	historyRepo := repository.NewStateHistoryRepository(db)
	stepRepo := repository.NewStepInstanceRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	connRepo := repository.NewConnectorRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	auditLogService := service.NewAuditLogService(auditRepo)
	processService := service.NewProcessService(eng, processRepo, docRepo, connRepo, historyRepo, stepRepo, auditLogService, relationStore)
	workflowService := service.NewWorkflowService(workflowRepo, auditLogService)
	queryService := service.NewQueryService(eng, queryRepo, auditLogService)
	notificationService := service.NewNotificationService(notificationRepo)
	statisticsService := service.NewStatisticsService(db)

	// 7. 初始化 SLA 监视器
	slaInterval := time.Duration(cfg.Engine.SLAScanIntervalMins) * time.Minute
	slaMonitor := service.NewSLAMonitor(eng, slaInterval)

	// 8. 初始化归档导出器
	var archiveExporter *service.ArchiveExporter
	if cfg.Archive.Enabled {
		archiveInterval := time.Duration(cfg.Archive.IntervalHours) * time.Hour
		archiveExporter = service.NewArchiveExporter(db, cfg.Archive.ExportDir, archiveInterval, cfg.Archive.RetentionDays)
	}

	return &Container{
		db:                  db,
		hub:                 hub,
		dispatcher:          dispatcher,
		eng:                 eng,
		fgaClient:           fgaClient,
		keycloakValidator:   keycloakValidator,
		processService:      processService,
		workflowService:     workflowService,
		queryService:        queryService,
		notificationService: notificationService,
		statisticsService:   statisticsService,
		auditLogService:     auditLogService,
		slaMonitor:          slaMonitor,
		archiveExporter:     archiveExporter,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Dispatcher 获取通知分发器
func (c *Container) Dispatcher() *notify.Dispatcher {
	return c.dispatcher
}

// Engine 获取推进引擎
func (c *Container) Engine() *engine.Engine {
	return c.eng
}

// OpenFGAClient 获取 OpenFGA 客户端
func (c *Container) OpenFGAClient() *auth.OpenFGAClient {
	return c.fgaClient
}

// KeycloakValidator 获取 Keycloak Token 验证器
func (c *Container) KeycloakValidator() *auth.KeycloakTokenValidator {
	return c.keycloakValidator
}

// ProcessService 获取流程服务
func (c *Container) ProcessService() service.ProcessService {
	return c.processService
}

// WorkflowService 获取工作流服务
func (c *Container) WorkflowService() service.WorkflowService {
	return c.workflowService
}

// QueryService 获取质询服务
func (c *Container) QueryService() service.QueryService {
	return c.queryService
}

// NotificationService 获取通知服务
func (c *Container) NotificationService() service.NotificationService {
	return c.notificationService
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statisticsService
}

// AuditLogService 获取审计日志服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogService
}

// SLAMonitor 获取超时监视器
func (c *Container) SLAMonitor() *service.SLAMonitor {
	return c.slaMonitor
}

// ArchiveExporter 获取归档导出器,未启用时返回 nil
func (c *Container) ArchiveExporter() *service.ArchiveExporter {
	return c.archiveExporter
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.slaMonitor != nil {
		c.slaMonitor.Stop()
	}
	if c.archiveExporter != nil {
		c.archiveExporter.Stop()
	}
	if c.dispatcher != nil {
		c.dispatcher.Stop()
	}
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
