package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/config"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// GetProductionPoolConfig 获取生产环境连接池配置
func GetProductionPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    20,   // 生产环境增加空闲连接数
		MaxOpenConns:    200,  // 生产环境增加最大连接数
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 300,  // 5 分钟（生产环境缩短空闲时间）
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)
	
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	
	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	
	// 从配置中读取连接池参数，如果没有配置则使用默认值
	var poolConfig *PoolConfig
	if cfg.MaxIdleConns > 0 || cfg.MaxOpenConns > 0 {
		// 使用配置中的值
		poolConfig = &PoolConfig{
			MaxIdleConns:    cfg.MaxIdleConns,
			MaxOpenConns:    cfg.MaxOpenConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		}
		// 如果某些值未设置，使用默认值
		if poolConfig.MaxIdleConns == 0 {
			poolConfig.MaxIdleConns = 10
		}
		if poolConfig.MaxOpenConns == 0 {
			poolConfig.MaxOpenConns = 100
		}
		if poolConfig.ConnMaxLifetime == 0 {
			poolConfig.ConnMaxLifetime = 3600
		}
		if poolConfig.ConnMaxIdleTime == 0 {
			poolConfig.ConnMaxIdleTime = 600
		}
	} else {
		// 使用默认配置
		poolConfig = GetPoolConfig()
	}
	
	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)
	
	return db, nil
}

// ConnectProduction 连接数据库（生产环境配置）
func ConnectProduction(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)
	
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	
	// 配置连接池（生产环境）
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	
	// 从配置中读取连接池参数，如果没有配置则使用生产环境默认值
	var poolConfig *PoolConfig
	if cfg.MaxIdleConns > 0 || cfg.MaxOpenConns > 0 {
		// 使用配置中的值
		poolConfig = &PoolConfig{
			MaxIdleConns:    cfg.MaxIdleConns,
			MaxOpenConns:    cfg.MaxOpenConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		}
		// 如果某些值未设置，使用生产环境默认值
		if poolConfig.MaxIdleConns == 0 {
			poolConfig.MaxIdleConns = 20
		}
		if poolConfig.MaxOpenConns == 0 {
			poolConfig.MaxOpenConns = 200
		}
		if poolConfig.ConnMaxLifetime == 0 {
			poolConfig.ConnMaxLifetime = 3600
		}
		if poolConfig.ConnMaxIdleTime == 0 {
			poolConfig.ConnMaxIdleTime = 300
		}
	} else {
		// 使用生产环境默认配置
		poolConfig = GetProductionPoolConfig()
	}
	
	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)
	
	return db, nil
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()
	
	// SQLite 不支持 jsonb，需要手动创建表
	// GORM SQLite dialector 的名称可能是 "sqlite" 或 "sqlite3"
	if dialector == "sqlite" || dialector == "sqlite3" {
		// 手动创建 SQLite 表（使用 TEXT 替代 jsonb）
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		// PostgreSQL 等其他数据库使用 AutoMigrate
		if err := db.AutoMigrate(
			&model.WorkflowModel{},
			&model.ProcessModel{},
			&model.DocumentEntryModel{},
			&model.ConnectorModel{},
			&model.StepInstanceModel{},
			&model.QueryModel{},
			&model.RecirculationApprovalModel{},
			&model.QueryDocumentModel{},
			&model.QueryDocumentApprovalModel{},
			&model.DoubtModel{},
			&model.RecommendationModel{},
			&model.ClarificationModel{},
			&model.NotificationModel{},
			&model.StateHistoryModel{},
			&model.AuditLogModel{},
			&model.UserRoleModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}
	
	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	
	return nil
}

// createSQLiteTables 为 SQLite 手动创建表(使用 TEXT 替代 jsonb)
func createSQLiteTables(db *gorm.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workflows (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			steps TEXT NOT NULL,
			created_by VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS processes (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			workflow_id VARCHAR(64) NOT NULL,
			workflow_snapshot TEXT NOT NULL,
			state VARCHAR(32) NOT NULL,
			current_step_number INTEGER NOT NULL DEFAULT 1,
			last_step_done INTEGER NOT NULL DEFAULT 0,
			max_step_number_reached INTEGER NOT NULL DEFAULT 1,
			max_receiver_step_number INTEGER DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT 0,
			completed_at DATETIME,
			archived BOOLEAN NOT NULL DEFAULT 0,
			is_inter_branch BOOLEAN NOT NULL DEFAULT 0,
			is_head BOOLEAN NOT NULL DEFAULT 0,
			documents_path TEXT,
			remarks TEXT,
			current_actor VARCHAR(64) DEFAULT '',
			skipped_steps TEXT,
			revert_blocked BOOLEAN NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			initiator_id VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS process_documents (
			id VARCHAR(64) PRIMARY KEY,
			process_id VARCHAR(64) NOT NULL,
			connector_id VARCHAR(64) DEFAULT '',
			document_id VARCHAR(64) NOT NULL,
			cabinet_no INTEGER NOT NULL DEFAULT 0,
			work_name VARCHAR(128) NOT NULL,
			signed_by TEXT,
			rejection TEXT,
			replaced_from VARCHAR(64),
			uploaded_by VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS process_connectors (
			id VARCHAR(64) PRIMARY KEY,
			process_id VARCHAR(64) NOT NULL,
			department_name VARCHAR(128) NOT NULL,
			department_id VARCHAR(64) DEFAULT '',
			role_id VARCHAR(64) DEFAULT '',
			workflow_id VARCHAR(64) NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT 0,
			completed_at DATETIME,
			last_step_done INTEGER NOT NULL DEFAULT 0,
			current_step_number INTEGER NOT NULL DEFAULT 1,
			current_actor VARCHAR(64) DEFAULT '',
			remarks TEXT,
			to_clerk BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS process_step_instances (
			id VARCHAR(64) PRIMARY KEY,
			process_id VARCHAR(64) NOT NULL,
			step_number INTEGER NOT NULL,
			assignee_id VARCHAR(64) NOT NULL,
			role_id VARCHAR(64),
			department_id VARCHAR(64),
			status VARCHAR(32) NOT NULL,
			picked_by VARCHAR(64),
			claimed_at DATETIME,
			deadline DATETIME,
			overdue_notified BOOLEAN NOT NULL DEFAULT 0,
			created_via VARCHAR(32) NOT NULL,
			query_id VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS process_queries (
			id VARCHAR(64) PRIMARY KEY,
			process_id VARCHAR(64) NOT NULL,
			step_instance_id VARCHAR(64),
			raised_by VARCHAR(64) NOT NULL,
			text TEXT NOT NULL,
			status VARCHAR(32) NOT NULL,
			recirculation_from_step INTEGER DEFAULT 0,
			resolved_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS query_recirculation_approvals (
			id VARCHAR(64) PRIMARY KEY,
			query_id VARCHAR(64) NOT NULL,
			approver_id VARCHAR(64) NOT NULL,
			approved BOOLEAN NOT NULL DEFAULT 0,
			comments TEXT,
			approved_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (query_id, approver_id)
		)`,
		`CREATE TABLE IF NOT EXISTS query_documents (
			id VARCHAR(64) PRIMARY KEY,
			query_id VARCHAR(64) NOT NULL,
			document_id VARCHAR(64) NOT NULL,
			uploaded_by VARCHAR(64) NOT NULL,
			requires_approval BOOLEAN NOT NULL DEFAULT 1,
			is_replacement BOOLEAN NOT NULL DEFAULT 0,
			replaces_document_id VARCHAR(64),
			executed BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS query_document_approvals (
			id VARCHAR(64) PRIMARY KEY,
			query_document_id VARCHAR(64) NOT NULL,
			approver_id VARCHAR(64) NOT NULL,
			approved BOOLEAN NOT NULL DEFAULT 0,
			approved_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (query_document_id, approver_id)
		)`,
		`CREATE TABLE IF NOT EXISTS query_doubts (
			id VARCHAR(64) PRIMARY KEY,
			query_id VARCHAR(64) NOT NULL,
			raised_by VARCHAR(64) NOT NULL,
			text TEXT NOT NULL,
			answer TEXT,
			answered_by VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS process_recommendations (
			id VARCHAR(64) PRIMARY KEY,
			process_id VARCHAR(64) NOT NULL,
			step_instance_id VARCHAR(64),
			requested_by VARCHAR(64) NOT NULL,
			recommender_id VARCHAR(64) NOT NULL,
			text TEXT NOT NULL,
			response TEXT,
			status VARCHAR(32) NOT NULL,
			responded_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recommendation_clarifications (
			id VARCHAR(64) PRIMARY KEY,
			recommendation_id VARCHAR(64) NOT NULL,
			raised_by VARCHAR(64) NOT NULL,
			question TEXT NOT NULL,
			answer TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS process_notifications (
			id VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(64) NOT NULL,
			recipient_id VARCHAR(64) NOT NULL,
			process_id VARCHAR(64),
			query_id VARCHAR(64),
			metadata TEXT,
			status VARCHAR(32) NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS process_state_history (
			id VARCHAR(64) PRIMARY KEY,
			process_id VARCHAR(64) NOT NULL,
			from_step INTEGER NOT NULL,
			to_step INTEGER NOT NULL,
			action VARCHAR(32) NOT NULL,
			reason TEXT,
			operator VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			role_id VARCHAR(64) NOT NULL,
			department_id VARCHAR(64),
			created_at DATETIME NOT NULL,
			UNIQUE (user_id, role_id, department_id)
		)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_workflows_name ON workflows(name)",
		"CREATE INDEX IF NOT EXISTS idx_processes_state ON processes(state)",
		"CREATE INDEX IF NOT EXISTS idx_processes_workflow_id ON processes(workflow_id)",
		"CREATE INDEX IF NOT EXISTS idx_processes_initiator ON processes(initiator_id)",
		"CREATE INDEX IF NOT EXISTS idx_processes_completed ON processes(completed, archived)",
		"CREATE INDEX IF NOT EXISTS idx_documents_process ON process_documents(process_id, connector_id)",
		"CREATE INDEX IF NOT EXISTS idx_documents_document ON process_documents(document_id)",
		"CREATE INDEX IF NOT EXISTS idx_connectors_process ON process_connectors(process_id)",
		"CREATE INDEX IF NOT EXISTS idx_connectors_completed ON process_connectors(process_id, completed)",
		"CREATE INDEX IF NOT EXISTS idx_instances_process_step ON process_step_instances(process_id, step_number)",
		"CREATE INDEX IF NOT EXISTS idx_instances_assignee ON process_step_instances(assignee_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_instances_deadline ON process_step_instances(deadline)",
		"CREATE INDEX IF NOT EXISTS idx_queries_process ON process_queries(process_id)",
		"CREATE INDEX IF NOT EXISTS idx_queries_status ON process_queries(status)",
		"CREATE INDEX IF NOT EXISTS idx_recirc_query ON query_recirculation_approvals(query_id)",
		"CREATE INDEX IF NOT EXISTS idx_qdocs_query ON query_documents(query_id)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON process_notifications(recipient_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_process ON process_notifications(process_id)",
		"CREATE INDEX IF NOT EXISTS idx_history_process ON process_state_history(process_id)",
		"CREATE INDEX IF NOT EXISTS idx_history_created_at ON process_state_history(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_user_roles_role ON user_roles(role_id, department_id)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// PostgreSQL 特定的 GIN 索引
	if dialector == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_processes_snapshot_gin ON processes USING GIN (workflow_snapshot)").Error; err != nil {
			return fmt.Errorf("failed to create idx_processes_snapshot_gin: %w", err)
		}
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_documents_signed_by_gin ON process_documents USING GIN (signed_by)").Error; err != nil {
			return fmt.Errorf("failed to create idx_documents_signed_by_gin: %w", err)
		}
	}

	return nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		// 如果不是最后一次重试，等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}

// Reconnect 重新连接数据库
func Reconnect(cfg config.DatabaseConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	// 关闭旧连接
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	// 重新连接
	return Connect(cfg)
}

