package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 流程创建数
	processesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "processes_created_total",
			Help: "Total number of processes initiated",
		},
	)

	// 引擎操作数
	engineActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_actions_total",
			Help: "Total number of engine actions",
		},
		[]string{"action"}, // sign, reject, forward, pick, recirculate, publish
	)

	// 通知事实数
	notificationFactsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_facts_total",
			Help: "Total number of notification facts emitted",
		},
		[]string{"kind"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 流程状态分布
	processesByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processes_by_state",
			Help: "Number of processes by state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		processesCreatedTotal,
		engineActionsTotal,
		notificationFactsTotal,
		databaseConnectionsActive,
		databaseConnectionsIdle,
		databaseConnectionsMax,
		processesByState,
	)

	// Go 运行时指标可能已由其他 registry 持有,重复注册忽略
	_ = prometheus.Register(prometheus.NewGoCollector())
	_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求,status 标签使用数字状态码
func RecordAPIRequest(method, path string, status int, duration float64) {
	apiRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordProcessCreated 记录流程创建
func RecordProcessCreated() {
	processesCreatedTotal.Inc()
}

// RecordEngineAction 记录引擎操作
func RecordEngineAction(action string) {
	engineActionsTotal.WithLabelValues(action).Inc()
}

// RecordNotificationFact 记录通知事实
func RecordNotificationFact(kind string) {
	notificationFactsTotal.WithLabelValues(kind).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateProcessesByState 更新流程状态分布指标
func UpdateProcessesByState(state string, count float64) {
	processesByState.WithLabelValues(state).Set(count)
}


