package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// Collector 周期性把连接池状态和流程状态分布刷进 Prometheus gauge
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动采集循环
func (c *Collector) Start() {
	go c.run()
}

// Stop 停止并等待循环退出
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

func (c *Collector) run() {
	defer close(c.done)

	// 启动即采一轮,gauge 不等第一个周期
	c.scrape()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.scrape()
		}
	}
}

func (c *Collector) scrape() {
	_ = UpdateDatabaseConnections(c.db)

	var rows []struct {
		State string
		Count int64
	}
	if err := c.db.Model(&model.ProcessModel{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&rows).Error; err != nil {
		return
	}
	for _, row := range rows {
		UpdateProcessesByState(row.State, float64(row.Count))
	}
}
