package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/engine"
)

// SLAMonitor 步骤超时监视器
// 周期性扫描到期未处理的步骤实例并触发 PROCESS_OVERDUE 通知
type SLAMonitor struct {
	eng      *engine.Engine
	interval time.Duration
	stopChan chan struct{}
}

// NewSLAMonitor 创建超时监视器,interval 非正时使用 30 分钟默认值
func NewSLAMonitor(eng *engine.Engine, interval time.Duration) *SLAMonitor {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &SLAMonitor{
		eng:      eng,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start 启动监视循环
func (m *SLAMonitor) Start(ctx context.Context) {
	go m.loop(ctx)
}

// Stop 停止监视循环
func (m *SLAMonitor) Stop() {
	close(m.stopChan)
}

// loop 监视循环,立即扫描一次后按间隔重复
func (m *SLAMonitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.scan(ctx)

	for {
		select {
		case <-ticker.C:
			m.scan(ctx)
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// scan 执行一次超时扫描
func (m *SLAMonitor) scan(ctx context.Context) {
	count, err := m.eng.ScanOverdue(ctx)
	if err != nil {
		logrus.WithError(err).Error("SLA overdue scan failed")
		return
	}
	if count > 0 {
		logrus.WithField("overdue_steps", count).Warn("SLA overdue steps detected")
	}
}
