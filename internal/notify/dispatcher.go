package notify

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/engine"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/metrics"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/websocket"
)

// Dispatcher 通知事实投递器
// 引擎在事务提交后把事实交给投递器,worker 异步推送给在线接收人;
// 事实行已随事务落库,推送失败不影响正确性,离线用户上线后拉取通知列表
type Dispatcher struct {
	hub     *websocket.Hub
	queue   chan engine.Fact
	workers int
	stop    chan struct{}
	logger  *logrus.Logger
}

// NewDispatcher 创建投递器并启动 worker
func NewDispatcher(hub *websocket.Hub, workers int, logger *logrus.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := &Dispatcher{
		hub:     hub,
		queue:   make(chan engine.Fact, 1000),
		workers: workers,
		stop:    make(chan struct{}),
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Dispatch 实现 engine.Emitter
// 队列满时丢弃推送并记录日志,不阻塞审批事务的调用方
func (d *Dispatcher) Dispatch(facts []engine.Fact) {
	for _, fact := range facts {
		select {
		case d.queue <- fact:
		default:
			d.logger.WithFields(logrus.Fields{
				"kind":      fact.Kind,
				"recipient": fact.RecipientID,
			}).Warn("notification queue full, dropping push")
		}
	}
}

// worker 推送 worker
func (d *Dispatcher) worker() {
	for {
		select {
		case fact := <-d.queue:
			d.push(fact)
		case <-d.stop:
			return
		}
	}
}

// pushMessage 推送给客户端的消息格式
type pushMessage struct {
	Kind      string                 `json:"kind"`
	ProcessID string                 `json:"process_id,omitempty"`
	QueryID   string                 `json:"query_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	PushedAt  time.Time              `json:"pushed_at"`
}

// push 把单条事实推送给接收人的在线连接
func (d *Dispatcher) push(fact engine.Fact) {
	msg := pushMessage{
		Kind:      string(fact.Kind),
		ProcessID: fact.ProcessID,
		QueryID:   fact.QueryID,
		Metadata:  fact.Metadata,
		PushedAt:  time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		d.logger.WithError(err).Error("failed to marshal notification push")
		return
	}
	d.hub.BroadcastToUser(fact.RecipientID, data)
	metrics.RecordNotificationFact(string(fact.Kind))
}

// Stop 停止投递器
func (d *Dispatcher) Stop() {
	close(d.stop)
}
