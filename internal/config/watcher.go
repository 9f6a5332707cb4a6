package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Watcher 配置文件热加载
// 文件变更时重新解析并逐个通知注册的回调,解析失败保留旧配置
type Watcher struct {
	mu        sync.RWMutex
	current   *Config
	viper     *viper.Viper
	callbacks []func(*Config)
	stopped   bool
}

// NewWatcher 创建配置监听器
func NewWatcher(cfg *Config, configPath string) *Watcher {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)

	return &Watcher{
		current: cfg,
		viper:   v,
	}
}

// OnChange 注册配置变更回调,在变更事件的 goroutine 里执行
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start 开始监听配置文件
func (w *Watcher) Start() error {
	if err := w.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	w.viper.WatchConfig()
	w.viper.OnConfigChange(func(fsnotify.Event) {
		w.reload()
	})
	return nil
}

// Stop 停止通知回调,viper 的底层监听随进程退出
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
}

// Current 返回最近一次成功加载的配置
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// reload 重新解析配置并通知回调
func (w *Watcher) reload() {
	var next Config
	if err := w.viper.Unmarshal(&next); err != nil {
		logrus.WithError(err).Error("config reload failed, keeping previous config")
		return
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.current = &next
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	logrus.Info("config reloaded")
	for _, callback := range callbacks {
		callback(&next)
	}
}
