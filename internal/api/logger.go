package api

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/config"
)

var (
	loggerOnce    sync.Once
	defaultLogger *logrus.Logger
)

// GetLogger 获取进程级日志记录器
// 未经 ConfigureLogger 配置时使用 JSON 格式 info 级别输出到标准输出
func GetLogger() *logrus.Logger {
	loggerOnce.Do(func() {
		defaultLogger = logrus.New()
		defaultLogger.SetFormatter(jsonFormatter())
		defaultLogger.SetLevel(logrus.InfoLevel)
		defaultLogger.SetOutput(os.Stdout)
		defaultLogger.AddHook(&serviceFieldHook{service: "hal-workflow"})
	})
	return defaultLogger
}

// ConfigureLogger 按配置调整日志记录器,可在配置热加载时重复调用
// 格式与输出在启动时确定,级别每次调用都会生效
func ConfigureLogger(cfg *config.LogConfig) error {
	logger := GetLogger()

	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FullTimestamp:   true,
		})
	} else {
		logger.SetFormatter(jsonFormatter())
	}

	writers := []io.Writer{}
	if cfg.Output == "stdout" || cfg.Output == "both" || cfg.Output == "" {
		writers = append(writers, os.Stdout)
	}
	if cfg.Output == "file" || cfg.Output == "both" {
		file, err := openLogFile()
		if err != nil {
			return err
		}
		writers = append(writers, file)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}
	logger.SetOutput(io.MultiWriter(writers...))
	return nil
}

// jsonFormatter 日志聚合用的 JSON 格式
func jsonFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "time",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "msg",
		},
	}
}

// openLogFile 打开追加写的日志文件
func openLogFile() (*os.File, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(logDir, "hal-workflow.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// serviceFieldHook 给每条日志附加服务名字段
type serviceFieldHook struct {
	service string
}

func (h *serviceFieldHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *serviceFieldHook) Fire(entry *logrus.Entry) error {
	entry.Data["service"] = h.service
	return nil
}
