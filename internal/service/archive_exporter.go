package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// ArchiveExporter 归档导出器
// 周期性把已归档流程连同文档台账和状态历史导出为 JSON 文件,
// 并按保留期清理过期导出文件
type ArchiveExporter struct {
	db            *gorm.DB
	exportDir     string
	interval      time.Duration
	retentionDays int
	stopChan      chan struct{}
}

// ArchiveBundle 单个流程的归档包
type ArchiveBundle struct {
	Process    *model.ProcessModel         `json:"process"`
	Documents  []*model.DocumentEntryModel `json:"documents"`
	History    []*model.StateHistoryModel  `json:"history"`
	Connectors []*model.ConnectorModel     `json:"connectors,omitempty"`
	ExportedAt time.Time                   `json:"exported_at"`
}

// NewArchiveExporter 创建归档导出器
// interval 非正时使用 24 小时默认值,retentionDays 非正时不清理
func NewArchiveExporter(db *gorm.DB, exportDir string, interval time.Duration, retentionDays int) *ArchiveExporter {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		exportDir = os.TempDir()
	}
	return &ArchiveExporter{
		db:            db,
		exportDir:     exportDir,
		interval:      interval,
		retentionDays: retentionDays,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动导出循环
func (e *ArchiveExporter) Start(ctx context.Context) {
	go e.loop(ctx)
}

// Stop 停止导出循环
func (e *ArchiveExporter) Stop() {
	close(e.stopChan)
}

// ExportDir 获取导出目录
func (e *ArchiveExporter) ExportDir() string {
	return e.exportDir
}

// loop 导出循环,立即执行一次后按间隔重复
func (e *ArchiveExporter) loop(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			e.runOnce(ctx)
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runOnce 执行一轮导出与清理
func (e *ArchiveExporter) runOnce(ctx context.Context) {
	count, err := e.ExportArchived(ctx)
	if err != nil {
		logrus.WithError(err).Error("archive export failed")
	} else if count > 0 {
		logrus.WithField("exported", count).Info("archived processes exported")
	}
	if err := e.CleanupExpired(); err != nil {
		logrus.WithError(err).Error("archive cleanup failed")
	}
}

// ExportArchived 导出尚未落盘的已归档流程,返回本轮导出数量
// 导出文件按流程 ID 命名,已存在的文件视为已导出,不重复写入
func (e *ArchiveExporter) ExportArchived(ctx context.Context) (int, error) {
	var processes []*model.ProcessModel
	if err := e.db.WithContext(ctx).
		Where("archived = ? AND completed = ?", true, true).
		Find(&processes).Error; err != nil {
		return 0, fmt.Errorf("failed to load archived processes: %w", err)
	}

	exported := 0
	for _, proc := range processes {
		path := e.bundlePath(proc.ID)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := e.exportProcess(ctx, proc, path); err != nil {
			return exported, err
		}
		exported++
	}
	return exported, nil
}

// exportProcess 导出单个流程的归档包
func (e *ArchiveExporter) exportProcess(ctx context.Context, proc *model.ProcessModel, path string) error {
	bundle := &ArchiveBundle{
		Process:    proc,
		ExportedAt: time.Now(),
	}
	if err := e.db.WithContext(ctx).
		Where("process_id = ?", proc.ID).
		Order("created_at ASC").
		Find(&bundle.Documents).Error; err != nil {
		return fmt.Errorf("failed to load documents for %s: %w", proc.ID, err)
	}
	if err := e.db.WithContext(ctx).
		Where("process_id = ?", proc.ID).
		Order("created_at ASC").
		Find(&bundle.History).Error; err != nil {
		return fmt.Errorf("failed to load history for %s: %w", proc.ID, err)
	}
	if proc.IsHead {
		if err := e.db.WithContext(ctx).
			Where("process_id = ?", proc.ID).
			Find(&bundle.Connectors).Error; err != nil {
			return fmt.Errorf("failed to load connectors for %s: %w", proc.ID, err)
		}
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archive bundle for %s: %w", proc.ID, err)
	}

	// 先写临时文件再改名,避免半写文件被当成已导出
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write archive file for %s: %w", proc.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize archive file for %s: %w", proc.ID, err)
	}
	return nil
}

// CleanupExpired 删除超过保留期的导出文件
func (e *ArchiveExporter) CleanupExpired() error {
	if e.retentionDays <= 0 {
		return nil
	}
	entries, err := os.ReadDir(e.exportDir)
	if err != nil {
		return fmt.Errorf("failed to read export directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -e.retentionDays)
	for _, entry := range entries {
		if entry.IsDir() || !isArchiveFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(e.exportDir, entry.Name())); err != nil {
				logrus.WithError(err).WithField("file", entry.Name()).Warn("failed to delete expired archive")
			}
		}
	}
	return nil
}

// bundlePath 归档文件路径
func (e *ArchiveExporter) bundlePath(processID string) string {
	return filepath.Join(e.exportDir, "process_"+processID+".json")
}

// isArchiveFile 检查是否是归档导出文件
func isArchiveFile(filename string) bool {
	return strings.HasPrefix(filename, "process_") && strings.HasSuffix(filename, ".json")
}
