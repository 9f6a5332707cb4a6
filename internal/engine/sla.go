package engine

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// ScanOverdue 扫描超过处理期限的步骤实例并发出超时事实
// 条件更新保证每条实例的超时通知至多发送一次,返回本轮新发现的超时数量
func (e *Engine) ScanOverdue(ctx context.Context) (int, error) {
	count := 0
	_, err := e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		now := time.Now()
		var overdue []model.StepInstanceModel
		err := tx.Where("status IN ? AND deadline IS NOT NULL AND deadline < ? AND overdue_notified = ?",
			[]string{model.StepInstanceStatusPending, model.StepInstanceStatusInProgress}, now, false).
			Order("deadline ASC").Find(&overdue).Error
		if err != nil {
			return err
		}
		for i := range overdue {
			inst := &overdue[i]
			res := tx.Model(&model.StepInstanceModel{}).
				Where("id = ? AND overdue_notified = ?", inst.ID, false).
				Updates(map[string]interface{}{"overdue_notified": true, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			count++
			proc, err := loadProcess(tx, inst.ProcessID)
			if err != nil {
				return err
			}
			if err := emitFact(tx, out, Fact{
				Kind:        model.NotificationProcessOverdue,
				RecipientID: inst.AssigneeID,
				ProcessID:   inst.ProcessID,
				Metadata: model.Metadata{
					"process_name": proc.Name,
					"step_number":  inst.StepNumber,
					"deadline":     inst.Deadline,
				},
			}); err != nil {
				return err
			}
			// 超时同时上报发起人,便于催办
			if proc.InitiatorID != "" && proc.InitiatorID != inst.AssigneeID {
				if err := emitFact(tx, out, Fact{
					Kind:        model.NotificationProcessOverdue,
					RecipientID: proc.InitiatorID,
					ProcessID:   inst.ProcessID,
					Metadata: model.Metadata{
						"process_name": proc.Name,
						"step_number":  inst.StepNumber,
						"assignee":     inst.AssigneeID,
					},
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return count, err
}
