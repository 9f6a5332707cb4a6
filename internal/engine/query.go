package engine

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// loadQuery 加载质询,不存在时返回 NotFound
func loadQuery(tx *gorm.DB, queryID string) (*model.QueryModel, error) {
	var query model.QueryModel
	if err := tx.Where("id = ?", queryID).First(&query).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("query %s not found", queryID)
		}
		return nil, err
	}
	return &query, nil
}

// ResolveQuery 答复并关闭质询
// 携带回转的质询不能直接关闭,必须经全体审批人同意走回转流程
func (e *Engine) ResolveQuery(ctx context.Context, queryID, actorID, response string) (*model.QueryModel, error) {
	var query *model.QueryModel
	_, err := e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		var err error
		query, err = loadQuery(tx, queryID)
		if err != nil {
			return err
		}
		switch query.Status {
		case model.QueryStatusOpen:
			// 可以关闭
		case model.QueryStatusRecirculationPending:
			return failed(ReasonInvalidQueryState, "query %s awaits recirculation approval and cannot be closed directly", queryID)
		default:
			return failed(ReasonAlreadyResolved, "query %s is already resolved", queryID)
		}

		now := time.Now()
		res := tx.Model(&model.QueryModel{}).
			Where("id = ? AND status = ?", queryID, model.QueryStatusOpen).
			Updates(map[string]interface{}{
				"status":      model.QueryStatusResolved,
				"resolved_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict(ReasonAlreadyResolved, "query %s was resolved concurrently", queryID)
		}
		query.Status = model.QueryStatusResolved
		query.ResolvedAt = &now

		if query.RaisedBy != "" && query.RaisedBy != actorID {
			if err := emitFact(tx, out, Fact{
				Kind:        model.NotificationQueryResponse,
				RecipientID: query.RaisedBy,
				ProcessID:   query.ProcessID,
				QueryID:     query.ID,
				Metadata:    model.Metadata{"response": response, "responded_by": actorID},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return query, nil
}

// RaiseDoubt 对质询发起追问
func (e *Engine) RaiseDoubt(ctx context.Context, queryID, actorID, text string) (*model.DoubtModel, error) {
	var doubt *model.DoubtModel
	_, err := e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		query, err := loadQuery(tx, queryID)
		if err != nil {
			return err
		}
		now := time.Now()
		doubt = &model.DoubtModel{
			ID:        newID(),
			QueryID:   query.ID,
			RaisedBy:  actorID,
			Text:      text,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := doubt.Validate(); err != nil {
			return failed("", "invalid doubt: %v", err)
		}
		if err := tx.Create(doubt).Error; err != nil {
			return err
		}
		if query.RaisedBy != "" && query.RaisedBy != actorID {
			return emitFact(tx, out, Fact{
				Kind:        model.NotificationQueryDoubt,
				RecipientID: query.RaisedBy,
				ProcessID:   query.ProcessID,
				QueryID:     query.ID,
				Metadata:    model.Metadata{"doubt_id": doubt.ID, "raised_by": actorID},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doubt, nil
}

// AnswerDoubt 答复追问
func (e *Engine) AnswerDoubt(ctx context.Context, doubtID, actorID, answer string) (*model.DoubtModel, error) {
	var doubt model.DoubtModel
	_, err := e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		if err := tx.Where("id = ?", doubtID).First(&doubt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("doubt %s not found", doubtID)
			}
			return err
		}
		if doubt.Answer != "" {
			return failed(ReasonAlreadyResolved, "doubt %s is already answered", doubtID)
		}
		now := time.Now()
		doubt.Answer = answer
		doubt.AnsweredBy = actorID
		doubt.UpdatedAt = now
		if err := tx.Model(&model.DoubtModel{}).
			Where("id = ?", doubtID).
			Updates(map[string]interface{}{
				"answer":      answer,
				"answered_by": actorID,
				"updated_at":  now,
			}).Error; err != nil {
			return err
		}
		if doubt.RaisedBy != "" && doubt.RaisedBy != actorID {
			query, err := loadQuery(tx, doubt.QueryID)
			if err != nil {
				return err
			}
			return emitFact(tx, out, Fact{
				Kind:        model.NotificationQueryDoubtResponse,
				RecipientID: doubt.RaisedBy,
				ProcessID:   query.ProcessID,
				QueryID:     doubt.QueryID,
				Metadata:    model.Metadata{"doubt_id": doubt.ID, "answered_by": actorID},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doubt, nil
}
