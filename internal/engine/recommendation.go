package engine

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// RequestRecommendation 向指定用户征询意见
// 征询不占用法定人数,也不阻塞步骤推进
func (e *Engine) RequestRecommendation(ctx context.Context, processID, stepInstanceID, requesterID, recommenderID, text string) (*model.RecommendationModel, error) {
	var rec *model.RecommendationModel
	_, err := e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		proc, err := loadProcess(tx, processID)
		if err != nil {
			return err
		}
		now := time.Now()
		rec = &model.RecommendationModel{
			ID:             newID(),
			ProcessID:      proc.ID,
			StepInstanceID: stepInstanceID,
			RequestedBy:    requesterID,
			RecommenderID:  recommenderID,
			Text:           text,
			Status:         model.RecommendationStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := rec.Validate(); err != nil {
			return failed("", "invalid recommendation request: %v", err)
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		return emitFact(tx, out, Fact{
			Kind:        model.NotificationRecommendationRequest,
			RecipientID: recommenderID,
			ProcessID:   proc.ID,
			Metadata:    model.Metadata{"process_name": proc.Name, "requested_by": requesterID},
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// RespondRecommendation 答复征询
func (e *Engine) RespondRecommendation(ctx context.Context, recommendationID, actorID, response string) (*model.RecommendationModel, error) {
	var rec model.RecommendationModel
	_, err := e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		if err := tx.Where("id = ?", recommendationID).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("recommendation %s not found", recommendationID)
			}
			return err
		}
		if rec.RecommenderID != actorID {
			return failed(ReasonNotAssignee, "actor %s is not the recommender of %s", actorID, recommendationID)
		}
		if rec.Status == model.RecommendationStatusResponded {
			return failed(ReasonAlreadyResolved, "recommendation %s is already responded", recommendationID)
		}
		now := time.Now()
		rec.Response = response
		rec.Status = model.RecommendationStatusResponded
		rec.RespondedAt = &now
		rec.UpdatedAt = now
		res := tx.Model(&model.RecommendationModel{}).
			Where("id = ? AND status = ?", recommendationID, model.RecommendationStatusPending).
			Updates(map[string]interface{}{
				"response":     response,
				"status":       model.RecommendationStatusResponded,
				"responded_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict(ReasonAlreadyResolved, "recommendation %s was responded concurrently", recommendationID)
		}
		return emitFact(tx, out, Fact{
			Kind:        model.NotificationRecommendationClarifResp,
			RecipientID: rec.RequestedBy,
			ProcessID:   rec.ProcessID,
			Metadata:    model.Metadata{"recommendation_id": rec.ID, "responded_by": actorID},
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RaiseClarification 就征询提出澄清问题
func (e *Engine) RaiseClarification(ctx context.Context, recommendationID, actorID, question string) (*model.ClarificationModel, error) {
	var clar *model.ClarificationModel
	_, err := e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		var rec model.RecommendationModel
		if err := tx.Where("id = ?", recommendationID).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("recommendation %s not found", recommendationID)
			}
			return err
		}
		now := time.Now()
		clar = &model.ClarificationModel{
			ID:               newID(),
			RecommendationID: rec.ID,
			RaisedBy:         actorID,
			Question:         question,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.Create(clar).Error; err != nil {
			return err
		}
		// 澄清由征询对侧发起,通知发给另一方
		recipient := rec.RequestedBy
		if actorID == rec.RequestedBy {
			recipient = rec.RecommenderID
		}
		return emitFact(tx, out, Fact{
			Kind:        model.NotificationRecommendationClarifReq,
			RecipientID: recipient,
			ProcessID:   rec.ProcessID,
			Metadata:    model.Metadata{"recommendation_id": rec.ID, "raised_by": actorID},
		})
	})
	if err != nil {
		return nil, err
	}
	return clar, nil
}

// AnswerClarification 答复澄清问题
func (e *Engine) AnswerClarification(ctx context.Context, clarificationID, actorID, answer string) (*model.ClarificationModel, error) {
	var clar model.ClarificationModel
	_, err := e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		if err := tx.Where("id = ?", clarificationID).First(&clar).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("clarification %s not found", clarificationID)
			}
			return err
		}
		if clar.Answer != "" {
			return failed(ReasonAlreadyResolved, "clarification %s is already answered", clarificationID)
		}
		var rec model.RecommendationModel
		if err := tx.Where("id = ?", clar.RecommendationID).First(&rec).Error; err != nil {
			return err
		}
		now := time.Now()
		clar.Answer = answer
		clar.UpdatedAt = now
		if err := tx.Model(&model.ClarificationModel{}).
			Where("id = ?", clarificationID).
			Updates(map[string]interface{}{"answer": answer, "updated_at": now}).Error; err != nil {
			return err
		}
		return emitFact(tx, out, Fact{
			Kind:        model.NotificationRecommendationClarifResp,
			RecipientID: clar.RaisedBy,
			ProcessID:   rec.ProcessID,
			Metadata:    model.Metadata{"recommendation_id": rec.ID, "answered_by": actorID},
		})
	})
	if err != nil {
		return nil, err
	}
	return &clar, nil
}
