package engine

import (
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// 文档台账操作
// 全部是对内存中文档条目的显式修改,持久化由调用方在同一事务内完成
// 同一步骤上签署与驳回互斥,撤销操作清除后才能转换

// SignEntry 在给定步骤签署文档
func SignEntry(doc *model.DocumentEntryModel, actorID string, stepNumber int) error {
	if doc.IsRejectedAt(stepNumber) {
		return failed(ReasonAlreadyRejectedAtStep, "document %s was rejected at step %d and cannot be signed", doc.DocumentID, stepNumber)
	}
	if doc.IsSignedBy(actorID) {
		return failed(ReasonAlreadySigned, "document %s is already signed by %s", doc.DocumentID, actorID)
	}
	doc.SignedBy = doc.SignedBy.Add(actorID)
	return nil
}

// RejectEntry 在给定步骤驳回文档
// 同一操作人在同一步骤先签署后驳回需要先撤销签名
func RejectEntry(doc *model.DocumentEntryModel, actorID, actorRole string, stepNumber int, reason string) error {
	if doc.IsSignedBy(actorID) {
		return failed(ReasonAlreadySignedByActor, "document %s is signed by %s; revoke the signature before rejecting", doc.DocumentID, actorID)
	}
	doc.Rejection = &model.Rejection{
		Reason:     reason,
		StepNumber: stepNumber,
		ActorUser:  actorID,
		ActorRole:  actorRole,
	}
	return nil
}

// RevokeSignEntry 撤销签名
func RevokeSignEntry(doc *model.DocumentEntryModel, actorID string) error {
	if !doc.IsSignedBy(actorID) {
		return failed(ReasonNothingToRevoke, "actor %s has no signature on document %s", actorID, doc.DocumentID)
	}
	doc.SignedBy = doc.SignedBy.Remove(actorID)
	return nil
}

// RevokeRejectEntry 撤销驳回
// 只有在当前步骤驳回的操作人本人可以撤销
func RevokeRejectEntry(doc *model.DocumentEntryModel, actorID string, stepNumber int) error {
	if doc.Rejection == nil || doc.Rejection.ActorUser != actorID || doc.Rejection.StepNumber != stepNumber {
		return failed(ReasonNothingToRevoke, "actor %s has no rejection on document %s at step %d", actorID, doc.DocumentID, stepNumber)
	}
	doc.Rejection = nil
	return nil
}

// ReplaceEntry 把文档条目改指到新文档
// carrySignatures 为 true 时保留原签名(原位替换且审批人一致同意携带),
// 否则新文档在法定人数计算中视为全新文档,旧签名与驳回不随迁
func ReplaceEntry(doc *model.DocumentEntryModel, newDocumentID string, carrySignatures bool) {
	doc.ReplacedFrom = doc.DocumentID
	doc.DocumentID = newDocumentID
	if !carrySignatures {
		doc.SignedBy = model.StringSet{}
		doc.Rejection = nil
	}
}
