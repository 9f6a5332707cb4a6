package model

import (
	"errors"
	"time"
)

// 质询状态
const (
	QueryStatusOpen                 = "OPEN"
	QueryStatusRecirculationPending = "RECIRCULATION_PENDING"
	QueryStatusResolved             = "RESOLVED"
)

// QueryModel 质询数据模型
// 携带 recirculationFromStep 的质询只能通过全体审批人一致同意离开 RECIRCULATION_PENDING
type QueryModel struct {
	ID                    string     `gorm:"primaryKey;type:varchar(64)"`
	ProcessID             string     `gorm:"type:varchar(64);not null;index"`
	StepInstanceID        string     `gorm:"type:varchar(64);index"`
	RaisedBy              string     `gorm:"type:varchar(64);not null;index"`
	Text                  string     `gorm:"type:text;not null"`
	Status                string     `gorm:"type:varchar(32);not null;index"`
	RecirculationFromStep int        `gorm:"type:int"` // 回转目标历史步骤号,0 表示无回转
	ResolvedAt            *time.Time
	CreatedAt             time.Time `gorm:"not null;index"`
	UpdatedAt             time.Time `gorm:"not null"`
}

// TableName 指定表名
func (QueryModel) TableName() string {
	return "process_queries"
}

// Validate 验证质询模型
func (qm *QueryModel) Validate() error {
	if qm.ID == "" {
		return errors.New("query ID is required")
	}
	if qm.ProcessID == "" {
		return errors.New("process ID is required")
	}
	if qm.RaisedBy == "" {
		return errors.New("raiser ID is required")
	}
	if qm.Text == "" {
		return errors.New("query text is required")
	}
	if qm.Status == "" {
		qm.Status = QueryStatusOpen
	}
	return nil
}

// RecirculationApprovalModel 回转审批投票数据模型
// 质询发起时按历史步骤的执行人展开,每人一条,初始均为未同意
type RecirculationApprovalModel struct {
	ID         string     `gorm:"primaryKey;type:varchar(64)"`
	QueryID    string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_recirc_query_approver"`
	ApproverID string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_recirc_query_approver"`
	Approved   bool       `gorm:"not null;default:false"`
	Comments   string     `gorm:"type:text"`
	ApprovedAt *time.Time
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName 指定表名
func (RecirculationApprovalModel) TableName() string {
	return "query_recirculation_approvals"
}

// QueryDocumentModel 质询附带的文档变更数据模型
// requiresApproval 的变更需要审批人全体同意后才执行替换,且至多执行一次
type QueryDocumentModel struct {
	ID                 string    `gorm:"primaryKey;type:varchar(64)"`
	QueryID            string    `gorm:"type:varchar(64);not null;index"`
	DocumentID         string    `gorm:"type:varchar(64);not null"`
	UploadedBy         string    `gorm:"type:varchar(64);not null"`
	RequiresApproval   bool      `gorm:"not null"`
	IsReplacement      bool      `gorm:"not null;default:false"` // 原位替换时保留原签名
	ReplacesDocumentID string    `gorm:"type:varchar(64)"`
	Executed           bool      `gorm:"not null;default:false"` // 替换已执行,防止重复触发
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName 指定表名
func (QueryDocumentModel) TableName() string {
	return "query_documents"
}

// Validate 验证质询文档模型
func (qd *QueryDocumentModel) Validate() error {
	if qd.ID == "" {
		return errors.New("query document ID is required")
	}
	if qd.QueryID == "" {
		return errors.New("query ID is required")
	}
	if qd.DocumentID == "" {
		return errors.New("document ID is required")
	}
	if qd.IsReplacement && qd.ReplacesDocumentID == "" {
		return errors.New("replacement requires the replaced document ID")
	}
	return nil
}

// QueryDocumentApprovalModel 文档变更审批投票数据模型
type QueryDocumentApprovalModel struct {
	ID              string     `gorm:"primaryKey;type:varchar(64)"`
	QueryDocumentID string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_qdoc_approver"`
	ApproverID      string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_qdoc_approver"`
	Approved        bool       `gorm:"not null;default:false"`
	ApprovedAt      *time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName 指定表名
func (QueryDocumentApprovalModel) TableName() string {
	return "query_document_approvals"
}

// DoubtModel 质询追问数据模型
type DoubtModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	QueryID    string    `gorm:"type:varchar(64);not null;index"`
	RaisedBy   string    `gorm:"type:varchar(64);not null"`
	Text       string    `gorm:"type:text;not null"`
	Answer     string    `gorm:"type:text"`
	AnsweredBy string    `gorm:"type:varchar(64)"`
	CreatedAt  time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName 指定表名
func (DoubtModel) TableName() string {
	return "query_doubts"
}

// Validate 验证追问模型
func (dm *DoubtModel) Validate() error {
	if dm.ID == "" {
		return errors.New("doubt ID is required")
	}
	if dm.QueryID == "" {
		return errors.New("query ID is required")
	}
	if dm.Text == "" {
		return errors.New("doubt text is required")
	}
	return nil
}
