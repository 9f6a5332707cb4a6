package model

import (
	"errors"
	"time"
)

// WorkKind 步骤工作类型
type WorkKind string

const (
	WorkKindSign         WorkKind = "sign"         // 签署文档
	WorkKindUpload       WorkKind = "upload"       // 上传文档
	WorkKindPublish      WorkKind = "publish"      // 发布到分支机构
	WorkKindClerkHandoff WorkKind = "clerkHandoff" // 转交文书岗
	WorkKindCustom       WorkKind = "custom"       // 自定义步骤
)

// ActorRef 步骤执行人引用
// 可以是具体用户,也可以是部门内的角色(展开为多个用户)
type ActorRef struct {
	UserID       string `json:"user_id,omitempty"`
	RoleID       string `json:"role_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
}

// Step 工作流步骤定义
type Step struct {
	StepNumber    int        `json:"step_number"`
	StepName      string     `json:"step_name"`
	WorkKind      WorkKind   `json:"work_kind"`
	Assignees     []ActorRef `json:"assignees"`
	AllowParallel bool       `json:"allow_parallel"` // 多个执行人是否可并行处理
}

// HasAssignee 判断用户是否是该步骤的执行人
func (s *Step) HasAssignee(userID string) bool {
	for _, a := range s.Assignees {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// WorkflowModel 工作流定义数据模型
// 流程创建后工作流快照不可变,只有未到达的步骤可以通过更新操作调整
type WorkflowModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:varchar(128);not null;index"`
	Version   int       `gorm:"type:int;not null"`
	Steps     StepList  `gorm:"type:jsonb;not null"` // 步骤定义列表
	CreatedBy string    `gorm:"type:varchar(64);index"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (WorkflowModel) TableName() string {
	return "workflows"
}

// Validate 验证工作流模型
func (wm *WorkflowModel) Validate() error {
	if wm.ID == "" {
		return errors.New("workflow ID is required")
	}
	if wm.Name == "" {
		return errors.New("workflow name is required")
	}
	if len(wm.Steps) == 0 {
		return errors.New("workflow steps are required")
	}
	for i, step := range wm.Steps {
		if step.StepNumber != i+1 {
			return errors.New("workflow step numbers must be contiguous starting at 1")
		}
		if len(step.Assignees) == 0 {
			return errors.New("workflow step assignees are required")
		}
	}
	return nil
}

// StepByNumber 根据步骤号查找步骤
func (wm *WorkflowModel) StepByNumber(n int) *Step {
	for i := range wm.Steps {
		if wm.Steps[i].StepNumber == n {
			return &wm.Steps[i]
		}
	}
	return nil
}
