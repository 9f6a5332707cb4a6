package model

import (
	"errors"
	"time"
)

// UserRoleModel 用户角色归属数据模型
// 引擎把基于角色/部门的执行人引用展开为具体用户时查询该表
// 用户与会话管理由外部身份系统负责,这里只保留展开所需的归属关系
type UserRoleModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	UserID       string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_role_dept"`
	RoleID       string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_role_dept;index"`
	DepartmentID string    `gorm:"type:varchar(64);uniqueIndex:idx_user_role_dept;index"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName 指定表名
func (UserRoleModel) TableName() string {
	return "user_roles"
}

// Validate 验证用户角色模型
func (urm *UserRoleModel) Validate() error {
	if urm.ID == "" {
		return errors.New("user role ID is required")
	}
	if urm.UserID == "" {
		return errors.New("user ID is required")
	}
	if urm.RoleID == "" {
		return errors.New("role ID is required")
	}
	return nil
}
