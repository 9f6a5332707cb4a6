package auth

// GetPermissionModel 获取 OpenFGA 权限模型定义
func GetPermissionModel() string {
	return `model
  schema 1.1

type user

type workflow
  relations
    define owner: [user]
    define viewer: [user]
    define editor: [user] or owner

type process
  relations
    define initiator: [user]
    define assignee: [user]
    define approver: [user]
    define viewer: [user] or initiator or assignee or approver
    define operator: [user] or assignee or approver`
}


