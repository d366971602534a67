package workspace

// Role 工作区成员角色
type Role string

// 角色（封闭集合）
const (
	RoleOwner        Role = "owner"
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
	RoleViewer       Role = "viewer"
)

// ParseRole 解析角色字符串
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleCollaborator, RoleViewer:
		return Role(s), true
	}
	return "", false
}

// Permission 工作区权限
type Permission string

// 权限（封闭集合）
const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
	PermissionShare  Permission = "share"
	PermissionAdmin  Permission = "admin"
)

// PermissionsForRole 角色到权限集合的固定映射
// 权限只由角色推导，绝不按用户单独配置
func PermissionsForRole(role Role) []Permission {
	switch role {
	case RoleOwner:
		return []Permission{PermissionRead, PermissionWrite, PermissionDelete, PermissionShare, PermissionAdmin}
	case RoleAdmin:
		// Admin 拥有全部权限，但不含删除工作区（删除工作区仅限 Owner，不在权限表内）
		return []Permission{PermissionRead, PermissionWrite, PermissionDelete, PermissionShare, PermissionAdmin}
	case RoleCollaborator:
		return []Permission{PermissionRead, PermissionWrite}
	case RoleViewer:
		return []Permission{PermissionRead}
	}
	return nil
}

// RoleHasPermission 检查角色是否拥有指定权限
func RoleHasPermission(role Role, perm Permission) bool {
	for _, p := range PermissionsForRole(role) {
		if p == perm {
			return true
		}
	}
	return false
}
