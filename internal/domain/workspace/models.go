package workspace

import (
	"fmt"
	"time"
)

// Workspace 协作工作区
// 一个工作区拥有独立的成员表和一条只追加的消息日志
type Workspace struct {
	ID          string    `json:"id"`          // 工作区 ID (UUID)
	Name        string    `json:"name"`        // 工作区名称
	Description string    `json:"description"` // 描述
	OwnerID     string    `json:"owner_id"`    // Owner 用户 ID
	CreatedAt   time.Time `json:"created_at"`  // 创建时间
	IsActive    bool      `json:"is_active"`   // 是否活跃（停用后拒绝新事件）
}

// Validate 验证工作区信息
func (w *Workspace) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("workspace name is required")
	}
	if w.OwnerID == "" {
		return fmt.Errorf("workspace owner is required")
	}
	return nil
}

// Member 工作区成员
type Member struct {
	UserID       string    `json:"user_id"`        // 用户 ID（由外部身份系统提供）
	Username     string    `json:"username"`       // 显示名称
	Role         Role      `json:"role"`           // 角色
	JoinedAt     time.Time `json:"joined_at"`      // 加入时间
	LastActiveAt time.Time `json:"last_active_at"` // 最后活跃时间
}

// Permissions 成员当前权限集合（由角色推导）
func (m *Member) Permissions() []Permission {
	return PermissionsForRole(m.Role)
}

// HasPermission 检查成员是否拥有指定权限
func (m *Member) HasPermission(perm Permission) bool {
	return RoleHasPermission(m.Role, perm)
}

// Stats 工作区统计信息
type Stats struct {
	WorkspaceID  string    `json:"workspace_id"`
	TotalMembers int       `json:"total_members"`
	OnlineUsers  int       `json:"online_users"`
	TotalMessages int      `json:"total_messages"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}
