package workspace

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	domainWorkspace "github.com/docuchat/backend/internal/domain/workspace"
	"github.com/docuchat/backend/internal/infrastructure/log"
)

// Registry 工作区注册中心
// 持有工作区实体、成员表和角色，是所有权限判定的唯一依据
// 成员表读多写少：写操作互斥，读操作共享
type Registry struct {
	mu sync.RWMutex

	workspaces domainWorkspace.Repository
	messages   domainWorkspace.MessageRepository
	logger     *slog.Logger
}

// NewRegistry 创建工作区注册中心
func NewRegistry(workspaces domainWorkspace.Repository, messages domainWorkspace.MessageRepository) *Registry {
	return &Registry{
		workspaces: workspaces,
		messages:   messages,
		logger:     log.NewModuleLogger("workspace", "registry"),
	}
}

// CreateWorkspace 创建工作区，创建者自动成为 Owner
func (r *Registry) CreateWorkspace(ownerID, ownerName, name, description string) (*domainWorkspace.Workspace, error) {
	ws := &domainWorkspace.Workspace{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
		IsActive:    true,
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.workspaces.SaveWorkspace(ws); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}

	owner := &domainWorkspace.Member{
		UserID:       ownerID,
		Username:     ownerName,
		Role:         domainWorkspace.RoleOwner,
		JoinedAt:     ws.CreatedAt,
		LastActiveAt: ws.CreatedAt,
	}
	if err := r.workspaces.SaveMember(ws.ID, owner); err != nil {
		return nil, fmt.Errorf("failed to enroll owner: %w", err)
	}

	r.logger.Info("workspace created",
		"workspaceID", ws.ID,
		"ownerID", ownerID,
		"name", name,
	)
	return ws, nil
}

// GetWorkspace 获取工作区
func (r *Registry) GetWorkspace(workspaceID string) (*domainWorkspace.Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findWorkspace(workspaceID)
}

// ListWorkspacesForUser 列出用户所属的全部工作区
func (r *Registry) ListWorkspacesForUser(userID string) ([]*domainWorkspace.Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workspaces.ListWorkspacesByUser(userID)
}

// InviteUser 邀请用户加入工作区
// 邀请者必须持有 Share 权限；角色必须是四个已定义角色之一（不允许直接授予 Owner）
func (r *Registry) InviteUser(workspaceID, actorID, userID, username string, role domainWorkspace.Role) error {
	if _, ok := domainWorkspace.ParseRole(string(role)); !ok {
		return domainWorkspace.ErrInvalidRole
	}
	if role == domainWorkspace.RoleOwner {
		// Owner 只能通过所有权转移产生
		return domainWorkspace.ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ws, err := r.findWorkspace(workspaceID)
	if err != nil {
		return err
	}
	if !ws.IsActive {
		return domainWorkspace.ErrWorkspaceInactive
	}

	actor, err := r.workspaces.FindMember(workspaceID, actorID)
	if err != nil {
		return fmt.Errorf("failed to load actor: %w", err)
	}
	if actor == nil || !actor.HasPermission(domainWorkspace.PermissionShare) {
		return domainWorkspace.ErrPermissionDenied
	}

	existing, err := r.workspaces.FindMember(workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to load member: %w", err)
	}
	if existing != nil {
		return domainWorkspace.ErrAlreadyMember
	}

	now := time.Now().UTC()
	member := &domainWorkspace.Member{
		UserID:       userID,
		Username:     username,
		Role:         role,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	if err := r.workspaces.SaveMember(workspaceID, member); err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}

	r.logger.Info("user invited",
		"workspaceID", workspaceID,
		"userID", userID,
		"role", role,
		"invitedBy", actorID,
	)
	return nil
}

// ChangeRole 变更成员角色
// 操作者必须持有 Admin 权限；Owner 不会被非 Owner 降级；
// 授予 Owner 角色即所有权转移，原 Owner 自动降为 Admin，
// 任何会导致 Owner 数量不为一的变更都会失败
func (r *Registry) ChangeRole(workspaceID, targetUserID string, newRole domainWorkspace.Role, actingUserID string) error {
	if _, ok := domainWorkspace.ParseRole(string(newRole)); !ok {
		return domainWorkspace.ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ws, err := r.findWorkspace(workspaceID)
	if err != nil {
		return err
	}

	actor, err := r.workspaces.FindMember(workspaceID, actingUserID)
	if err != nil {
		return fmt.Errorf("failed to load actor: %w", err)
	}
	if actor == nil || !actor.HasPermission(domainWorkspace.PermissionAdmin) {
		return domainWorkspace.ErrPermissionDenied
	}

	target, err := r.workspaces.FindMember(workspaceID, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to load target member: %w", err)
	}
	if target == nil {
		return domainWorkspace.ErrMemberNotFound
	}

	// Owner 的角色只有 Owner 自己能动
	if target.Role == domainWorkspace.RoleOwner && actor.Role != domainWorkspace.RoleOwner {
		return domainWorkspace.ErrPermissionDenied
	}

	if newRole == domainWorkspace.RoleOwner {
		// 所有权转移，只有现任 Owner 可以发起
		if actor.Role != domainWorkspace.RoleOwner {
			return domainWorkspace.ErrPermissionDenied
		}
		if target.Role == domainWorkspace.RoleOwner {
			return nil
		}

		previousOwner, err := r.workspaces.FindMember(workspaceID, ws.OwnerID)
		if err != nil {
			return fmt.Errorf("failed to load current owner: %w", err)
		}
		if previousOwner == nil {
			return domainWorkspace.ErrInvariantViolation
		}

		previousOwner.Role = domainWorkspace.RoleAdmin
		if err := r.workspaces.SaveMember(workspaceID, previousOwner); err != nil {
			return fmt.Errorf("failed to demote previous owner: %w", err)
		}
		target.Role = domainWorkspace.RoleOwner
		if err := r.workspaces.SaveMember(workspaceID, target); err != nil {
			return fmt.Errorf("failed to promote new owner: %w", err)
		}
		ws.OwnerID = targetUserID
		if err := r.workspaces.SaveWorkspace(ws); err != nil {
			return fmt.Errorf("failed to update workspace owner: %w", err)
		}

		r.logger.Info("ownership transferred",
			"workspaceID", workspaceID,
			"from", previousOwner.UserID,
			"to", targetUserID,
		)
		return nil
	}

	// 把唯一的 Owner 降级会留下零个 Owner
	if target.Role == domainWorkspace.RoleOwner {
		return domainWorkspace.ErrInvariantViolation
	}

	target.Role = newRole
	if err := r.workspaces.SaveMember(workspaceID, target); err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}

	r.logger.Info("role changed",
		"workspaceID", workspaceID,
		"userID", targetUserID,
		"newRole", newRole,
		"changedBy", actingUserID,
	)
	return nil
}

// RemoveUser 移除成员
// 操作者必须持有 Admin 权限；Owner 在还有其他成员时不能被移除（先转移所有权）；
// Owner 作为最后一名成员移除自己时，工作区随之停用
func (r *Registry) RemoveUser(workspaceID, targetUserID, actingUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, err := r.findWorkspace(workspaceID)
	if err != nil {
		return err
	}

	actor, err := r.workspaces.FindMember(workspaceID, actingUserID)
	if err != nil {
		return fmt.Errorf("failed to load actor: %w", err)
	}
	if actor == nil || !actor.HasPermission(domainWorkspace.PermissionAdmin) {
		return domainWorkspace.ErrPermissionDenied
	}

	target, err := r.workspaces.FindMember(workspaceID, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to load target member: %w", err)
	}
	if target == nil {
		return domainWorkspace.ErrMemberNotFound
	}

	if target.Role == domainWorkspace.RoleOwner {
		members, err := r.workspaces.ListMembers(workspaceID)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}
		if len(members) > 1 {
			return domainWorkspace.ErrCannotRemoveOwner
		}

		// Owner 是最后一名成员，移除后停用工作区
		if err := r.workspaces.RemoveMember(workspaceID, targetUserID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		ws.IsActive = false
		if err := r.workspaces.SaveWorkspace(ws); err != nil {
			return fmt.Errorf("failed to deactivate workspace: %w", err)
		}

		r.logger.Info("workspace deactivated, last member removed",
			"workspaceID", workspaceID,
			"userID", targetUserID,
		)
		return nil
	}

	if err := r.workspaces.RemoveMember(workspaceID, targetUserID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	r.logger.Info("user removed",
		"workspaceID", workspaceID,
		"userID", targetUserID,
		"removedBy", actingUserID,
	)
	return nil
}

// CheckPermission 检查用户在工作区内是否持有指定权限
// 纯查询：未知工作区或非成员一律返回 false，绝不报错
func (r *Registry) CheckPermission(workspaceID, userID string, perm domainWorkspace.Permission) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	member, err := r.workspaces.FindMember(workspaceID, userID)
	if err != nil || member == nil {
		return false
	}
	return member.HasPermission(perm)
}

// GetMember 获取成员信息
func (r *Registry) GetMember(workspaceID, userID string) (*domainWorkspace.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	member, err := r.workspaces.FindMember(workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, domainWorkspace.ErrMemberNotFound
	}
	return member, nil
}

// ListMembers 列出工作区全部成员
// 调用者必须是成员（Read 权限）
func (r *Registry) ListMembers(workspaceID, actingUserID string) ([]*domainWorkspace.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, err := r.findWorkspace(workspaceID); err != nil {
		return nil, err
	}

	actor, err := r.workspaces.FindMember(workspaceID, actingUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if actor == nil || !actor.HasPermission(domainWorkspace.PermissionRead) {
		return nil, domainWorkspace.ErrPermissionDenied
	}

	return r.workspaces.ListMembers(workspaceID)
}

// TouchMember 更新成员最后活跃时间
func (r *Registry) TouchMember(workspaceID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, err := r.workspaces.FindMember(workspaceID, userID)
	if err != nil || member == nil {
		return err
	}
	member.LastActiveAt = time.Now().UTC()
	return r.workspaces.SaveMember(workspaceID, member)
}

// Stats 工作区统计信息
// OnlineUsers 由调用方根据连接中心的在线数据填充
func (r *Registry) Stats(workspaceID string) (*domainWorkspace.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ws, err := r.findWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}

	members, err := r.workspaces.ListMembers(workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	msgCount, err := r.messages.Count(workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	stats := &domainWorkspace.Stats{
		WorkspaceID:   workspaceID,
		TotalMembers:  len(members),
		TotalMessages: msgCount,
		CreatedAt:     ws.CreatedAt,
	}
	for _, m := range members {
		if m.LastActiveAt.After(stats.LastActivity) {
			stats.LastActivity = m.LastActiveAt
		}
	}
	return stats, nil
}

// findWorkspace 加载工作区，调用方持有锁
func (r *Registry) findWorkspace(workspaceID string) (*domainWorkspace.Workspace, error) {
	ws, err := r.workspaces.FindWorkspace(workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	if ws == nil {
		return nil, domainWorkspace.ErrWorkspaceNotFound
	}
	return ws, nil
}
