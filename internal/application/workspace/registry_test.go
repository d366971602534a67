package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainWorkspace "github.com/docuchat/backend/internal/domain/workspace"
	"github.com/docuchat/backend/internal/infrastructure/storage"
)

func setupRegistry(t *testing.T) *Registry {
	db, err := storage.OpenDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, storage.InitSchema(db))
	t.Cleanup(func() { _ = db.Close() })

	return NewRegistry(storage.NewWorkspaceRepository(db), storage.NewMessageRepository(db))
}

func createTestWorkspace(t *testing.T, r *Registry) *domainWorkspace.Workspace {
	ws, err := r.CreateWorkspace("owner", "Olivia", "Research", "shared docs")
	require.NoError(t, err)
	return ws
}

func TestCreateWorkspace(t *testing.T) {
	r := setupRegistry(t)
	ws := createTestWorkspace(t, r)

	assert.NotEmpty(t, ws.ID)
	assert.Equal(t, "owner", ws.OwnerID)
	assert.True(t, ws.IsActive)

	// 创建者自动成为 Owner
	member, err := r.GetMember(ws.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, domainWorkspace.RoleOwner, member.Role)

	// 名称必填
	_, err = r.CreateWorkspace("owner", "Olivia", "", "")
	assert.Error(t, err)
}

func TestInviteUser(t *testing.T) {
	r := setupRegistry(t)
	ws := createTestWorkspace(t, r)

	require.NoError(t, r.InviteUser(ws.ID, "owner", "u2", "Bob", domainWorkspace.RoleCollaborator))

	member, err := r.GetMember(ws.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, domainWorkspace.RoleCollaborator, member.Role)

	// 重复邀请
	err = r.InviteUser(ws.ID, "owner", "u2", "Bob", domainWorkspace.RoleViewer)
	assert.ErrorIs(t, err, domainWorkspace.ErrAlreadyMember)

	// Collaborator 没有 Share 权限，不能邀请
	err = r.InviteUser(ws.ID, "u2", "u3", "Carol", domainWorkspace.RoleViewer)
	assert.ErrorIs(t, err, domainWorkspace.ErrPermissionDenied)

	// Owner 角色只能通过所有权转移产生
	err = r.InviteUser(ws.ID, "owner", "u4", "Dave", domainWorkspace.RoleOwner)
	assert.ErrorIs(t, err, domainWorkspace.ErrInvalidRole)

	// 未知角色
	err = r.InviteUser(ws.ID, "owner", "u5", "Eve", domainWorkspace.Role("superuser"))
	assert.ErrorIs(t, err, domainWorkspace.ErrInvalidRole)

	// 未知工作区
	err = r.InviteUser("missing", "owner", "u6", "Frank", domainWorkspace.RoleViewer)
	assert.ErrorIs(t, err, domainWorkspace.ErrWorkspaceNotFound)
}

func TestChangeRole(t *testing.T) {
	r := setupRegistry(t)
	ws := createTestWorkspace(t, r)
	require.NoError(t, r.InviteUser(ws.ID, "owner", "u2", "Bob", domainWorkspace.RoleAdmin))
	require.NoError(t, r.InviteUser(ws.ID, "owner", "u3", "Carol", domainWorkspace.RoleViewer))

	// Admin 可以变更普通成员的角色
	require.NoError(t, r.ChangeRole(ws.ID, "u3", domainWorkspace.RoleCollaborator, "u2"))
	member, err := r.GetMember(ws.ID, "u3")
	require.NoError(t, err)
	assert.Equal(t, domainWorkspace.RoleCollaborator, member.Role)

	// Viewer/Collaborator 没有 Admin 权限
	err = r.ChangeRole(ws.ID, "u2", domainWorkspace.RoleViewer, "u3")
	assert.ErrorIs(t, err, domainWorkspace.ErrPermissionDenied)

	// 非 Owner 动不了 Owner 的角色
	err = r.ChangeRole(ws.ID, "owner", domainWorkspace.RoleViewer, "u2")
	assert.ErrorIs(t, err, domainWorkspace.ErrPermissionDenied)

	// 非 Owner 不能发起所有权转移
	err = r.ChangeRole(ws.ID, "u3", domainWorkspace.RoleOwner, "u2")
	assert.ErrorIs(t, err, domainWorkspace.ErrPermissionDenied)

	// Owner 把自己降级会留下零个 Owner
	err = r.ChangeRole(ws.ID, "owner", domainWorkspace.RoleAdmin, "owner")
	assert.ErrorIs(t, err, domainWorkspace.ErrInvariantViolation)
}

func TestOwnershipTransfer(t *testing.T) {
	r := setupRegistry(t)
	ws := createTestWorkspace(t, r)
	require.NoError(t, r.InviteUser(ws.ID, "owner", "u2", "Bob", domainWorkspace.RoleCollaborator))

	require.NoError(t, r.ChangeRole(ws.ID, "u2", domainWorkspace.RoleOwner, "owner"))

	// 新 Owner 生效，原 Owner 降为 Admin，Owner 数量始终为一
	newOwner, err := r.GetMember(ws.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, domainWorkspace.RoleOwner, newOwner.Role)

	previous, err := r.GetMember(ws.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, domainWorkspace.RoleAdmin, previous.Role)

	got, err := r.GetWorkspace(ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "u2", got.OwnerID)
}

func TestRemoveUser(t *testing.T) {
	r := setupRegistry(t)
	ws := createTestWorkspace(t, r)
	require.NoError(t, r.InviteUser(ws.ID, "owner", "u2", "Bob", domainWorkspace.RoleCollaborator))

	// Collaborator 没有 Admin 权限
	err := r.RemoveUser(ws.ID, "owner", "u2")
	assert.ErrorIs(t, err, domainWorkspace.ErrPermissionDenied)

	// 还有其他成员时 Owner 不能被移除
	err = r.RemoveUser(ws.ID, "owner", "owner")
	assert.ErrorIs(t, err, domainWorkspace.ErrCannotRemoveOwner)

	require.NoError(t, r.RemoveUser(ws.ID, "u2", "owner"))
	_, err = r.GetMember(ws.ID, "u2")
	assert.ErrorIs(t, err, domainWorkspace.ErrMemberNotFound)

	// Owner 作为最后一名成员移除自己，工作区随之停用
	require.NoError(t, r.RemoveUser(ws.ID, "owner", "owner"))
	got, err := r.GetWorkspace(ws.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestCheckPermission(t *testing.T) {
	r := setupRegistry(t)
	ws := createTestWorkspace(t, r)
	require.NoError(t, r.InviteUser(ws.ID, "owner", "u2", "Bob", domainWorkspace.RoleViewer))

	assert.True(t, r.CheckPermission(ws.ID, "owner", domainWorkspace.PermissionAdmin))
	assert.True(t, r.CheckPermission(ws.ID, "u2", domainWorkspace.PermissionRead))
	assert.False(t, r.CheckPermission(ws.ID, "u2", domainWorkspace.PermissionWrite))

	// 纯查询：未知用户或未知工作区一律 false，绝不报错
	assert.False(t, r.CheckPermission(ws.ID, "stranger", domainWorkspace.PermissionRead))
	assert.False(t, r.CheckPermission("missing", "owner", domainWorkspace.PermissionRead))
}

func TestListMembersRequiresMembership(t *testing.T) {
	r := setupRegistry(t)
	ws := createTestWorkspace(t, r)

	members, err := r.ListMembers(ws.ID, "owner")
	require.NoError(t, err)
	assert.Len(t, members, 1)

	_, err = r.ListMembers(ws.ID, "stranger")
	assert.ErrorIs(t, err, domainWorkspace.ErrPermissionDenied)
}

func TestStats(t *testing.T) {
	r := setupRegistry(t)
	ws := createTestWorkspace(t, r)
	require.NoError(t, r.InviteUser(ws.ID, "owner", "u2", "Bob", domainWorkspace.RoleViewer))

	stats, err := r.Stats(ws.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalMembers)
	assert.Equal(t, 0, stats.TotalMessages)
	assert.False(t, stats.LastActivity.IsZero())
}
