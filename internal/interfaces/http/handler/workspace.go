package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/backend/internal/application/session"
	appWorkspace "github.com/docuchat/backend/internal/application/workspace"
	domainWorkspace "github.com/docuchat/backend/internal/domain/workspace"
	"github.com/docuchat/backend/internal/interfaces/http/response"
)

// WorkspaceHandler 工作区处理器
type WorkspaceHandler struct {
	registry *appWorkspace.Registry
	hub      session.Hub
}

// NewWorkspaceHandler 创建 WorkspaceHandler
func NewWorkspaceHandler(registry *appWorkspace.Registry, hub session.Hub) *WorkspaceHandler {
	return &WorkspaceHandler{registry: registry, hub: hub}
}

// CreateWorkspaceRequest 创建工作区请求
type CreateWorkspaceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Create 创建工作区，调用者自动成为 Owner
// POST /api/v1/workspaces
func (h *WorkspaceHandler) Create(c *gin.Context) {
	userID, username, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	ws, err := h.registry.CreateWorkspace(userID, username, req.Name, req.Description)
	if err != nil {
		workspaceError(c, err)
		return
	}
	response.Success(c, ws)
}

// List 列出调用者所属的全部工作区
// GET /api/v1/workspaces
func (h *WorkspaceHandler) List(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	workspaces, err := h.registry.ListWorkspacesForUser(userID)
	if err != nil {
		workspaceError(c, err)
		return
	}
	response.Success(c, workspaces)
}

// Stats 工作区统计信息
// GET /api/v1/workspaces/:id/stats
func (h *WorkspaceHandler) Stats(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}
	workspaceID := c.Param("id")

	if !h.registry.CheckPermission(workspaceID, userID, domainWorkspace.PermissionRead) {
		workspaceError(c, domainWorkspace.ErrPermissionDenied)
		return
	}

	stats, err := h.registry.Stats(workspaceID)
	if err != nil {
		workspaceError(c, err)
		return
	}
	stats.OnlineUsers = len(h.hub.Presence(workspaceID))
	response.Success(c, stats)
}

// Members 列出工作区成员
// GET /api/v1/workspaces/:id/members
func (h *WorkspaceHandler) Members(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	members, err := h.registry.ListMembers(c.Param("id"), userID)
	if err != nil {
		workspaceError(c, err)
		return
	}
	response.Success(c, members)
}

// InviteRequest 邀请请求
type InviteRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Username string `json:"username" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// Invite 邀请用户加入工作区
// POST /api/v1/workspaces/:id/members
func (h *WorkspaceHandler) Invite(c *gin.Context) {
	actorID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	role, ok := domainWorkspace.ParseRole(req.Role)
	if !ok {
		workspaceError(c, domainWorkspace.ErrInvalidRole)
		return
	}

	if err := h.registry.InviteUser(c.Param("id"), actorID, req.UserID, req.Username, role); err != nil {
		workspaceError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

// ChangeRoleRequest 角色变更请求
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChangeRole 变更成员角色（授予 owner 即所有权转移）
// PUT /api/v1/workspaces/:id/members/:userId/role
func (h *WorkspaceHandler) ChangeRole(c *gin.Context) {
	actorID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	role, ok := domainWorkspace.ParseRole(req.Role)
	if !ok {
		workspaceError(c, domainWorkspace.ErrInvalidRole)
		return
	}

	if err := h.registry.ChangeRole(c.Param("id"), c.Param("userId"), role, actorID); err != nil {
		workspaceError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

// RemoveMember 移除成员
// DELETE /api/v1/workspaces/:id/members/:userId
func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	actorID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.registry.RemoveUser(c.Param("id"), c.Param("userId"), actorID); err != nil {
		workspaceError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

// workspaceError 将工作区领域错误映射为 HTTP 响应
func workspaceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainWorkspace.ErrWorkspaceNotFound),
		errors.Is(err, domainWorkspace.ErrMemberNotFound),
		errors.Is(err, domainWorkspace.ErrMessageNotFound):
		response.Error(c, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domainWorkspace.ErrPermissionDenied):
		response.Error(c, http.StatusForbidden, codePermissionDenied, err.Error())
	case errors.Is(err, domainWorkspace.ErrInvalidRole),
		errors.Is(err, domainWorkspace.ErrWorkspaceInactive):
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
	case errors.Is(err, domainWorkspace.ErrAlreadyMember),
		errors.Is(err, domainWorkspace.ErrCannotRemoveOwner),
		errors.Is(err, domainWorkspace.ErrInvariantViolation):
		response.Error(c, http.StatusConflict, codeConflict, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, codeInternal, err.Error())
	}
}
