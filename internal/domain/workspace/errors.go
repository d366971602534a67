package workspace

import "errors"

// 工作区相关错误
var (
	// ErrWorkspaceNotFound 工作区不存在
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrWorkspaceInactive 工作区已停用
	ErrWorkspaceInactive = errors.New("workspace is inactive")
)

// 成员与权限相关错误
var (
	// ErrPermissionDenied 无相应权限
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidRole 未知角色
	ErrInvalidRole = errors.New("invalid role")
	// ErrAlreadyMember 用户已是成员
	ErrAlreadyMember = errors.New("user is already a member of this workspace")
	// ErrMemberNotFound 用户不是成员
	ErrMemberNotFound = errors.New("user is not a member of this workspace")
	// ErrCannotRemoveOwner Owner 在转移所有权前不能被移除
	ErrCannotRemoveOwner = errors.New("owner cannot be removed while other members remain, transfer ownership first")
	// ErrInvariantViolation 操作会破坏单一 Owner 约束
	ErrInvariantViolation = errors.New("workspace must have exactly one owner")
)

// 消息相关错误
var (
	// ErrMessageNotFound 消息不存在
	ErrMessageNotFound = errors.New("message not found")
)
