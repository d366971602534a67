package log

import (
	"context"
	"log/slog"
)

// 上下文键定义
const (
	// RequestContextID HTTP 请求 ID
	RequestContextID = "request_id"

	// WorkspaceContextID 工作区 ID
	WorkspaceContextID = "workspace_id"

	// ConnectionContextID 连接 ID
	ConnectionContextID = "connection_id"

	// UserContextID 用户 ID
	UserContextID = "user_id"
)

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithWorkspaceID 在上下文中添加工作区 ID
func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, WorkspaceContextID, workspaceID)
}

// WithConnectionID 在上下文中添加连接 ID
func WithConnectionID(ctx context.Context, connectionID string) context.Context {
	return context.WithValue(ctx, ConnectionContextID, connectionID)
}

// WithUserID 在上下文中添加用户 ID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserContextID, userID)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if requestID := ctx.Value(RequestContextID); requestID != nil {
		attrs = append(attrs, slog.String("request_id", requestID.(string)))
	}
	if workspaceID := ctx.Value(WorkspaceContextID); workspaceID != nil {
		attrs = append(attrs, slog.String("workspace_id", workspaceID.(string)))
	}
	if connectionID := ctx.Value(ConnectionContextID); connectionID != nil {
		attrs = append(attrs, slog.String("connection_id", connectionID.(string)))
	}
	if userID := ctx.Value(UserContextID); userID != nil {
		attrs = append(attrs, slog.String("user_id", userID.(string)))
	}

	return attrs
}
