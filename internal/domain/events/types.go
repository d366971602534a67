// Package events 定义领域事件类型和接口
// 用于系统内部的事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 协作消息相关事件类型
const (
	// MessageAppended 消息已追加到工作区日志
	MessageAppended EventType = "collab.message.appended"
	// QueryFailed 文档查询失败（已以 System 消息形式落盘）
	QueryFailed EventType = "collab.query.failed"
)

// 在线状态相关事件类型
const (
	// UserConnected 用户建立了工作区连接
	UserConnected EventType = "presence.user.connected"
	// UserDisconnected 用户断开了最后一条工作区连接
	UserDisconnected EventType = "presence.user.disconnected"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}

// MessageEvent 消息日志事件
type MessageEvent struct {
	EventType   EventType
	WorkspaceID string
	MessageID   string
	AuthorID    string
	OccurredAt  time.Time
}

// Type 返回事件类型
func (e *MessageEvent) Type() EventType { return e.EventType }

// Timestamp 返回事件发生时间
func (e *MessageEvent) Timestamp() time.Time { return e.OccurredAt }

// PresenceEvent 在线状态事件
type PresenceEvent struct {
	EventType   EventType
	WorkspaceID string
	UserID      string
	OccurredAt  time.Time
}

// Type 返回事件类型
func (e *PresenceEvent) Type() EventType { return e.EventType }

// Timestamp 返回事件发生时间
func (e *PresenceEvent) Timestamp() time.Time { return e.OccurredAt }
