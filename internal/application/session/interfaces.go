package session

import (
	"context"
	"time"

	"github.com/docuchat/backend/internal/domain/events"
)

// ResponseProducer 外部回答管道（LLM + 检索）
// 对本核心而言是黑盒：输入查询文本，返回回答文本、
// 支撑回答的片段 ID（按相关度排序）和置信度
type ResponseProducer interface {
	// Answer 生成回答，实现方必须尊重 ctx 的截止时间
	Answer(ctx context.Context, workspaceID, query string) (*ProducerResult, error)
}

// ProducerResult 回答管道的产出
type ProducerResult struct {
	Text       string   // 回答文本
	ChunkIDs   []string // 使用的片段 ID（按相关度排序）
	Confidence float64  // 置信度 [0,1]
}

// PresenceStatus 在线状态
type PresenceStatus string

// 在线状态（advisory，不参与权限判定）
const (
	PresenceActive  PresenceStatus = "active"
	PresenceIdle    PresenceStatus = "idle"
	PresenceOffline PresenceStatus = "offline"
)

// PresenceEntry 单个用户在某工作区的在线状态
type PresenceEntry struct {
	UserID       string         `json:"user_id"`
	Username     string         `json:"username,omitempty"`
	Status       PresenceStatus `json:"status"`
	Connections  int            `json:"connections"`
	LastActiveAt time.Time      `json:"last_active_at,omitempty"`
}

// ClosedConnection 连接关闭结果
type ClosedConnection struct {
	ConnectionID string
	UserID       string
	WorkspaceID  string
	// LastForUser 是否是该用户在该工作区的最后一条连接
	LastForUser bool
}

// Hub 连接管理中心接口
// 由 infrastructure/websocket 实现，Broker 只依赖此接口
type Hub interface {
	// Open 注册一条新连接，返回连接 ID
	Open(userID, workspaceID string) (connectionID string, err error)
	// Close 注销连接；连接不存在时返回 ErrConnectionNotFound
	// 关闭立即完成，绝不等待发往该连接的在途广播
	Close(connectionID string) (*ClosedConnection, error)
	// Broadcast 向工作区内所有打开的连接投递载荷
	// excludeUserID 非空时跳过该用户的全部连接
	// 单条死连接的投递失败不影响其余连接（死连接被静默清理）
	Broadcast(workspaceID string, env *events.Envelope, excludeUserID string) error
	// Touch 记录连接上的入站活动，在线状态回到 active
	Touch(connectionID string)
	// Presence 返回工作区内当前有连接的用户的在线状态
	Presence(workspaceID string) []PresenceEntry
}
