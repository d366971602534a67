package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docuchat/backend/internal/application/session"
	"github.com/docuchat/backend/internal/domain/events"
	"github.com/docuchat/backend/internal/infrastructure/config"
	"github.com/docuchat/backend/internal/infrastructure/log"
)

// 编译时检查接口实现
var _ session.Hub = (*Hub)(nil)

// Hub WebSocket 连接管理中心
// 按工作区分组维护连接集合，广播时对集合做快照，
// 连接的加入/离开与广播互不阻塞
type Hub struct {
	mu sync.RWMutex
	// workspaces 按工作区分组的连接集合
	workspaces map[string]map[*Connection]bool
	// conns 按连接 ID 索引
	conns map[string]*Connection

	sendBuffer int
	idleWindow time.Duration
	logger     *slog.Logger
}

// NewHub 创建 Hub
func NewHub(cfg *config.WebSocketConfig) *Hub {
	return &Hub{
		workspaces: make(map[string]map[*Connection]bool),
		conns:      make(map[string]*Connection),
		sendBuffer: cfg.SendBufferSize,
		idleWindow: cfg.IdleWindow(),
		logger:     log.NewModuleLogger("websocket", "hub"),
	}
}

// Open 注册一条新连接
func (h *Hub) Open(userID, workspaceID string) (string, error) {
	conn := &Connection{
		ID:          uuid.NewString(),
		UserID:      userID,
		WorkspaceID: workspaceID,
		OpenedAt:    time.Now(),
		Send:        make(chan []byte, h.sendBuffer),
	}
	conn.open()

	h.mu.Lock()
	if h.workspaces[workspaceID] == nil {
		h.workspaces[workspaceID] = make(map[*Connection]bool)
	}
	h.workspaces[workspaceID][conn] = true
	h.conns[conn.ID] = conn
	h.mu.Unlock()

	h.logger.Debug("connection opened",
		"connectionID", conn.ID,
		"userID", userID,
		"workspaceID", workspaceID,
	)
	return conn.ID, nil
}

// Get 按连接 ID 获取连接（供接口层的读写泵使用）
func (h *Hub) Get(connectionID string) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.conns[connectionID]
	return conn, ok
}

// Close 注销连接
// 立即完成，不等待在途广播；重复关闭返回 ErrConnectionNotFound
func (h *Hub) Close(connectionID string) (*session.ClosedConnection, error) {
	h.mu.Lock()
	conn, ok := h.conns[connectionID]
	if !ok {
		h.mu.Unlock()
		return nil, session.ErrConnectionNotFound
	}
	delete(h.conns, connectionID)
	h.removeFromWorkspaceLocked(conn)

	// 统计该用户在该工作区是否还有其他连接
	lastForUser := true
	for c := range h.workspaces[conn.WorkspaceID] {
		if c.UserID == conn.UserID {
			lastForUser = false
			break
		}
	}
	h.mu.Unlock()

	conn.close()

	h.logger.Debug("connection closed",
		"connectionID", connectionID,
		"userID", conn.UserID,
		"workspaceID", conn.WorkspaceID,
		"lastForUser", lastForUser,
	)

	return &session.ClosedConnection{
		ConnectionID: connectionID,
		UserID:       conn.UserID,
		WorkspaceID:  conn.WorkspaceID,
		LastForUser:  lastForUser,
	}, nil
}

// removeFromWorkspaceLocked 从工作区集合中移除连接，调用方持有 h.mu
func (h *Hub) removeFromWorkspaceLocked(conn *Connection) {
	set, ok := h.workspaces[conn.WorkspaceID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.workspaces, conn.WorkspaceID)
	}
}

// Broadcast 向工作区广播载荷
// 对连接集合做快照后再逐一投递：投递期间的 connect/disconnect 不影响本次广播；
// 发送队列满的连接视为死连接，静默清理，不影响其余投递
func (h *Hub) Broadcast(workspaceID string, env *events.Envelope, excludeUserID string) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast payload: %w", err)
	}

	h.mu.RLock()
	snapshot := make([]*Connection, 0, len(h.workspaces[workspaceID]))
	for conn := range h.workspaces[workspaceID] {
		if excludeUserID != "" && conn.UserID == excludeUserID {
			continue
		}
		snapshot = append(snapshot, conn)
	}
	h.mu.RUnlock()

	var dead []*Connection
	for _, conn := range snapshot {
		if conn.trySend(data) == sendFull {
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		h.prune(conn)
	}

	return nil
}

// SendTo 向单条连接投递载荷
// 用于对提交方的本地回执（如事件被拒绝的错误），不经过广播
func (h *Hub) SendTo(connectionID string, env *events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	h.mu.RLock()
	conn, ok := h.conns[connectionID]
	h.mu.RUnlock()
	if !ok {
		return session.ErrConnectionNotFound
	}

	if conn.trySend(data) == sendFull {
		h.prune(conn)
		return session.ErrConnectionNotFound
	}
	return nil
}

// prune 清理死连接
func (h *Hub) prune(conn *Connection) {
	h.mu.Lock()
	delete(h.conns, conn.ID)
	h.removeFromWorkspaceLocked(conn)
	h.mu.Unlock()

	conn.close()

	h.logger.Warn("pruned unreachable connection",
		"connectionID", conn.ID,
		"userID", conn.UserID,
		"workspaceID", conn.WorkspaceID,
	)
}

// Touch 记录连接上的入站活动
func (h *Hub) Touch(connectionID string) {
	h.mu.RLock()
	conn, ok := h.conns[connectionID]
	h.mu.RUnlock()
	if ok {
		conn.touch()
	}
}

// Presence 返回工作区内有连接的用户的在线状态
// 超过空闲窗口没有入站事件的用户标记为 idle；此状态仅供展示
func (h *Hub) Presence(workspaceID string) []session.PresenceEntry {
	h.mu.RLock()
	byUser := make(map[string]*session.PresenceEntry)
	for conn := range h.workspaces[workspaceID] {
		last := conn.lastActiveAt()
		entry, ok := byUser[conn.UserID]
		if !ok {
			entry = &session.PresenceEntry{UserID: conn.UserID}
			byUser[conn.UserID] = entry
		}
		entry.Connections++
		if last.After(entry.LastActiveAt) {
			entry.LastActiveAt = last
		}
	}
	h.mu.RUnlock()

	now := time.Now()
	result := make([]session.PresenceEntry, 0, len(byUser))
	for _, entry := range byUser {
		if h.idleWindow > 0 && now.Sub(entry.LastActiveAt) > h.idleWindow {
			entry.Status = session.PresenceIdle
		} else {
			entry.Status = session.PresenceActive
		}
		result = append(result, *entry)
	}
	return result
}
