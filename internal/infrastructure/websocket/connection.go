package websocket

import (
	"sync"
	"time"
)

// 连接状态机：Connecting -> Open -> Closed（终态）
// 连接不可重开，重连会得到新的连接 ID
type connState int

const (
	stateConnecting connState = iota
	stateOpen
	stateClosed
)

// Connection 一个用户在一个工作区内的实时通道
// 只存在于 Hub 的运行时状态中，断开后即销毁，无持久化要求
type Connection struct {
	ID          string    // 连接 ID (UUID)
	UserID      string    // 所属用户
	WorkspaceID string    // 所属工作区
	OpenedAt    time.Time // 建立时间

	// Send 发送队列；队列满视为死连接，由 Hub 清理
	Send chan []byte

	mu         sync.Mutex
	state      connState
	lastActive time.Time
}

// open 将连接置为 Open 状态
func (c *Connection) open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateOpen
	c.lastActive = time.Now()
}

// close 将连接置为 Closed 终态并关闭发送队列，返回是否完成了状态切换
// 关闭与 trySend 持同一把锁，投递路径绝不会碰到已关闭的队列；
// 重复 close 返回 false，保证 Send 只被关闭一次
func (c *Connection) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return false
	}
	c.state = stateClosed
	close(c.Send)
	return true
}

// 投递结果
type sendOutcome int

const (
	sendDelivered sendOutcome = iota // 已入队
	sendClosed                       // 连接已关闭，跳过
	sendFull                         // 队列满，视为死连接
)

// trySend 向发送队列做非阻塞投递
// 状态检查和入队在同一把锁内完成，与 close 互斥
func (c *Connection) trySend(data []byte) sendOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateOpen {
		return sendClosed
	}
	select {
	case c.Send <- data:
		return sendDelivered
	default:
		return sendFull
	}
}

// touch 记录入站活动
func (c *Connection) touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = time.Now()
}

// lastActiveAt 最后活跃时间
func (c *Connection) lastActiveAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}
