package workspace

import "time"

// MessageType 协作消息类型
type MessageType string

// 消息类型（封闭集合）
const (
	MessageText     MessageType = "text"
	MessageQuery    MessageType = "query"
	MessageResponse MessageType = "response"
	MessageSystem   MessageType = "system"
)

// FlaggedContent 被标记消息在历史读取时的占位内容
const FlaggedContent = "[message removed by moderator]"

// CollaborativeMessage 工作区消息日志中的一个事件
// 日志只追加：消息不会被删除，只会被软删除标记，以保证回放时的顺序不变
type CollaborativeMessage struct {
	ID          string      `json:"message_id"`   // 消息 ID (UUID)
	WorkspaceID string      `json:"workspace_id"` // 所属工作区
	Seq         int64       `json:"seq"`          // 工作区内严格递增的序号
	AuthorID    string      `json:"author_id"`    // 作者用户 ID
	AuthorName  string      `json:"author_name"`  // 作者显示名称
	Content     string      `json:"content"`      // 消息内容
	Type        MessageType `json:"type"`         // 消息类型
	Timestamp   time.Time   `json:"timestamp"`    // 时间戳（同一工作区内单调不减，由 Seq 决定全序）

	// ResponseID 仅 Response 类型消息携带，指向溯源记录
	ResponseID string `json:"response_id,omitempty"`

	// Reactions 表情回应：符号 -> 用户 ID 集合
	Reactions map[string][]string `json:"reactions,omitempty"`

	// Flagged 软删除标记
	Flagged bool `json:"flagged,omitempty"`
}

// AddReaction 添加表情回应，同一用户重复添加是幂等的
func (m *CollaborativeMessage) AddReaction(symbol, userID string) {
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
	for _, id := range m.Reactions[symbol] {
		if id == userID {
			return
		}
	}
	m.Reactions[symbol] = append(m.Reactions[symbol], userID)
}

// RemoveReaction 移除表情回应
func (m *CollaborativeMessage) RemoveReaction(symbol, userID string) {
	ids := m.Reactions[symbol]
	for i, id := range ids {
		if id == userID {
			m.Reactions[symbol] = append(ids[:i], ids[i+1:]...)
			if len(m.Reactions[symbol]) == 0 {
				delete(m.Reactions, symbol)
			}
			return
		}
	}
}

// Masked 返回用于历史读取的副本：被标记的消息隐藏原始内容
func (m *CollaborativeMessage) Masked() *CollaborativeMessage {
	if !m.Flagged {
		return m
	}
	masked := *m
	masked.Content = FlaggedContent
	return &masked
}
