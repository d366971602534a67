package events

import "time"

// PayloadType 推送到客户端连接的载荷类型
type PayloadType string

// 载荷类型（封闭集合）
const (
	PayloadChatMessage     PayloadType = "chat_message"            // 普通聊天/查询消息
	PayloadUserJoined      PayloadType = "user_joined"             // 用户加入工作区
	PayloadUserLeft        PayloadType = "user_left"               // 用户离开工作区
	PayloadTypingIndicator PayloadType = "typing_indicator"        // 输入中提示
	PayloadQueryResponse   PayloadType = "document_query_response" // 文档查询回答
	PayloadSystemError     PayloadType = "system_error"            // 系统错误消息
	PayloadReactionUpdate  PayloadType = "reaction_update"         // 表情回应变更
	PayloadMessageFlagged  PayloadType = "message_flagged"         // 消息被标记
)

// EchoesToSender 该类型载荷是否回显给发送者
// 每种事件类型单独决定：聊天、加入/离开、输入提示对发送者本地已有确认，
// 不再回显；查询回答和系统错误是全员共享的结论，发送者同样需要收到
func (t PayloadType) EchoesToSender() bool {
	switch t {
	case PayloadQueryResponse, PayloadSystemError, PayloadMessageFlagged:
		return true
	}
	return false
}

// Envelope 推送载荷信封
// 所有经连接推送的消息都使用这一结构
type Envelope struct {
	Type        PayloadType `json:"type"`
	WorkspaceID string      `json:"workspace_id"`
	SenderID    string      `json:"sender_id,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Data        any         `json:"data,omitempty"`
}

// NewEnvelope 创建推送信封
func NewEnvelope(t PayloadType, workspaceID, senderID string, data any) *Envelope {
	return &Envelope{
		Type:        t,
		WorkspaceID: workspaceID,
		SenderID:    senderID,
		Timestamp:   time.Now().UTC(),
		Data:        data,
	}
}
