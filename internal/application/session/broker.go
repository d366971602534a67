package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	appAttribution "github.com/docuchat/backend/internal/application/attribution"
	appWorkspace "github.com/docuchat/backend/internal/application/workspace"
	"github.com/docuchat/backend/internal/domain/events"
	domainWorkspace "github.com/docuchat/backend/internal/domain/workspace"
	"github.com/docuchat/backend/internal/infrastructure/config"
	"github.com/docuchat/backend/internal/infrastructure/log"
)

// appendState 单个工作区的追加状态
// 序号从仓储的当前最大值惰性加载，此后只在内存里递增；
// 时间戳被钳制为单调不减，序号决定全序
type appendState struct {
	mu      sync.Mutex
	loaded  bool
	nextSeq int64
	lastTS  time.Time
}

// Broker 协作会话代理
// 工作区消息日志的唯一写入口：分配序号、落盘、再广播
// 外部回答管道的调用不持有追加锁，慢查询不会阻塞其他成员发消息
type Broker struct {
	hub      Hub
	registry *appWorkspace.Registry
	messages domainWorkspace.MessageRepository
	attrib   *appAttribution.Service
	producer ResponseProducer
	bus      events.EventBus
	cfg      *config.SessionConfig
	logger   *slog.Logger

	mu      sync.Mutex
	appends map[string]*appendState
}

// NewBroker 创建协作会话代理
// producer 可以为 nil，此时文档查询返回 ErrProducerNotConfigured
func NewBroker(
	hub Hub,
	registry *appWorkspace.Registry,
	messages domainWorkspace.MessageRepository,
	attrib *appAttribution.Service,
	producer ResponseProducer,
	bus events.EventBus,
	cfg *config.SessionConfig,
) *Broker {
	return &Broker{
		hub:      hub,
		registry: registry,
		messages: messages,
		attrib:   attrib,
		producer: producer,
		bus:      bus,
		cfg:      cfg,
		logger:   log.NewModuleLogger("session", "broker"),
	}
}

// Connect 为成员建立工作区连接
// 要求 Read 权限且工作区处于活跃状态；
// 向其余成员广播 user_joined，并发布 UserConnected 事件
func (b *Broker) Connect(workspaceID, userID string) (string, error) {
	member, ws, err := b.requireMember(workspaceID, userID, domainWorkspace.PermissionRead)
	if err != nil {
		return "", err
	}
	if !ws.IsActive {
		return "", domainWorkspace.ErrWorkspaceInactive
	}

	connectionID, err := b.hub.Open(userID, workspaceID)
	if err != nil {
		return "", fmt.Errorf("failed to open connection: %w", err)
	}

	b.broadcast(workspaceID, events.PayloadUserJoined, userID, map[string]any{
		"user_id":  userID,
		"username": member.Username,
	})
	b.publish(&events.PresenceEvent{
		EventType:   events.UserConnected,
		WorkspaceID: workspaceID,
		UserID:      userID,
		OccurredAt:  time.Now().UTC(),
	})

	b.logger.Info("user connected",
		"workspaceID", workspaceID,
		"userID", userID,
		"connectionID", connectionID,
	)
	return connectionID, nil
}

// Disconnect 断开连接
// 仅当这是该用户在该工作区的最后一条连接时才广播 user_left
func (b *Broker) Disconnect(connectionID string) error {
	closed, err := b.hub.Close(connectionID)
	if err != nil {
		return err
	}

	if closed.LastForUser {
		b.broadcast(closed.WorkspaceID, events.PayloadUserLeft, closed.UserID, map[string]any{
			"user_id": closed.UserID,
		})
		b.publish(&events.PresenceEvent{
			EventType:   events.UserDisconnected,
			WorkspaceID: closed.WorkspaceID,
			UserID:      closed.UserID,
			OccurredAt:  time.Now().UTC(),
		})
	}

	b.logger.Info("connection closed",
		"workspaceID", closed.WorkspaceID,
		"userID", closed.UserID,
		"connectionID", connectionID,
		"lastForUser", closed.LastForUser,
	)
	return nil
}

// SubmitText 发送普通聊天消息
// 要求 Write 权限；消息先落盘再广播，落盘失败不产生任何广播
func (b *Broker) SubmitText(workspaceID, userID, content string) (*domainWorkspace.CollaborativeMessage, error) {
	member, ws, err := b.requireMember(workspaceID, userID, domainWorkspace.PermissionWrite)
	if err != nil {
		return nil, err
	}
	if !ws.IsActive {
		return nil, domainWorkspace.ErrWorkspaceInactive
	}
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}

	return b.append(appendRequest{
		workspaceID: workspaceID,
		authorID:    userID,
		authorName:  member.Username,
		content:     content,
		msgType:     domainWorkspace.MessageText,
		payload:     events.PayloadChatMessage,
		senderID:    userID,
	})
}

// SubmitQuery 提交文档查询
// 查询本身作为 Query 消息立即落盘广播，随后调用外部回答管道；
// 回答管道的等待不持有追加锁。管道成功时记录溯源并追加 Response 消息，
// 超时或失败时以 System 消息落盘广播，日志里留下可见的失败痕迹
func (b *Broker) SubmitQuery(ctx context.Context, workspaceID, userID, query string) (*domainWorkspace.CollaborativeMessage, error) {
	member, ws, err := b.requireMember(workspaceID, userID, domainWorkspace.PermissionWrite)
	if err != nil {
		return nil, err
	}
	if !ws.IsActive {
		return nil, domainWorkspace.ErrWorkspaceInactive
	}
	if query == "" {
		return nil, fmt.Errorf("query text is required")
	}
	if b.producer == nil {
		return nil, ErrProducerNotConfigured
	}

	if _, err := b.append(appendRequest{
		workspaceID: workspaceID,
		authorID:    userID,
		authorName:  member.Username,
		content:     query,
		msgType:     domainWorkspace.MessageQuery,
		payload:     events.PayloadChatMessage,
		senderID:    userID,
	}); err != nil {
		return nil, err
	}

	produceCtx, cancel := context.WithTimeout(ctx, b.cfg.QueryTimeout())
	defer cancel()

	result, prodErr := b.producer.Answer(produceCtx, workspaceID, query)
	if prodErr != nil {
		return b.failQuery(workspaceID, userID, prodErr)
	}

	responseID := uuid.NewString()
	if err := b.attrib.RecordResponseAttribution(responseID, result.ChunkIDs, result.Confidence); err != nil {
		return b.failQuery(workspaceID, userID, fmt.Errorf("failed to record attribution: %w", err))
	}

	respMsg, err := b.append(appendRequest{
		workspaceID: workspaceID,
		authorID:    userID,
		authorName:  member.Username,
		content:     result.Text,
		msgType:     domainWorkspace.MessageResponse,
		responseID:  responseID,
		payload:     events.PayloadQueryResponse,
		senderID:    userID,
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info("query answered",
		"workspaceID", workspaceID,
		"userID", userID,
		"responseID", responseID,
		"chunks", len(result.ChunkIDs),
	)
	return respMsg, nil
}

// failQuery 查询失败路径：以 System 消息落盘广播，返回包装后的错误
func (b *Broker) failQuery(workspaceID, userID string, cause error) (*domainWorkspace.CollaborativeMessage, error) {
	wrapped := ErrProducerFailure
	content := "Document query failed. Please try again."
	if errors.Is(cause, context.DeadlineExceeded) {
		wrapped = ErrProducerTimeout
		content = "Document query timed out. Please try again."
	}

	b.logger.Warn("query failed",
		"workspaceID", workspaceID,
		"userID", userID,
		"error", cause,
	)

	sysMsg, err := b.append(appendRequest{
		workspaceID: workspaceID,
		authorName:  "system",
		content:     content,
		msgType:     domainWorkspace.MessageSystem,
		payload:     events.PayloadSystemError,
		senderID:    userID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wrapped, cause)
	}
	b.publish(&events.MessageEvent{
		EventType:   events.QueryFailed,
		WorkspaceID: workspaceID,
		MessageID:   sysMsg.ID,
		AuthorID:    userID,
		OccurredAt:  time.Now().UTC(),
	})
	return sysMsg, fmt.Errorf("%w: %v", wrapped, cause)
}

// React 为消息添加表情回应，同一用户重复回应是幂等的
func (b *Broker) React(workspaceID, messageID, userID, symbol string) error {
	return b.updateReaction(workspaceID, messageID, userID, symbol, true)
}

// Unreact 移除表情回应
func (b *Broker) Unreact(workspaceID, messageID, userID, symbol string) error {
	return b.updateReaction(workspaceID, messageID, userID, symbol, false)
}

func (b *Broker) updateReaction(workspaceID, messageID, userID, symbol string, add bool) error {
	if symbol == "" {
		return fmt.Errorf("reaction symbol is required")
	}
	if _, _, err := b.requireMember(workspaceID, userID, domainWorkspace.PermissionRead); err != nil {
		return err
	}

	// 读-改-写经过工作区追加锁，并发回应不会互相覆盖
	state := b.appendStateFor(workspaceID)
	state.mu.Lock()
	defer state.mu.Unlock()

	msg, err := b.findMessage(workspaceID, messageID)
	if err != nil {
		return err
	}

	if add {
		msg.AddReaction(symbol, userID)
	} else {
		msg.RemoveReaction(symbol, userID)
	}
	if err := b.messages.Update(msg); err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	b.broadcast(workspaceID, events.PayloadReactionUpdate, userID, map[string]any{
		"message_id": messageID,
		"reactions":  msg.Reactions,
	})
	return nil
}

// FlagMessage 标记（软删除）消息
// 属于审核操作，要求 Admin 权限；消息保留在日志中，历史读取时内容被替换为占位文本
func (b *Broker) FlagMessage(workspaceID, messageID, actingUserID string) error {
	if _, _, err := b.requireMember(workspaceID, actingUserID, domainWorkspace.PermissionAdmin); err != nil {
		return err
	}

	// 与回应更新走同一把锁，Update 写的是 reactions+flagged 两列
	state := b.appendStateFor(workspaceID)
	state.mu.Lock()
	defer state.mu.Unlock()

	msg, err := b.findMessage(workspaceID, messageID)
	if err != nil {
		return err
	}
	if !msg.Flagged {
		msg.Flagged = true
		if err := b.messages.Update(msg); err != nil {
			return fmt.Errorf("failed to update message: %w", err)
		}
	}

	b.broadcast(workspaceID, events.PayloadMessageFlagged, actingUserID, map[string]any{
		"message_id": messageID,
	})

	b.logger.Info("message flagged",
		"workspaceID", workspaceID,
		"messageID", messageID,
		"flaggedBy", actingUserID,
	)
	return nil
}

// Typing 广播输入中提示，不落盘
func (b *Broker) Typing(workspaceID, userID string, isTyping bool) error {
	member, _, err := b.requireMember(workspaceID, userID, domainWorkspace.PermissionRead)
	if err != nil {
		return err
	}

	b.broadcast(workspaceID, events.PayloadTypingIndicator, userID, map[string]any{
		"user_id":   userID,
		"username":  member.Username,
		"is_typing": isTyping,
	})
	return nil
}

// History 读取历史消息
// beforeSeq <= 0 表示从最新处读取；被标记的消息内容被占位文本替换
func (b *Broker) History(workspaceID, userID string, beforeSeq int64, limit int) ([]*domainWorkspace.CollaborativeMessage, error) {
	if _, _, err := b.requireMember(workspaceID, userID, domainWorkspace.PermissionRead); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > b.cfg.HistoryPageSize {
		limit = b.cfg.HistoryPageSize
	}

	msgs, err := b.messages.ListBefore(workspaceID, beforeSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	masked := make([]*domainWorkspace.CollaborativeMessage, len(msgs))
	for i, m := range msgs {
		masked[i] = m.Masked()
	}
	return masked, nil
}

// Presence 返回工作区全员的在线状态
// 连接中心只知道有连接的用户，这里合并成员表补出 offline 成员和显示名称
func (b *Broker) Presence(workspaceID, userID string) ([]PresenceEntry, error) {
	if _, _, err := b.requireMember(workspaceID, userID, domainWorkspace.PermissionRead); err != nil {
		return nil, err
	}

	members, err := b.registry.ListMembers(workspaceID, userID)
	if err != nil {
		return nil, err
	}

	connected := make(map[string]PresenceEntry)
	for _, entry := range b.hub.Presence(workspaceID) {
		connected[entry.UserID] = entry
	}

	entries := make([]PresenceEntry, 0, len(members))
	for _, m := range members {
		if entry, ok := connected[m.UserID]; ok {
			entry.Username = m.Username
			entries = append(entries, entry)
			continue
		}
		entries = append(entries, PresenceEntry{
			UserID:       m.UserID,
			Username:     m.Username,
			Status:       PresenceOffline,
			LastActiveAt: m.LastActiveAt,
		})
	}
	return entries, nil
}

// appendRequest 一次日志追加及其广播
type appendRequest struct {
	workspaceID string
	authorID    string
	authorName  string
	content     string
	msgType     domainWorkspace.MessageType
	responseID  string
	// payload/senderID 控制追加后的广播（回显策略见载荷类型）
	payload  events.PayloadType
	senderID string
}

// append 追加消息到工作区日志并广播
// 每个工作区一把追加锁，序号严格递增，时间戳钳制为单调不减；
// 广播在追加锁内完成（投递是非阻塞的），
// 所有客户端观察到的消息顺序与日志全序一致
func (b *Broker) append(req appendRequest) (*domainWorkspace.CollaborativeMessage, error) {
	state := b.appendStateFor(req.workspaceID)

	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.loaded {
		maxSeq, err := b.messages.MaxSeq(req.workspaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load max seq: %w", err)
		}
		state.nextSeq = maxSeq
		state.loaded = true
	}

	now := time.Now().UTC()
	if now.Before(state.lastTS) {
		now = state.lastTS
	}

	msg := &domainWorkspace.CollaborativeMessage{
		ID:          uuid.NewString(),
		WorkspaceID: req.workspaceID,
		Seq:         state.nextSeq + 1,
		AuthorID:    req.authorID,
		AuthorName:  req.authorName,
		Content:     req.content,
		Type:        req.msgType,
		Timestamp:   now,
		ResponseID:  req.responseID,
	}
	if err := b.messages.Append(msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	state.nextSeq = msg.Seq
	state.lastTS = now

	b.broadcast(req.workspaceID, req.payload, req.senderID, msg)
	b.publish(&events.MessageEvent{
		EventType:   events.MessageAppended,
		WorkspaceID: req.workspaceID,
		MessageID:   msg.ID,
		AuthorID:    req.authorID,
		OccurredAt:  now,
	})
	return msg, nil
}

func (b *Broker) appendStateFor(workspaceID string) *appendState {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.appends[workspaceID]
	if !ok {
		if b.appends == nil {
			b.appends = make(map[string]*appendState)
		}
		state = &appendState{}
		b.appends[workspaceID] = state
	}
	return state
}

// broadcast 按载荷类型的回显策略决定是否跳过发送者
func (b *Broker) broadcast(workspaceID string, t events.PayloadType, senderID string, data any) {
	exclude := senderID
	if t.EchoesToSender() {
		exclude = ""
	}
	env := events.NewEnvelope(t, workspaceID, senderID, data)
	if err := b.hub.Broadcast(workspaceID, env, exclude); err != nil {
		b.logger.Warn("broadcast failed",
			"workspaceID", workspaceID,
			"type", t,
			"error", err,
		)
	}
}

func (b *Broker) publish(event events.Event) {
	if b.bus != nil {
		b.bus.Publish(event)
	}
}

// requireMember 加载工作区和成员并检查权限
func (b *Broker) requireMember(workspaceID, userID string, perm domainWorkspace.Permission) (*domainWorkspace.Member, *domainWorkspace.Workspace, error) {
	ws, err := b.registry.GetWorkspace(workspaceID)
	if err != nil {
		return nil, nil, err
	}
	member, err := b.registry.GetMember(workspaceID, userID)
	if err != nil {
		if errors.Is(err, domainWorkspace.ErrMemberNotFound) {
			return nil, nil, domainWorkspace.ErrPermissionDenied
		}
		return nil, nil, err
	}
	if !member.HasPermission(perm) {
		return nil, nil, domainWorkspace.ErrPermissionDenied
	}
	return member, ws, nil
}

// findMessage 查找消息并校验其属于指定工作区
func (b *Broker) findMessage(workspaceID, messageID string) (*domainWorkspace.CollaborativeMessage, error) {
	msg, err := b.messages.Find(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	if msg == nil || msg.WorkspaceID != workspaceID {
		return nil, domainWorkspace.ErrMessageNotFound
	}
	return msg, nil
}
