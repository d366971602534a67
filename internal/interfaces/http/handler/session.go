package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/backend/internal/application/session"
	"github.com/docuchat/backend/internal/interfaces/http/response"
)

// SessionHandler 协作会话处理器
// 消息日志、文档查询、表情回应、软删除和在线状态的 REST 入口
type SessionHandler struct {
	broker *session.Broker
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(broker *session.Broker) *SessionHandler {
	return &SessionHandler{broker: broker}
}

// History 读取历史消息
// GET /api/v1/workspaces/:id/messages?before_seq=&limit=
func (h *SessionHandler) History(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	beforeSeq, _ := strconv.ParseInt(c.Query("before_seq"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, err := h.broker.History(c.Param("id"), userID, beforeSeq, limit)
	if err != nil {
		sessionError(c, err)
		return
	}

	var nextBeforeSeq int64
	if len(msgs) > 0 {
		nextBeforeSeq = msgs[0].Seq
	}
	response.SuccessWithCursor(c, msgs, nextBeforeSeq, nextBeforeSeq > 1)
}

// SubmitMessageRequest 发送消息请求
type SubmitMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SubmitMessage 发送普通聊天消息
// POST /api/v1/workspaces/:id/messages
func (h *SessionHandler) SubmitMessage(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	msg, err := h.broker.SubmitText(c.Param("id"), userID, req.Content)
	if err != nil {
		sessionError(c, err)
		return
	}
	response.Success(c, msg)
}

// SubmitQueryRequest 文档查询请求
type SubmitQueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// SubmitQuery 提交文档查询
// POST /api/v1/workspaces/:id/query
// 查询失败时返回 502/504，失败详情已作为系统消息写入日志
func (h *SessionHandler) SubmitQuery(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req SubmitQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	msg, err := h.broker.SubmitQuery(c.Request.Context(), c.Param("id"), userID, req.Query)
	if err != nil {
		sessionError(c, err)
		return
	}
	response.Success(c, msg)
}

// ReactionRequest 表情回应请求
type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// AddReaction 添加表情回应
// POST /api/v1/workspaces/:id/messages/:messageId/reactions
func (h *SessionHandler) AddReaction(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if err := h.broker.React(c.Param("id"), c.Param("messageId"), userID, req.Emoji); err != nil {
		sessionError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

// RemoveReaction 移除表情回应
// DELETE /api/v1/workspaces/:id/messages/:messageId/reactions/:emoji
func (h *SessionHandler) RemoveReaction(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.broker.Unreact(c.Param("id"), c.Param("messageId"), userID, c.Param("emoji")); err != nil {
		sessionError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

// Flag 标记（软删除）消息
// POST /api/v1/workspaces/:id/messages/:messageId/flag
func (h *SessionHandler) Flag(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.broker.FlagMessage(c.Param("id"), c.Param("messageId"), userID); err != nil {
		sessionError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

// Presence 工作区全员在线状态
// GET /api/v1/workspaces/:id/presence
func (h *SessionHandler) Presence(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	entries, err := h.broker.Presence(c.Param("id"), userID)
	if err != nil {
		sessionError(c, err)
		return
	}
	response.Success(c, entries)
}

// sessionError 将会话层错误映射为 HTTP 响应
func sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrProducerTimeout):
		response.Error(c, http.StatusGatewayTimeout, codeUpstreamTimeout, err.Error())
	case errors.Is(err, session.ErrProducerFailure):
		response.Error(c, http.StatusBadGateway, codeInternal, err.Error())
	case errors.Is(err, session.ErrProducerNotConfigured):
		response.Error(c, http.StatusServiceUnavailable, codeInternal, err.Error())
	case errors.Is(err, session.ErrConnectionNotFound):
		response.Error(c, http.StatusNotFound, codeNotFound, err.Error())
	default:
		workspaceError(c, err)
	}
}
