package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/docuchat/backend/internal/application/session"
	"github.com/docuchat/backend/internal/domain/events"
	domainWorkspace "github.com/docuchat/backend/internal/domain/workspace"
	"github.com/docuchat/backend/internal/infrastructure/config"
	"github.com/docuchat/backend/internal/infrastructure/log"
	ws "github.com/docuchat/backend/internal/infrastructure/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = 60 * time.Second
)

// CollabWSHandler 协作 WebSocket 端点
// 升级连接后在 Hub 注册，入站帧交给 Broker，出站帧由写泵从发送队列读取
type CollabWSHandler struct {
	broker   *session.Broker
	hub      *ws.Hub
	upgrader gorilla.Upgrader
	logger   *slog.Logger
}

// NewCollabWSHandler 创建 CollabWSHandler
func NewCollabWSHandler(broker *session.Broker, hub *ws.Hub, cfg *config.WebSocketConfig) *CollabWSHandler {
	return &CollabWSHandler{
		broker: broker,
		hub:    hub,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			// 身份由上游解析，跨域检查同样在上游完成
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.NewModuleLogger("http", "collab-ws"),
	}
}

// inboundFrame 客户端入站帧
type inboundFrame struct {
	Action    string `json:"action"` // message | query | typing | react | unreact | flag
	Content   string `json:"content,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
	IsTyping  bool   `json:"is_typing,omitempty"`
}

// Serve 处理 WebSocket 升级请求
// GET /ws/collaborate/:workspaceId?user_id=
func (h *CollabWSHandler) Serve(c *gin.Context) {
	workspaceID := c.Param("workspaceId")
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	connectionID, err := h.broker.Connect(workspaceID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domainWorkspace.ErrWorkspaceNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domainWorkspace.ErrPermissionDenied):
			status = http.StatusForbidden
		case errors.Is(err, domainWorkspace.ErrWorkspaceInactive):
			status = http.StatusGone
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 升级失败时撤销刚建立的登记
		_ = h.broker.Disconnect(connectionID)
		h.logger.Warn("websocket upgrade failed",
			"workspaceID", workspaceID,
			"userID", userID,
			"error", err,
		)
		return
	}

	registered, ok := h.hub.Get(connectionID)
	if !ok {
		conn.Close()
		return
	}

	go h.writePump(conn, registered)
	go h.readPump(conn, registered)
}

// readPump 读取入站帧并分发给 Broker
// 读出错（含对端关闭）即注销连接
func (h *CollabWSHandler) readPump(conn *gorilla.Conn, registered *ws.Connection) {
	defer func() {
		_ = h.broker.Disconnect(registered.ID)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		h.hub.Touch(registered.ID)

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Debug("dropped malformed frame",
				"connectionID", registered.ID,
				"error", err,
			)
			continue
		}
		h.dispatch(registered, &frame)
	}
}

// dispatch 处理单个入站帧
// 被拒绝的事件只回执给提交方本条连接，不广播、不落盘，连接保持打开
func (h *CollabWSHandler) dispatch(registered *ws.Connection, frame *inboundFrame) {
	workspaceID := registered.WorkspaceID
	userID := registered.UserID

	var err error
	switch frame.Action {
	case "message":
		_, err = h.broker.SubmitText(workspaceID, userID, frame.Content)
	case "query":
		_, err = h.broker.SubmitQuery(context.Background(), workspaceID, userID, frame.Content)
	case "typing":
		err = h.broker.Typing(workspaceID, userID, frame.IsTyping)
	case "react":
		err = h.broker.React(workspaceID, frame.MessageID, userID, frame.Emoji)
	case "unreact":
		err = h.broker.Unreact(workspaceID, frame.MessageID, userID, frame.Emoji)
	case "flag":
		err = h.broker.FlagMessage(workspaceID, frame.MessageID, userID)
	default:
		h.logger.Debug("unknown frame action",
			"connectionID", registered.ID,
			"action", frame.Action,
		)
		return
	}
	if err != nil {
		h.logger.Warn("frame handling failed",
			"connectionID", registered.ID,
			"action", frame.Action,
			"error", err,
		)
		env := events.NewEnvelope(events.PayloadSystemError, workspaceID, "", map[string]any{
			"action": frame.Action,
			"error":  err.Error(),
		})
		if sendErr := h.hub.SendTo(registered.ID, env); sendErr != nil {
			h.logger.Debug("failed to deliver error receipt",
				"connectionID", registered.ID,
				"error", sendErr,
			)
		}
	}
}

// writePump 将发送队列里的广播写到对端，并定期发送 ping
func (h *CollabWSHandler) writePump(conn *gorilla.Conn, registered *ws.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-registered.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 已关闭该连接
				_ = conn.WriteMessage(gorilla.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(gorilla.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gorilla.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
