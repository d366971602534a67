package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appAttribution "github.com/docuchat/backend/internal/application/attribution"
	"github.com/docuchat/backend/internal/application/session"
	appWorkspace "github.com/docuchat/backend/internal/application/workspace"
	"github.com/docuchat/backend/internal/domain/events"
	domainWorkspace "github.com/docuchat/backend/internal/domain/workspace"
	"github.com/docuchat/backend/internal/infrastructure/config"
	"github.com/docuchat/backend/internal/infrastructure/storage"
	ws "github.com/docuchat/backend/internal/infrastructure/websocket"
)

type collabWSFixture struct {
	handler   *CollabWSHandler
	broker    *session.Broker
	hub       *ws.Hub
	workspace *domainWorkspace.Workspace
}

func setupCollabWS(t *testing.T) *collabWSFixture {
	db, err := storage.OpenDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, storage.InitSchema(db))
	t.Cleanup(func() { _ = db.Close() })

	wsCfg := &config.WebSocketConfig{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		SendBufferSize:   8,
		IdleAfterSeconds: 300,
	}
	hub := ws.NewHub(wsCfg)
	registry := appWorkspace.NewRegistry(storage.NewWorkspaceRepository(db), storage.NewMessageRepository(db))
	attrib := appAttribution.NewService(storage.NewChunkRepository(db), storage.NewAttributionRepository(db))
	sessionCfg := &config.SessionConfig{QueryTimeoutSeconds: 1, HistoryPageSize: 50}
	broker := session.NewBroker(hub, registry, storage.NewMessageRepository(db), attrib, nil, nil, sessionCfg)

	workspace, err := registry.CreateWorkspace("alice", "Alice", "Research", "")
	require.NoError(t, err)
	require.NoError(t, registry.InviteUser(workspace.ID, "alice", "carol", "Carol", domainWorkspace.RoleViewer))

	return &collabWSFixture{
		handler:   NewCollabWSHandler(broker, hub, wsCfg),
		broker:    broker,
		hub:       hub,
		workspace: workspace,
	}
}

func recvEnvelope(t *testing.T, conn *ws.Connection) *events.Envelope {
	select {
	case data := <-conn.Send:
		var env events.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return &env
	case <-time.After(time.Second):
		t.Fatal("expected a payload on the connection")
		return nil
	}
}

func drainConnection(conn *ws.Connection) {
	for {
		select {
		case <-conn.Send:
		default:
			return
		}
	}
}

func assertNoPayload(t *testing.T, conn *ws.Connection) {
	select {
	case data := <-conn.Send:
		t.Fatalf("unexpected payload: %s", data)
	default:
	}
}

func TestDispatchRejectionGoesToSenderOnly(t *testing.T) {
	f := setupCollabWS(t)

	aliceID, err := f.broker.Connect(f.workspace.ID, "alice")
	require.NoError(t, err)
	carolID, err := f.broker.Connect(f.workspace.ID, "carol")
	require.NoError(t, err)

	aliceConn, ok := f.hub.Get(aliceID)
	require.True(t, ok)
	carolConn, ok := f.hub.Get(carolID)
	require.True(t, ok)

	// 清掉 carol 加入时 alice 收到的 user_joined
	drainConnection(aliceConn)

	// Viewer 没有 Write 权限，消息帧被拒绝
	f.handler.dispatch(carolConn, &inboundFrame{Action: "message", Content: "hi"})

	// 拒绝回执只发给提交方本条连接
	env := recvEnvelope(t, carolConn)
	assert.Equal(t, events.PayloadSystemError, env.Type)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "message", data["action"])
	assert.Contains(t, data["error"], "permission denied")

	// 其他成员看不到任何广播，日志里也没有落盘
	assertNoPayload(t, aliceConn)
	msgs, err := f.broker.History(f.workspace.ID, "alice", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDispatchDeliversAcceptedMessage(t *testing.T) {
	f := setupCollabWS(t)

	aliceID, err := f.broker.Connect(f.workspace.ID, "alice")
	require.NoError(t, err)
	carolID, err := f.broker.Connect(f.workspace.ID, "carol")
	require.NoError(t, err)

	aliceConn, _ := f.hub.Get(aliceID)
	carolConn, _ := f.hub.Get(carolID)
	drainConnection(aliceConn)

	f.handler.dispatch(aliceConn, &inboundFrame{Action: "message", Content: "hello"})

	// 聊天消息不回显给发送者
	env := recvEnvelope(t, carolConn)
	assert.Equal(t, events.PayloadChatMessage, env.Type)
	assert.Equal(t, "alice", env.SenderID)
	assertNoPayload(t, aliceConn)
}
