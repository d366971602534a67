package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/backend/internal/application/session"
	"github.com/docuchat/backend/internal/domain/events"
	"github.com/docuchat/backend/internal/infrastructure/config"
)

func newTestHub(sendBuffer int) *Hub {
	return NewHub(&config.WebSocketConfig{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		SendBufferSize:   sendBuffer,
		IdleAfterSeconds: 300,
	})
}

func mustReceive(t *testing.T, conn *Connection) *events.Envelope {
	select {
	case data := <-conn.Send:
		var env events.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return &env
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast payload")
		return nil
	}
}

func assertEmpty(t *testing.T, conn *Connection) {
	select {
	case data := <-conn.Send:
		t.Fatalf("unexpected payload: %s", data)
	default:
	}
}

func TestHubBroadcastIsolation(t *testing.T) {
	h := newTestHub(8)

	id1, err := h.Open("u1", "ws1")
	require.NoError(t, err)
	id2, err := h.Open("u2", "ws1")
	require.NoError(t, err)
	id3, err := h.Open("u3", "ws2")
	require.NoError(t, err)

	conn1, _ := h.Get(id1)
	conn2, _ := h.Get(id2)
	conn3, _ := h.Get(id3)

	env := events.NewEnvelope(events.PayloadChatMessage, "ws1", "u1", "hello")
	require.NoError(t, h.Broadcast("ws1", env, ""))

	// 只有同工作区的连接收到
	assert.Equal(t, events.PayloadChatMessage, mustReceive(t, conn1).Type)
	assert.Equal(t, events.PayloadChatMessage, mustReceive(t, conn2).Type)
	assertEmpty(t, conn3)
}

func TestHubBroadcastExcludesUser(t *testing.T) {
	h := newTestHub(8)

	id1, err := h.Open("u1", "ws1")
	require.NoError(t, err)
	// 同一用户的第二条连接
	id2, err := h.Open("u1", "ws1")
	require.NoError(t, err)
	id3, err := h.Open("u2", "ws1")
	require.NoError(t, err)

	conn1, _ := h.Get(id1)
	conn2, _ := h.Get(id2)
	conn3, _ := h.Get(id3)

	env := events.NewEnvelope(events.PayloadChatMessage, "ws1", "u1", "hello")
	require.NoError(t, h.Broadcast("ws1", env, "u1"))

	// 排除用户的全部连接都被跳过
	assertEmpty(t, conn1)
	assertEmpty(t, conn2)
	assert.Equal(t, "u1", mustReceive(t, conn3).SenderID)
}

func TestHubPrunesDeadConnections(t *testing.T) {
	h := newTestHub(1)

	idDead, err := h.Open("u1", "ws1")
	require.NoError(t, err)
	idLive, err := h.Open("u2", "ws1")
	require.NoError(t, err)
	connLive, _ := h.Get(idLive)

	// 第一次广播填满死连接的队列，第二次触发清理；
	// 活连接及时消费，不受影响
	env := events.NewEnvelope(events.PayloadChatMessage, "ws1", "", "a")
	require.NoError(t, h.Broadcast("ws1", env, ""))
	mustReceive(t, connLive)
	require.NoError(t, h.Broadcast("ws1", env, ""))
	mustReceive(t, connLive)

	// 死连接被静默移除，不影响其余投递
	_, ok := h.Get(idDead)
	assert.False(t, ok)
	_, ok = h.Get(idLive)
	assert.True(t, ok)
}

func TestHubCloseDuringBroadcast(t *testing.T) {
	h := newTestHub(1)
	env := events.NewEnvelope(events.PayloadChatMessage, "ws1", "", "x")

	// 断开与广播并发竞争：投递路径绝不能写入已关闭的队列
	for i := 0; i < 50; i++ {
		id, err := h.Open("u1", "ws1")
		require.NoError(t, err)

		var wg sync.WaitGroup
		for g := 0; g < 6; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					_ = h.Broadcast("ws1", env, "")
				}
			}()
		}

		// 队列满时广播方可能已把连接清理掉
		if _, err := h.Close(id); err != nil {
			assert.ErrorIs(t, err, session.ErrConnectionNotFound)
		}
		wg.Wait()

		_, ok := h.Get(id)
		assert.False(t, ok)
	}
}

func TestHubCloseReportsLastForUser(t *testing.T) {
	h := newTestHub(8)

	id1, err := h.Open("u1", "ws1")
	require.NoError(t, err)
	id2, err := h.Open("u1", "ws1")
	require.NoError(t, err)

	closed, err := h.Close(id1)
	require.NoError(t, err)
	assert.False(t, closed.LastForUser)

	closed, err = h.Close(id2)
	require.NoError(t, err)
	assert.True(t, closed.LastForUser)
	assert.Equal(t, "u1", closed.UserID)
	assert.Equal(t, "ws1", closed.WorkspaceID)

	// 重复关闭
	_, err = h.Close(id2)
	assert.ErrorIs(t, err, session.ErrConnectionNotFound)
}

func TestHubPresence(t *testing.T) {
	h := newTestHub(8)

	id1, err := h.Open("u1", "ws1")
	require.NoError(t, err)
	_, err = h.Open("u1", "ws1")
	require.NoError(t, err)
	_, err = h.Open("u2", "ws1")
	require.NoError(t, err)

	entries := h.Presence("ws1")
	require.Len(t, entries, 2)

	byUser := make(map[string]session.PresenceEntry)
	for _, e := range entries {
		byUser[e.UserID] = e
	}
	assert.Equal(t, 2, byUser["u1"].Connections)
	assert.Equal(t, session.PresenceActive, byUser["u1"].Status)
	assert.Equal(t, 1, byUser["u2"].Connections)

	// 任意入站事件把状态拉回 active
	h.Touch(id1)
	entries = h.Presence("ws1")
	require.NotEmpty(t, entries)

	// 空工作区没有在线记录
	assert.Empty(t, h.Presence("ws2"))
}

func TestHubPresenceIdle(t *testing.T) {
	h := NewHub(&config.WebSocketConfig{SendBufferSize: 8, IdleAfterSeconds: 1})

	id, err := h.Open("u1", "ws1")
	require.NoError(t, err)
	conn, _ := h.Get(id)

	// 手动把最后活跃时间拨回超过空闲窗口
	conn.mu.Lock()
	conn.lastActive = time.Now().Add(-2 * time.Second)
	conn.mu.Unlock()

	entries := h.Presence("ws1")
	require.Len(t, entries, 1)
	assert.Equal(t, session.PresenceIdle, entries[0].Status)

	h.Touch(id)
	entries = h.Presence("ws1")
	require.Len(t, entries, 1)
	assert.Equal(t, session.PresenceActive, entries[0].Status)
}
