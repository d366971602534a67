package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docuchat/backend/internal/domain/events"
)

type countingHandler struct {
	mu    sync.Mutex
	count int
}

func (h *countingHandler) HandleEvent(event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	return nil
}

func (h *countingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func newMessageEvent() *events.MessageEvent {
	return &events.MessageEvent{
		EventType:   events.MessageAppended,
		WorkspaceID: "ws1",
		MessageID:   "m1",
		AuthorID:    "u1",
		OccurredAt:  time.Now(),
	}
}

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	handler := &countingHandler{}

	unsub := bus.Subscribe(events.MessageAppended, handler)

	bus.Publish(newMessageEvent())
	// 不匹配的事件类型不会分发
	bus.Publish(&events.PresenceEvent{EventType: events.UserConnected, OccurredAt: time.Now()})

	bus.Close()
	assert.Equal(t, 1, handler.Count())
	unsub()
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	handler := &countingHandler{}

	unsub := bus.Subscribe(events.MessageAppended, handler)
	unsub()

	bus.Publish(newMessageEvent())
	bus.Close()
	assert.Equal(t, 0, handler.Count())
}

func TestEventBusSubscribeMultiple(t *testing.T) {
	bus := NewEventBus()
	handler := &countingHandler{}

	bus.SubscribeMultiple([]events.EventType{events.UserConnected, events.UserDisconnected}, handler)

	bus.Publish(&events.PresenceEvent{EventType: events.UserConnected, OccurredAt: time.Now()})
	bus.Publish(&events.PresenceEvent{EventType: events.UserDisconnected, OccurredAt: time.Now()})

	bus.Close()
	assert.Equal(t, 2, handler.Count())
}

func TestEventBusHandlerPanicIsolated(t *testing.T) {
	bus := NewEventBus()
	handler := &countingHandler{}

	bus.Subscribe(events.MessageAppended, events.HandlerFunc(func(events.Event) error {
		panic("handler exploded")
	}))
	bus.Subscribe(events.MessageAppended, handler)

	// 单个处理器崩溃不影响其他处理器
	bus.Publish(newMessageEvent())
	bus.Close()
	assert.Equal(t, 1, handler.Count())
}

func TestEventBusClosedDropsEvents(t *testing.T) {
	bus := NewEventBus()
	handler := &countingHandler{}
	bus.Subscribe(events.MessageAppended, handler)

	bus.Close()
	bus.Publish(newMessageEvent())
	assert.Equal(t, 0, handler.Count())
}
