package wire

import (
	"database/sql"

	"log/slog"

	appWorkspace "github.com/docuchat/backend/internal/application/workspace"
	"github.com/docuchat/backend/internal/domain/events"
	applog "github.com/docuchat/backend/internal/infrastructure/log"
	"github.com/docuchat/backend/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	registry   *appWorkspace.Registry
	eventBus   events.EventBus
	db         *sql.DB
	logger     *slog.Logger

	unsubscribe []func()
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	registry *appWorkspace.Registry,
	eventBus events.EventBus,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer: httpServer,
		registry:   registry,
		eventBus:   eventBus,
		db:         db,
		logger:     applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting DocuChat backend application")

	a.setupEventSubscribers()

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	a.logger.Info("DocuChat backend application started successfully")
	return nil
}

// setupEventSubscribers 注册事件订阅者
// 消息追加与连接建立都算成员活跃，驱动成员表的 last_active_at
func (a *App) setupEventSubscribers() {
	if a.eventBus == nil {
		return
	}

	unsub := a.eventBus.Subscribe(
		events.MessageAppended,
		events.HandlerFunc(func(event events.Event) error {
			msgEvent, ok := event.(*events.MessageEvent)
			if !ok || msgEvent.AuthorID == "" {
				return nil
			}
			return a.registry.TouchMember(msgEvent.WorkspaceID, msgEvent.AuthorID)
		}),
	)
	a.unsubscribe = append(a.unsubscribe, unsub)

	unsub = a.eventBus.Subscribe(
		events.UserConnected,
		events.HandlerFunc(func(event events.Event) error {
			presenceEvent, ok := event.(*events.PresenceEvent)
			if !ok {
				return nil
			}
			return a.registry.TouchMember(presenceEvent.WorkspaceID, presenceEvent.UserID)
		}),
	)
	a.unsubscribe = append(a.unsubscribe, unsub)
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping DocuChat backend application")

	for _, unsub := range a.unsubscribe {
		unsub()
	}
	a.unsubscribe = nil

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
	}

	if a.eventBus != nil {
		a.eventBus.Close()
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database",
				"error", err,
			)
		}
	}

	a.logger.Info("DocuChat backend application stopped")
	return nil
}
