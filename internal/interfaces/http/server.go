package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/backend/internal/infrastructure/config"
	"github.com/docuchat/backend/internal/infrastructure/log"
	"github.com/docuchat/backend/internal/interfaces/http/handler"
	"github.com/docuchat/backend/internal/interfaces/http/middleware"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	cfg *config.ServerConfig,
	workspaceHandler *handler.WorkspaceHandler,
	sessionHandler *handler.SessionHandler,
	attributionHandler *handler.AttributionHandler,
	collabWSHandler *handler.CollabWSHandler,
) *HTTPServer {
	router := gin.Default()

	logger := log.NewModuleLogger("http", "server")

	// 注册路由
	api := router.Group("/api/v1")
	api.Use(middleware.EnsureUTF8Body())
	{
		// 工作区相关路由
		api.POST("/workspaces", workspaceHandler.Create)
		api.GET("/workspaces", workspaceHandler.List)
		api.GET("/workspaces/:id/stats", workspaceHandler.Stats)
		api.GET("/workspaces/:id/members", workspaceHandler.Members)
		api.POST("/workspaces/:id/members", workspaceHandler.Invite)
		api.PUT("/workspaces/:id/members/:userId/role", workspaceHandler.ChangeRole)
		api.DELETE("/workspaces/:id/members/:userId", workspaceHandler.RemoveMember)

		// 消息日志相关路由
		api.GET("/workspaces/:id/messages", sessionHandler.History)
		api.POST("/workspaces/:id/messages", sessionHandler.SubmitMessage)
		api.POST("/workspaces/:id/query", sessionHandler.SubmitQuery)
		api.POST("/workspaces/:id/messages/:messageId/reactions", sessionHandler.AddReaction)
		api.DELETE("/workspaces/:id/messages/:messageId/reactions/:emoji", sessionHandler.RemoveReaction)
		api.POST("/workspaces/:id/messages/:messageId/flag", sessionHandler.Flag)
		api.GET("/workspaces/:id/presence", sessionHandler.Presence)

		// 溯源相关路由
		api.POST("/chunks", attributionHandler.RegisterChunk)
		api.POST("/chunks/batch", attributionHandler.RegisterChunks)
		api.GET("/responses/:id/citations", attributionHandler.Citations)
		api.GET("/responses/:id/confidence", attributionHandler.Confidence)
		api.GET("/attribution/export", attributionHandler.Export)
	}

	// 协作 WebSocket 端点
	router.GET("/ws/collaborate/:workspaceId", collabWSHandler.Serve)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &HTTPServer{
		router:   router,
		httpPort: cfg.HTTPPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
