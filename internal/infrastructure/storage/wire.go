package storage

import "github.com/google/wire"

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,                // 提供数据库连接
	NewWorkspaceRepository,   // 工作区与成员仓储
	NewMessageRepository,     // 消息日志仓储
	NewChunkRepository,       // 片段元数据仓储
	NewAttributionRepository, // 回答溯源仓储
)
