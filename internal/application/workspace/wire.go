package workspace

import "github.com/google/wire"

// ProviderSet 工作区应用层依赖注入
var ProviderSet = wire.NewSet(
	NewRegistry,
)
