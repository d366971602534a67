package session

import "github.com/google/wire"

// ProviderSet 会话应用层依赖注入
var ProviderSet = wire.NewSet(
	NewBroker,
)
