package eventbus

import "github.com/google/wire"

// ProviderSet EventBus 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	NewEventBus,
)
