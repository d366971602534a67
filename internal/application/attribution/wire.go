package attribution

import "github.com/google/wire"

// ProviderSet Attribution 应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
)
