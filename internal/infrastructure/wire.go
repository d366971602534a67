package infrastructure

import (
	"github.com/google/wire"

	"github.com/docuchat/backend/internal/infrastructure/config"
	"github.com/docuchat/backend/internal/infrastructure/eventbus"
	"github.com/docuchat/backend/internal/infrastructure/producer"
	"github.com/docuchat/backend/internal/infrastructure/storage"
	"github.com/docuchat/backend/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	websocket.ProviderSet,
	eventbus.ProviderSet,
	producer.ProviderSet,
)
