package application

import (
	"github.com/google/wire"

	"github.com/docuchat/backend/internal/application/attribution"
	"github.com/docuchat/backend/internal/application/session"
	"github.com/docuchat/backend/internal/application/workspace"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	workspace.ProviderSet,
	attribution.ProviderSet,
	session.ProviderSet,
)
