package interfaces

import (
	"github.com/google/wire"

	"github.com/docuchat/backend/internal/interfaces/http"
)

// HTTPServer HTTP 服务器别名，方便上层引用
type HTTPServer = http.HTTPServer

// ProviderSet 接口层总 ProviderSet
var ProviderSet = wire.NewSet(
	http.ProviderSet,
)
