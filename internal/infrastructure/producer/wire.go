package producer

import (
	"github.com/google/wire"

	"github.com/docuchat/backend/internal/application/session"
	"github.com/docuchat/backend/internal/infrastructure/config"
)

// ProvideProducer 按配置提供回答管道
// 未配置上游地址时返回 nil，文档查询会收到明确的未配置错误
func ProvideProducer(cfg *config.ProducerConfig) session.ResponseProducer {
	if cfg.BaseURL == "" {
		return nil
	}
	return NewHTTPProducer(cfg)
}

// ProviderSet Producer 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideProducer,
)
