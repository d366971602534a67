package attribution

// ChunkRepository 片段元数据仓储接口
type ChunkRepository interface {
	// Save 保存片段元数据
	Save(chunk *ChunkMetadata) error
	// SaveBatch 批量保存片段元数据（单事务）
	SaveBatch(chunks []*ChunkMetadata) error
	// Find 按 ID 查找片段，不存在时返回 nil
	Find(chunkID string) (*ChunkMetadata, error)
	// Exists 检查片段是否已注册
	Exists(chunkID string) (bool, error)
	// Count 统计已注册片段数量
	Count() (int, error)
}

// AttributionRepository 回答溯源仓储接口
type AttributionRepository interface {
	// Save 保存溯源记录
	Save(a *ResponseAttribution) error
	// Find 按回答 ID 查找溯源记录，不存在时返回 nil
	Find(responseID string) (*ResponseAttribution, error)
	// Count 统计溯源记录数量
	Count() (int, error)
}
