package attribution

import "errors"

// 片段相关错误
var (
	// ErrDuplicateChunk 片段 ID 已注册
	ErrDuplicateChunk = errors.New("chunk id already registered")
	// ErrUnknownChunk 片段 ID 未注册
	ErrUnknownChunk = errors.New("chunk id not registered")
)

// 溯源相关错误
var (
	// ErrAttributionConflict 同一回答被写入了不同的溯源内容
	ErrAttributionConflict = errors.New("attribution already recorded with different content")
	// ErrNotFound 回答没有溯源记录
	ErrNotFound = errors.New("no attribution recorded for response")
	// ErrInvalidConfidence 置信度超出 [0,1] 范围
	ErrInvalidConfidence = errors.New("confidence score must be within [0,1]")
	// ErrInvalidStyle 不支持的引用格式
	ErrInvalidStyle = errors.New("unsupported citation style")
)
