package session

import "errors"

// 连接相关错误
var (
	// ErrConnectionNotFound 连接不存在或已关闭
	ErrConnectionNotFound = errors.New("connection not found")
)

// 查询相关错误
var (
	// ErrProducerTimeout 外部回答管道超时
	ErrProducerTimeout = errors.New("response producer timed out")
	// ErrProducerFailure 外部回答管道失败
	ErrProducerFailure = errors.New("response producer failed")
	// ErrProducerNotConfigured 未配置回答管道
	ErrProducerNotConfigured = errors.New("response producer not configured")
)
