package notification

import "errors"

// Controller 错误定义
var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("notification: invalid config")

	// ErrUnknownProtocol 未注册的协议
	ErrUnknownProtocol = errors.New("notification: unknown protocol")

	// ErrAlreadyStarted 重复启动
	ErrAlreadyStarted = errors.New("notification: already started")
)
