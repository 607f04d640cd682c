package peerstore

import "errors"

var (
	// ErrClosed 存储已关闭
	ErrClosed = errors.New("peerstore: closed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("peerstore: invalid config")
)
