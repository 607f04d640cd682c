package peerset

import "errors"

// Peerset 错误定义
var (
	// ErrClosed peerset 已关闭
	ErrClosed = errors.New("peerset: closed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("peerset: invalid config")

	// ErrInvariant 内部不变量被破坏（仅在严格模式下作为 panic 值出现）
	ErrInvariant = errors.New("peerset: invariant violated")
)
