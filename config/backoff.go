package config

import (
	"errors"
	"time"
)

// BackoffConfig 重拨退避配置
//
// 子流关闭或打开失败后，节点进入 Backoff，到期后重新成为拨号候选者。
// 连续失败时退避按 Multiplier 增长，直到 MaxBackoff。
type BackoffConfig struct {
	// DisconnectBackoff 子流关闭后的初始退避
	DisconnectBackoff Duration `json:"disconnect_backoff"`

	// OpenFailureBackoff 打开失败后的初始退避
	OpenFailureBackoff Duration `json:"open_failure_backoff"`

	// MaxBackoff 退避上限
	MaxBackoff Duration `json:"max_backoff"`

	// Multiplier 连续失败时的增长倍数，1 表示固定退避
	Multiplier float64 `json:"multiplier"`

	// Jitter 抖动方式：full 或 none
	Jitter string `json:"jitter"`

	// CacheSize 保留的按节点退避状态数量
	CacheSize int `json:"cache_size"`
}

// DefaultBackoffConfig 返回默认的退避配置
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		DisconnectBackoff:  Duration(5 * time.Second),
		OpenFailureBackoff: Duration(5 * time.Second),
		MaxBackoff:         Duration(60 * time.Second),
		Multiplier:         2.0,
		Jitter:             "full",
		CacheSize:          1024,
	}
}

// Validate 验证退避配置
func (c BackoffConfig) Validate() error {
	if c.DisconnectBackoff <= 0 || c.OpenFailureBackoff <= 0 {
		return errors.New("backoff: initial backoff must be positive")
	}
	if c.MaxBackoff < c.DisconnectBackoff || c.MaxBackoff < c.OpenFailureBackoff {
		return errors.New("backoff: max backoff must not be less than initial backoff")
	}
	if c.Multiplier < 1 {
		return errors.New("backoff: multiplier must be at least 1")
	}
	switch c.Jitter {
	case "", "full", "none":
	default:
		return errors.New("backoff: jitter must be full or none")
	}
	if c.CacheSize <= 0 {
		return errors.New("backoff: cache size must be positive")
	}
	return nil
}

// WithFixed 设置固定退避（不增长、无抖动）
func (c BackoffConfig) WithFixed(d time.Duration) BackoffConfig {
	c.DisconnectBackoff = Duration(d)
	c.OpenFailureBackoff = Duration(d)
	c.MaxBackoff = Duration(d)
	c.Multiplier = 1
	c.Jitter = "none"
	return c
}
