package peerstore

import (
	"fmt"
	"time"

	"github.com/dep2p/go-peerset/config"
)

// Config Peerstore 配置
type Config struct {
	// BanThreshold 信誉低于该值的节点被封禁
	BanThreshold int32

	// DecayInterval 信誉衰减周期
	DecayInterval time.Duration

	// InverseDecrement 每周期衰减 rep/InverseDecrement，至少 1
	InverseDecrement int32

	// ForgetAfter 信誉为零且在此期间没有更新的节点被遗忘，0 表示永不遗忘
	ForgetAfter time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BanThreshold:     config.DefaultBanThreshold,
		DecayInterval:    time.Second,
		InverseDecrement: 200,
		ForgetAfter:      time.Hour,
	}
}

// ConfigFromUnified 从统一配置创建 Peerstore 配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		BanThreshold:     cfg.Peerstore.BanThreshold,
		DecayInterval:    cfg.Peerstore.DecayInterval.Duration(),
		InverseDecrement: cfg.Peerstore.InverseDecrement,
		ForgetAfter:      cfg.Peerstore.ForgetAfter.Duration(),
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.BanThreshold >= 0 {
		return fmt.Errorf("%w: ban threshold must be negative", ErrInvalidConfig)
	}
	if c.DecayInterval <= 0 {
		return fmt.Errorf("%w: decay interval must be positive", ErrInvalidConfig)
	}
	if c.InverseDecrement <= 0 {
		return fmt.Errorf("%w: inverse decrement must be positive", ErrInvalidConfig)
	}
	if c.ForgetAfter < 0 {
		return fmt.Errorf("%w: forget after must be non-negative", ErrInvalidConfig)
	}
	return nil
}
